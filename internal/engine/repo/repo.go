// Copyright 2025 VisionFlow Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package repo

import (
	"github.com/google/wire"

	"github.com/visionflow/visionflow/pkg/cache"
	"github.com/visionflow/visionflow/pkg/database"
)

// Repositories bundles the persistence layer for injection into the logic layer.
type Repositories struct {
	PipelineConfig  IPipelineConfigRepository
	ServiceRegistry IServiceRegistryRepository
	Execution       IExecutionRepository
}

// NewRepositories wires all repositories over the shared database and cache.
func NewRepositories(db database.IDatabase, cache cache.ICache) *Repositories {
	return &Repositories{
		PipelineConfig:  NewPipelineConfigRepo(db, cache),
		ServiceRegistry: NewServiceRegistryRepo(db, cache),
		Execution:       NewExecutionRepo(db, cache),
	}
}

var ProviderSet = wire.NewSet(
	NewRepositories,
	NewPipelineConfigRepo,
	NewServiceRegistryRepo,
	NewExecutionRepo,
)
