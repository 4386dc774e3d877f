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

package orchestrator

import "errors"

var (
	// ErrConfigurationNotFound indicates no pipeline configuration could be
	// resolved (bad id, or no default exists and none was specified).
	ErrConfigurationNotFound = errors.New("pipeline configuration not found")

	// ErrExecutionNotFound indicates a lookup for an unknown execution id.
	ErrExecutionNotFound = errors.New("pipeline execution not found")

	// ErrStageInputUnresolved indicates a stage's input.from reference
	// produced no output and no default was declared.
	ErrStageInputUnresolved = errors.New("stage input unresolved")

	// ErrNoServicesAvailable indicates the stage router returned zero
	// candidates for a stage's service type.
	ErrNoServicesAvailable = errors.New("no services available")

	// ErrAllServicesFailed indicates every attempted service for a stage
	// failed within the attempt budget.
	ErrAllServicesFailed = errors.New("all services failed")

	// ErrRequiredStageFailed indicates a required stage exhausted its
	// attempts; fatal to the whole execution.
	ErrRequiredStageFailed = errors.New("required stage failed")
)
