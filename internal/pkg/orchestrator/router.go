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

import (
	"context"
	"fmt"
	"sort"
)

// StageRouter orders candidate services for a stage. Selection happens in
// bands: providers named in the pipeline's preferredProviders keep their
// declared order (unhealthy ones sink to the back of the preferred band),
// then everything else sorted by priority descending, then providers named
// in the pipeline's fallbackProviders for the stage's type. Unhealthy
// services sink within every band.
type StageRouter struct {
	catalog ServiceCatalog
}

// NewStageRouter builds a router over the given catalog.
func NewStageRouter(catalog ServiceCatalog) *StageRouter {
	return &StageRouter{catalog: catalog}
}

// Route returns the ordered candidate list for a stage. An empty list with
// a nil error means no active services match; the caller decides whether
// that is fatal.
func (r *StageRouter) Route(ctx context.Context, stage *Stage, spec *PipelineSpec) ([]ServiceDescriptor, error) {
	candidates, err := r.catalog.GetActiveByType(ctx, stage.ServiceType)
	if err != nil {
		return nil, fmt.Errorf("query services for stage %q: %w", stage.ID, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var preferred, fallback []string
	if spec != nil {
		if rule, ok := spec.RoutingRuleFor(stage.ServiceType); ok {
			preferred = rule.PreferredProviders
		}
		fallback = spec.FallbackConfig.FallbackProviders[stage.ServiceType]
	}

	ordered := make([]ServiceDescriptor, len(candidates))
	copy(ordered, candidates)
	sortCandidates(ordered, preferred, fallback)
	return ordered, nil
}

// candidateBand places a service: preferred providers keep their declared
// index, designated fallback providers trail everything else, the rest sit
// in between. A provider listed in both reads as preferred.
func candidateBand(svc ServiceDescriptor, preferred, fallback []string) int {
	for i, p := range preferred {
		if svc.ProviderID == p {
			return i
		}
	}
	for _, p := range fallback {
		if svc.ProviderID == p {
			return len(preferred) + 1
		}
	}
	return len(preferred)
}

func sortCandidates(services []ServiceDescriptor, preferred, fallback []string) {
	sort.SliceStable(services, func(i, j int) bool {
		a, b := services[i], services[j]

		bandA := candidateBand(a, preferred, fallback)
		bandB := candidateBand(b, preferred, fallback)
		if bandA != bandB {
			return bandA < bandB
		}

		// Within any band healthy services go first.
		unhealthyA := a.HealthStatus == HealthUnhealthy
		unhealthyB := b.HealthStatus == HealthUnhealthy
		if unhealthyA != unhealthyB {
			return !unhealthyA
		}

		// Non-preferred services rank by declared priority, highest first.
		if bandA >= len(preferred) {
			return a.Priority > b.Priority
		}
		return false
	})
}
