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

// Package service hosts the provider adapter seam. The orchestrator talks
// to backends exclusively through orchestrator.ServiceInvoker; concrete
// provider clients register themselves here by provider id.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
)

// InvokerRegistry dispatches stage invocations to the adapter registered
// for the target service's provider.
type InvokerRegistry struct {
	mu       sync.RWMutex
	invokers map[string]orchestrator.ServiceInvoker
	fallback orchestrator.ServiceInvoker
}

// NewInvokerRegistry builds an empty registry. fallback, when non-nil,
// handles providers with no dedicated adapter.
func NewInvokerRegistry(fallback orchestrator.ServiceInvoker) *InvokerRegistry {
	return &InvokerRegistry{
		invokers: make(map[string]orchestrator.ServiceInvoker),
		fallback: fallback,
	}
}

// Register binds an adapter to a provider id, replacing any previous one.
func (r *InvokerRegistry) Register(providerID string, inv orchestrator.ServiceInvoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[providerID] = inv
}

// Invoke implements orchestrator.ServiceInvoker.
func (r *InvokerRegistry) Invoke(ctx context.Context, stage *orchestrator.Stage, input any, svc orchestrator.ServiceDescriptor) (any, error) {
	r.mu.RLock()
	inv, ok := r.invokers[svc.ProviderID]
	if !ok {
		inv = r.fallback
	}
	r.mu.RUnlock()

	if inv == nil {
		return nil, fmt.Errorf("no invoker registered for provider %q", svc.ProviderID)
	}
	return inv.Invoke(ctx, stage, input, svc)
}

// EchoInvoker is the development adapter: it returns a synthetic payload
// describing what would have been invoked. Useful for wiring checks and
// local pipeline runs without real provider credentials.
type EchoInvoker struct{}

func (EchoInvoker) Invoke(_ context.Context, stage *orchestrator.Stage, input any, svc orchestrator.ServiceDescriptor) (any, error) {
	return map[string]any{
		"stage":     stage.ID,
		"service":   svc.Endpoint(),
		"model":     svc.Model,
		"input":     input,
		"synthetic": true,
	}, nil
}
