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
	"time"

	"github.com/visionflow/visionflow/pkg/log"
	"github.com/visionflow/visionflow/pkg/metrics"
	"github.com/visionflow/visionflow/pkg/retry"
)

// StageExecutor runs a single stage against an ordered candidate list.
// One candidate service is tried per attempt; the attempt budget comes from
// the stage's fallback strategy, falling back to the pipeline's
// globalMaxAttempts and finally to a single attempt. The stage's
// retryConfig shapes the delay between attempts.
type StageExecutor struct {
	invoker        ServiceInvoker
	defaultTimeout time.Duration
	metrics        *metrics.PipelineMetrics
}

// NewStageExecutor builds a stage executor. defaultTimeout bounds stages
// that declare no timeoutMs; zero disables the default bound.
func NewStageExecutor(invoker ServiceInvoker, defaultTimeout time.Duration, m *metrics.PipelineMetrics) *StageExecutor {
	return &StageExecutor{
		invoker:        invoker,
		defaultTimeout: defaultTimeout,
		metrics:        m,
	}
}

// Execute tries the stage against the candidates until one succeeds or the
// attempt budget is exhausted. It never panics; all failure modes come back
// in the StageResult.
func (e *StageExecutor) Execute(ctx context.Context, stage *Stage, input any, spec *PipelineSpec, candidates []ServiceDescriptor) StageResult {
	start := time.Now()

	candidates = filterAcceptable(stage, candidates)
	if len(candidates) == 0 {
		return StageResult{
			Err:     fmt.Errorf("%w for stage type: %s", ErrNoServicesAvailable, stage.ServiceType),
			Metrics: StageMetrics{DurationMs: time.Since(start).Milliseconds()},
		}
	}

	maxAttempts := attemptBudget(stage, spec)
	backoff := attemptBackoff(stage)

	var lastErr error
	attempts := 0
	for i := 0; i < maxAttempts; i++ {
		if i > 0 && backoff != nil {
			if err := retry.Sleep(ctx, backoff.Next(i - 1)); err != nil {
				lastErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		// Attempts walk the candidate list in order and wrap around when the
		// budget exceeds the number of distinct services.
		svc := candidates[i%len(candidates)]
		attempts++
		output, err := e.invokeOne(ctx, stage, input, svc)
		if err == nil {
			e.metrics.StageAttempt(string(stage.ServiceType), "success")
			elapsed := time.Since(start)
			e.metrics.StageDuration(string(stage.ServiceType), elapsed.Seconds())
			return StageResult{
				Success:     true,
				Output:      output,
				ServiceUsed: svc.Endpoint(),
				Metrics: StageMetrics{
					DurationMs: elapsed.Milliseconds(),
					Attempts:   attempts,
					Provider:   svc.ProviderID,
					Model:      svc.Model,
				},
			}
		}

		e.metrics.StageAttempt(string(stage.ServiceType), "failure")
		log.Warnw("stage attempt failed",
			"stageId", stage.ID,
			"service", svc.Endpoint(),
			"attempt", attempts,
			"error", err)
		lastErr = err
	}

	elapsed := time.Since(start)
	e.metrics.StageDuration(string(stage.ServiceType), elapsed.Seconds())

	err := error(nil)
	if lastErr != nil {
		err = fmt.Errorf("%w for stage %q: %w", ErrAllServicesFailed, stage.ID, lastErr)
	} else {
		err = fmt.Errorf("%w for stage %q", ErrAllServicesFailed, stage.ID)
	}
	return StageResult{
		Err: err,
		Metrics: StageMetrics{
			DurationMs: elapsed.Milliseconds(),
			Attempts:   attempts,
		},
	}
}

// invokeOne runs one service attempt under the stage's timeout.
func (e *StageExecutor) invokeOne(ctx context.Context, stage *Stage, input any, svc ServiceDescriptor) (any, error) {
	timeout := e.defaultTimeout
	if stage.TimeoutMs > 0 {
		timeout = time.Duration(stage.TimeoutMs) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return e.invoker.Invoke(ctx, stage, input, svc)
}

// filterAcceptable narrows candidates to the fallback strategy's acceptable
// service names when the strategy is alternative-service with an explicit
// services list.
func filterAcceptable(stage *Stage, candidates []ServiceDescriptor) []ServiceDescriptor {
	fs := stage.FallbackStrategy
	if fs == nil || fs.Type != FallbackAlternativeService || len(fs.Services) == 0 {
		return candidates
	}
	acceptable := make(map[string]struct{}, len(fs.Services))
	for _, name := range fs.Services {
		acceptable[name] = struct{}{}
	}
	filtered := candidates[:0:0]
	for _, svc := range candidates {
		if _, ok := acceptable[svc.ServiceName]; ok {
			filtered = append(filtered, svc)
		}
	}
	return filtered
}

// attemptBudget resolves how many service attempts the stage may make:
// stage fallback strategy first, then the pipeline-wide default, else one.
// A fallback type of "none" always means a single attempt.
func attemptBudget(stage *Stage, spec *PipelineSpec) int {
	if fs := stage.FallbackStrategy; fs != nil {
		if fs.Type == FallbackNone {
			return 1
		}
		if fs.MaxAttempts > 0 {
			return fs.MaxAttempts
		}
	}
	if spec != nil && spec.FallbackConfig.GlobalMaxAttempts > 0 {
		return spec.FallbackConfig.GlobalMaxAttempts
	}
	return 1
}

// attemptBackoff derives the inter-attempt delay from the stage's
// retryConfig; nil means no delay between attempts.
func attemptBackoff(stage *Stage) retry.Backoff {
	rc := stage.RetryConfig
	if rc == nil || rc.InitialDelayMs <= 0 {
		return nil
	}
	base := time.Duration(rc.InitialDelayMs) * time.Millisecond
	max := time.Duration(rc.MaxDelayMs) * time.Millisecond
	if rc.BackoffMultiplier > 1 {
		return retry.ExponentialWithMultiplier(base, rc.BackoffMultiplier, max)
	}
	return retry.Fixed(base)
}
