package logic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/engine/repo"
	"github.com/visionflow/visionflow/internal/engine/repo/memory"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/statemachine"
)

// scriptedInvoker returns canned outputs per service type and can be told
// to fail or block.
type scriptedInvoker struct {
	mu    sync.Mutex
	fail  map[orchestrator.ServiceType]error
	block map[orchestrator.ServiceType]bool
	calls map[orchestrator.ServiceType]int
}

func newScriptedInvoker() *scriptedInvoker {
	return &scriptedInvoker{
		fail:  make(map[orchestrator.ServiceType]error),
		block: make(map[orchestrator.ServiceType]bool),
		calls: make(map[orchestrator.ServiceType]int),
	}
}

func (s *scriptedInvoker) Invoke(ctx context.Context, stage *orchestrator.Stage, input any, svc orchestrator.ServiceDescriptor) (any, error) {
	s.mu.Lock()
	s.calls[stage.ServiceType]++
	failErr := s.fail[stage.ServiceType]
	blocked := s.block[stage.ServiceType]
	s.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failErr != nil {
		return nil, failErr
	}
	return string(stage.ServiceType) + " output", nil
}

func (s *scriptedInvoker) callCount(t orchestrator.ServiceType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[t]
}

type testEnv struct {
	repos    *repo.Repositories
	invoker  *scriptedInvoker
	pipeline *PipelineLogic
	config   *ConfigLogic
	registry *RegistryLogic
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := memory.NewRepositories()
	invoker := newScriptedInvoker()
	env := &testEnv{
		repos:    repos,
		invoker:  invoker,
		pipeline: NewPipelineLogic(repos, invoker, 0, nil),
		config:   NewConfigLogic(repos.PipelineConfig),
		registry: NewRegistryLogic(repos.ServiceRegistry),
	}
	require.NoError(t, env.config.InitializePipelineSystem())
	return env
}

func (env *testEnv) registerService(t *testing.T, provider, name, serviceType string, priority int) {
	t.Helper()
	_, err := env.registry.RegisterService(&model.RegisterServiceReq{
		ProviderId:  provider,
		ServiceName: name,
		ServiceType: serviceType,
		Priority:    priority,
	})
	require.NoError(t, err)
}

func (env *testEnv) registerAllServices(t *testing.T) {
	env.registerService(t, "openai", "gpt", "text_generation", 90)
	env.registerService(t, "stability", "sdxl", "image_generation", 80)
	env.registerService(t, "runway", "gen3", "video_generation", 70)
}

func TestInitializePipelineSystemIdempotent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.config.InitializePipelineSystem())

	configs, count, err := env.config.ListConfigs(1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	defaults := 0
	for _, cfg := range configs {
		if cfg.IsDefault == 1 {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestRunPipelineSyncSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.registerAllServices(t)

	resp, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		Input:     "a calm lake at dawn",
		ForceSync: true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionCompleted), resp.Status)

	// A synchronous run returns the stage outputs in-band.
	require.NotNil(t, resp.Result)
	assert.Equal(t, "text_generation output", resp.Result["refine_thought"])
	assert.Equal(t, "image_generation output", resp.Result["generate_image"])
	assert.Equal(t, "video_generation output", resp.Result["animate"])

	detail, err := env.pipeline.GetPipelineExecutionStatus(resp.ExecutionId)
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionCompleted), detail.Status)
	assert.Equal(t, "text_generation output", detail.Output["refine_thought"])
	assert.Equal(t, "image_generation output", detail.Output["generate_image"])
	assert.Equal(t, "video_generation output", detail.Output["animate"])
	assert.NotNil(t, detail.StartTime)
	assert.NotNil(t, detail.EndTime)
	require.NotNil(t, detail.Metrics)
	assert.Len(t, detail.Metrics.StageResults, 3)
}

func TestRunPipelineSyncNoServicesForRequiredStage(t *testing.T) {
	env := newTestEnv(t)
	// Nothing registered: the first required stage has no candidates.

	resp, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		Input:     "a thought",
		ForceSync: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, orchestrator.ErrRequiredStageFailed)
	assert.ErrorContains(t, err, "no services available for stage type: text_generation")

	detail, derr := env.pipeline.GetPipelineExecutionStatus(resp.ExecutionId)
	require.NoError(t, derr)
	assert.Equal(t, string(statemachine.ExecutionFailed), detail.Status)
	assert.Contains(t, detail.ErrorMsg, "no services available for stage type: text_generation")
	assert.Contains(t, detail.Errors, "refine_thought")
}

func TestRunPipelineOptionalStageFailureStillCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.registerService(t, "openai", "gpt", "text_generation", 90)
	env.registerService(t, "stability", "sdxl", "image_generation", 80)
	// No video service: animate is optional in the default pipeline.

	resp, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		Input:     "a thought",
		ForceSync: true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionCompleted), resp.Status)

	detail, err := env.pipeline.GetPipelineExecutionStatus(resp.ExecutionId)
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionCompleted), detail.Status)
	assert.NotContains(t, detail.Output, "animate")
	require.Contains(t, detail.Errors, "animate")
	assert.Contains(t, detail.Errors["animate"].Message, "no services available")
}

func TestRunPipelineAttemptBudget(t *testing.T) {
	env := newTestEnv(t)
	env.registerAllServices(t)
	env.invoker.fail[orchestrator.ServiceTypeImageGeneration] = errors.New("image backend down")

	_, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		Input:     "a thought",
		ForceSync: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, orchestrator.ErrAllServicesFailed)
	assert.ErrorContains(t, err, "image backend down")

	// generate_image declares maxAttempts 2 in the default configuration.
	assert.Equal(t, 2, env.invoker.callCount(orchestrator.ServiceTypeImageGeneration))
}

func TestRunPipelineUnknownConfig(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		ConfigId: "does-not-exist",
		Input:    "a thought",
	})
	assert.ErrorIs(t, err, orchestrator.ErrConfigurationNotFound)
}

func TestRunPipelineDefaultAsyncCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.registerAllServices(t)

	// Without ForceSync the call returns immediately with a pending id.
	resp, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		Input: "a thought",
	})
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionPending), resp.Status)
	assert.Nil(t, resp.Result)

	require.Eventually(t, func() bool {
		detail, err := env.pipeline.GetPipelineExecutionStatus(resp.ExecutionId)
		return err == nil && statemachine.ExecutionStatus(detail.Status).IsTerminal()
	}, 3*time.Second, 10*time.Millisecond)

	detail, err := env.pipeline.GetPipelineExecutionStatus(resp.ExecutionId)
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.ExecutionCompleted), detail.Status)
}

func TestCancelExecution(t *testing.T) {
	env := newTestEnv(t)
	env.registerAllServices(t)
	env.invoker.block[orchestrator.ServiceTypeTextGeneration] = true

	resp, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		Input: "a thought",
	})
	require.NoError(t, err)

	// Wait until the run goroutine has actually started the first stage.
	require.Eventually(t, func() bool {
		return env.invoker.callCount(orchestrator.ServiceTypeTextGeneration) > 0
	}, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, env.pipeline.CancelExecution(resp.ExecutionId))

	require.Eventually(t, func() bool {
		detail, err := env.pipeline.GetPipelineExecutionStatus(resp.ExecutionId)
		return err == nil && detail.Status == string(statemachine.ExecutionFailed)
	}, 3*time.Second, 10*time.Millisecond)

	// A terminal execution cannot be cancelled again.
	assert.ErrorIs(t, env.pipeline.CancelExecution(resp.ExecutionId), ErrExecutionNotCancellable)
}

func TestGetPipelineExecutionStatusUnknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.pipeline.GetPipelineExecutionStatus("nope")
	assert.ErrorIs(t, err, orchestrator.ErrExecutionNotFound)
}

func TestExecutionRecordsServiceUsage(t *testing.T) {
	env := newTestEnv(t)
	env.registerAllServices(t)

	resp, err := env.pipeline.RunPipeline(context.Background(), &model.RunPipelineReq{
		Input:     "a thought",
		ForceSync: true,
	})
	require.NoError(t, err)

	detail, err := env.pipeline.GetPipelineExecutionStatus(resp.ExecutionId)
	require.NoError(t, err)
	require.NotNil(t, detail.Metrics)
	assert.Equal(t, 1, detail.Metrics.ServicesUsed["openai/gpt"])
	assert.Equal(t, 1, detail.Metrics.ServicesUsed["stability/sdxl"])
}
