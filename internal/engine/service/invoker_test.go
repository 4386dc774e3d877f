package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
)

type stubInvoker struct {
	out any
	err error
}

func (s stubInvoker) Invoke(context.Context, *orchestrator.Stage, any, orchestrator.ServiceDescriptor) (any, error) {
	return s.out, s.err
}

func TestInvokerRegistryDispatch(t *testing.T) {
	reg := NewInvokerRegistry(nil)
	reg.Register("openai", stubInvoker{out: "from openai"})
	reg.Register("stability", stubInvoker{err: errors.New("boom")})

	stage := &orchestrator.Stage{ID: "s", ServiceType: orchestrator.ServiceTypeTextGeneration}

	out, err := reg.Invoke(context.Background(), stage, "in", orchestrator.ServiceDescriptor{ProviderID: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "from openai", out)

	_, err = reg.Invoke(context.Background(), stage, "in", orchestrator.ServiceDescriptor{ProviderID: "stability"})
	assert.ErrorContains(t, err, "boom")
}

func TestInvokerRegistryUnknownProvider(t *testing.T) {
	reg := NewInvokerRegistry(nil)
	stage := &orchestrator.Stage{ID: "s", ServiceType: orchestrator.ServiceTypeTextGeneration}
	_, err := reg.Invoke(context.Background(), stage, "in", orchestrator.ServiceDescriptor{ProviderID: "ghost"})
	assert.ErrorContains(t, err, "no invoker registered")
}

func TestInvokerRegistryFallback(t *testing.T) {
	reg := NewInvokerRegistry(EchoInvoker{})
	stage := &orchestrator.Stage{ID: "s", ServiceType: orchestrator.ServiceTypeTextGeneration}

	out, err := reg.Invoke(context.Background(), stage, "hello", orchestrator.ServiceDescriptor{
		ProviderID:  "unregistered",
		ServiceName: "svc",
	})
	require.NoError(t, err)
	payload, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "unregistered/svc", payload["service"])
	assert.Equal(t, "hello", payload["input"])
}
