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

package router

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionflow/visionflow/internal/engine/config"
	"github.com/visionflow/visionflow/internal/engine/logic"
	"github.com/visionflow/visionflow/internal/engine/repo/memory"
	"github.com/visionflow/visionflow/internal/engine/service"
	httpx "github.com/visionflow/visionflow/pkg/http"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	repos := memory.NewRepositories()
	invoker := service.NewInvokerRegistry(service.EchoInvoker{})
	services := &Services{
		Pipeline: logic.NewPipelineLogic(repos, invoker, 0, nil),
		Config:   logic.NewConfigLogic(repos.PipelineConfig),
		Registry: logic.NewRegistryLogic(repos.ServiceRegistry),
	}
	require.NoError(t, services.Config.InitializePipelineSystem())

	rt := NewRouter(&config.HttpConfig{InternalContextPath: "/api/v1"}, services, nil)
	return rt.App()
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *httpx.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope httpx.Response
	require.NoError(t, sonic.Unmarshal(raw, &envelope))
	return &envelope
}

func TestHealthAndVersion(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/version", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetDefaultConfigRoute(t *testing.T) {
	app := newTestApp(t)

	envelope := doJSON(t, app, http.MethodGet, "/api/v1/configs/default", nil)
	require.Equal(t, httpx.Success.Code, envelope.Code)

	detail, ok := envelope.Detail.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "thought-to-visual", detail["name"])
}

func TestGetUnknownConfigRoute(t *testing.T) {
	app := newTestApp(t)

	envelope := doJSON(t, app, http.MethodGet, "/api/v1/configs/no-such-config", nil)
	assert.Equal(t, httpx.ConfigurationNotFound.Code, envelope.Code)
}

func TestRunPipelineRoute(t *testing.T) {
	app := newTestApp(t)

	for _, svc := range []map[string]any{
		{"providerId": "openai", "serviceName": "gpt", "serviceType": "text_generation", "priority": 90},
		{"providerId": "stability", "serviceName": "sdxl", "serviceType": "image_generation", "priority": 80},
		{"providerId": "runway", "serviceName": "gen3", "serviceType": "video_generation", "priority": 70},
	} {
		envelope := doJSON(t, app, http.MethodPost, "/api/v1/services", svc)
		require.Equal(t, httpx.Success.Code, envelope.Code)
	}

	envelope := doJSON(t, app, http.MethodPost, "/api/v1/pipeline/run", map[string]any{
		"userId":    "tester",
		"input":     "a lighthouse in a storm",
		"forceSync": true,
	})
	require.Equal(t, httpx.Success.Code, envelope.Code)

	detail, ok := envelope.Detail.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", detail["status"])
	executionId, _ := detail["executionId"].(string)
	require.NotEmpty(t, executionId)

	result, ok := detail["result"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, result, "refine_thought")
	assert.Contains(t, result, "generate_image")

	envelope = doJSON(t, app, http.MethodGet, "/api/v1/pipeline/executions/"+executionId, nil)
	require.Equal(t, httpx.Success.Code, envelope.Code)
	execDetail, ok := envelope.Detail.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", execDetail["status"])
}

func TestRunPipelineRouteDefaultsToAsync(t *testing.T) {
	app := newTestApp(t)

	for _, svc := range []map[string]any{
		{"providerId": "openai", "serviceName": "gpt", "serviceType": "text_generation", "priority": 90},
		{"providerId": "stability", "serviceName": "sdxl", "serviceType": "image_generation", "priority": 80},
		{"providerId": "runway", "serviceName": "gen3", "serviceType": "video_generation", "priority": 70},
	} {
		envelope := doJSON(t, app, http.MethodPost, "/api/v1/services", svc)
		require.Equal(t, httpx.Success.Code, envelope.Code)
	}

	envelope := doJSON(t, app, http.MethodPost, "/api/v1/pipeline/run", map[string]any{
		"input": "a lighthouse in a storm",
	})
	require.Equal(t, httpx.Success.Code, envelope.Code)

	detail, ok := envelope.Detail.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pending", detail["status"])
	assert.NotContains(t, detail, "result")
}

func TestCancelUnknownExecutionRoute(t *testing.T) {
	app := newTestApp(t)

	envelope := doJSON(t, app, http.MethodPost, "/api/v1/pipeline/executions/missing/cancel", nil)
	assert.Equal(t, httpx.ExecutionNotFound.Code, envelope.Code)
}
