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
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	recoverware "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/visionflow/visionflow/internal/engine/config"
	"github.com/visionflow/visionflow/internal/engine/logic"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	httpx "github.com/visionflow/visionflow/pkg/http"
	"github.com/visionflow/visionflow/pkg/metrics"
	"github.com/visionflow/visionflow/pkg/version"
)

// Services bundles the logic layer for the API routes.
type Services struct {
	Pipeline *logic.PipelineLogic
	Config   *logic.ConfigLogic
	Registry *logic.RegistryLogic
}

type Router struct {
	Http     *config.HttpConfig
	Services *Services
	Metrics  *metrics.Server
}

func NewRouter(httpConf *config.HttpConfig, services *Services, metricsServer *metrics.Server) *Router {
	return &Router{
		Http:     httpConf,
		Services: services,
		Metrics:  metricsServer,
	}
}

// App builds the fiber application with all routes registered.
func (rt *Router) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "visionflow-engine",
		DisableStartupMessage: true,
	})

	app.Use(recoverware.New())
	app.Use(cors.New())
	if rt.Http.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})

	if rt.Http.ExposeMetrics && rt.Metrics != nil {
		handler := fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(rt.Metrics.GetRegistry(), promhttp.HandlerOpts{}))
		app.Get("/metrics", func(c *fiber.Ctx) error {
			handler(c.Context())
			return nil
		})
	}

	api := app.Group(rt.Http.InternalContextPath)
	rt.pipelineRouter(api)
	rt.configRouter(api)
	rt.registryRouter(api)

	return app
}

func pagination(c *fiber.Ctx) (int, int) {
	pageNum := c.QueryInt("pageNum")
	if pageNum <= 0 {
		pageNum = 1
	}
	pageSize := c.QueryInt("pageSize")
	if pageSize <= 0 {
		pageSize = 10
	}
	return pageNum, pageSize
}

// respondErr maps domain errors onto the unified error envelope.
func respondErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrConfigurationNotFound):
		return httpx.WithRepErrMsg(c, httpx.ConfigurationNotFound.Code, httpx.ConfigurationNotFound.Msg, c.Path())
	case errors.Is(err, orchestrator.ErrExecutionNotFound):
		return httpx.WithRepErrMsg(c, httpx.ExecutionNotFound.Code, httpx.ExecutionNotFound.Msg, c.Path())
	case errors.Is(err, logic.ErrExecutionNotCancellable):
		return httpx.WithRepErrMsg(c, httpx.ExecutionNotCancellable.Code, httpx.ExecutionNotCancellable.Msg, c.Path())
	default:
		return httpx.WithRepErrMsg(c, httpx.Failed.Code, err.Error(), c.Path())
	}
}
