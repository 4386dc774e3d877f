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
	"github.com/gofiber/fiber/v2"

	"github.com/visionflow/visionflow/internal/engine/model"
	httpx "github.com/visionflow/visionflow/pkg/http"
)

func (rt *Router) registryRouter(r fiber.Router) {
	serviceGroup := r.Group("/services")
	{
		serviceGroup.Post("", rt.registerService)           // POST /services - register backend service
		serviceGroup.Get("", rt.listServices)               // GET /services - list registered services
		serviceGroup.Get("/:id", rt.getService)             // GET /services/:id - service detail
		serviceGroup.Put("/:id", rt.updateService)          // PUT /services/:id - partial update, incl. deactivation
		serviceGroup.Post("/:id/health", rt.reportHealth)   // POST /services/:id/health - health probe report
	}
}

// registerService POST /services - register a backend service
func (rt *Router) registerService(c *fiber.Ctx) error {
	var req model.RegisterServiceReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	detail, err := rt.Services.Registry.RegisterService(&req)
	if err != nil {
		return httpx.WithRepErrMsg(c, httpx.InvalidServiceType.Code, err.Error(), c.Path())
	}
	return httpx.WithRepJSON(c, detail)
}

// listServices GET /services - list registered services
func (rt *Router) listServices(c *fiber.Ctx) error {
	pageNum, pageSize := pagination(c)
	services, count, err := rt.Services.Registry.ListServices(pageNum, pageSize)
	if err != nil {
		return respondErr(c, err)
	}
	result := map[string]any{
		"services": services,
		"count":    count,
		"pageNum":  pageNum,
		"pageSize": pageSize,
	}
	return httpx.WithRepJSON(c, result)
}

// getService GET /services/:id - service detail
func (rt *Router) getService(c *fiber.Ctx) error {
	serviceId := c.Params("id")
	if serviceId == "" {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "service id is required", c.Path())
	}
	detail, err := rt.Services.Registry.GetService(serviceId)
	if err != nil {
		return httpx.WithRepErrMsg(c, httpx.ServiceNotFound.Code, httpx.ServiceNotFound.Msg, c.Path())
	}
	return httpx.WithRepJSON(c, detail)
}

// updateService PUT /services/:id - partial service update
func (rt *Router) updateService(c *fiber.Ctx) error {
	serviceId := c.Params("id")
	var req model.UpdateServiceReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	if err := rt.Services.Registry.UpdateService(serviceId, &req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.ServiceNotFound.Code, err.Error(), c.Path())
	}
	return httpx.WithRepMsg(c, httpx.Success.Code, httpx.Success.Msg)
}

// reportHealth POST /services/:id/health - record a health probe result
func (rt *Router) reportHealth(c *fiber.Ctx) error {
	serviceId := c.Params("id")
	var req model.ReportHealthReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	if err := rt.Services.Registry.ReportHealth(serviceId, &req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, err.Error(), c.Path())
	}
	return httpx.WithRepMsg(c, httpx.Success.Code, httpx.Success.Msg)
}
