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

func (rt *Router) configRouter(r fiber.Router) {
	configGroup := r.Group("/configs")
	{
		configGroup.Post("", rt.createConfig)               // POST /configs - create configuration
		configGroup.Get("", rt.listConfigs)                 // GET /configs - list configurations
		configGroup.Get("/default", rt.getDefaultConfig)    // GET /configs/default - current default
		configGroup.Get("/:id", rt.getConfig)               // GET /configs/:id - configuration detail
		configGroup.Put("/:id", rt.updateConfig)            // PUT /configs/:id - partial update
		configGroup.Delete("/:id", rt.deleteConfig)         // DELETE /configs/:id - delete configuration
		configGroup.Post("/:id/default", rt.setDefaultConfig) // POST /configs/:id/default - promote to default
	}
}

// createConfig POST /configs - create a pipeline configuration
func (rt *Router) createConfig(c *fiber.Ctx) error {
	var req model.CreatePipelineConfigReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	detail, err := rt.Services.Config.CreateConfig(&req)
	if err != nil {
		return httpx.WithRepErrMsg(c, httpx.InvalidPipelineConfig.Code, err.Error(), c.Path())
	}
	return httpx.WithRepJSON(c, detail)
}

// listConfigs GET /configs - list configurations with pagination
func (rt *Router) listConfigs(c *fiber.Ctx) error {
	pageNum, pageSize := pagination(c)
	configs, count, err := rt.Services.Config.ListConfigs(pageNum, pageSize)
	if err != nil {
		return respondErr(c, err)
	}
	result := map[string]any{
		"configs":  configs,
		"count":    count,
		"pageNum":  pageNum,
		"pageSize": pageSize,
	}
	return httpx.WithRepJSON(c, result)
}

// getConfig GET /configs/:id - configuration detail
func (rt *Router) getConfig(c *fiber.Ctx) error {
	configId := c.Params("id")
	if configId == "" {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "config id is required", c.Path())
	}
	detail, err := rt.Services.Config.GetConfig(configId)
	if err != nil {
		return respondErr(c, err)
	}
	return httpx.WithRepJSON(c, detail)
}

// getDefaultConfig GET /configs/default - the active default configuration
func (rt *Router) getDefaultConfig(c *fiber.Ctx) error {
	detail, err := rt.Services.Config.GetDefaultConfig()
	if err != nil {
		return respondErr(c, err)
	}
	return httpx.WithRepJSON(c, detail)
}

// updateConfig PUT /configs/:id - partial configuration update
func (rt *Router) updateConfig(c *fiber.Ctx) error {
	configId := c.Params("id")
	var req model.UpdatePipelineConfigReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}
	if err := rt.Services.Config.UpdateConfig(configId, &req); err != nil {
		return respondErr(c, err)
	}
	return httpx.WithRepMsg(c, httpx.Success.Code, httpx.Success.Msg)
}

// deleteConfig DELETE /configs/:id
func (rt *Router) deleteConfig(c *fiber.Ctx) error {
	configId := c.Params("id")
	if err := rt.Services.Config.DeleteConfig(configId); err != nil {
		return respondErr(c, err)
	}
	return httpx.WithRepMsg(c, httpx.Success.Code, httpx.Success.Msg)
}

// setDefaultConfig POST /configs/:id/default - promote a configuration
func (rt *Router) setDefaultConfig(c *fiber.Ctx) error {
	configId := c.Params("id")
	if err := rt.Services.Config.SetDefaultConfig(configId); err != nil {
		return respondErr(c, err)
	}
	return httpx.WithRepMsg(c, httpx.Success.Code, httpx.Success.Msg)
}
