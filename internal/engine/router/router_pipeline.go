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

func (rt *Router) pipelineRouter(r fiber.Router) {
	pipelineGroup := r.Group("/pipeline")
	{
		pipelineGroup.Post("/run", rt.runPipeline)                          // POST /pipeline/run - start an execution
		pipelineGroup.Get("/executions", rt.listExecutions)                 // GET /pipeline/executions - list executions
		pipelineGroup.Get("/executions/:id", rt.getExecution)               // GET /pipeline/executions/:id - execution status
		pipelineGroup.Post("/executions/:id/cancel", rt.cancelExecution)    // POST /pipeline/executions/:id/cancel
	}
}

// runPipeline POST /pipeline/run - start a pipeline execution
func (rt *Router) runPipeline(c *fiber.Ctx) error {
	var req model.RunPipelineReq
	if err := c.BodyParser(&req); err != nil {
		return httpx.WithRepErrMsg(c, httpx.RequestParameterParsingFailed.Code, httpx.RequestParameterParsingFailed.Msg, c.Path())
	}

	resp, err := rt.Services.Pipeline.RunPipeline(c.UserContext(), &req)
	if err != nil {
		// A synchronous failed run still produced an execution record;
		// surface both the failure and the id.
		if resp != nil {
			return c.JSON(httpx.Response{
				Code:   httpx.Failed.Code,
				Msg:    err.Error(),
				Detail: resp,
			})
		}
		return respondErr(c, err)
	}
	return httpx.WithRepJSON(c, resp)
}

// getExecution GET /pipeline/executions/:id - execution status
func (rt *Router) getExecution(c *fiber.Ctx) error {
	executionId := c.Params("id")
	if executionId == "" {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "execution id is required", c.Path())
	}
	detail, err := rt.Services.Pipeline.GetPipelineExecutionStatus(executionId)
	if err != nil {
		return respondErr(c, err)
	}
	return httpx.WithRepJSON(c, detail)
}

// listExecutions GET /pipeline/executions - list executions with pagination
func (rt *Router) listExecutions(c *fiber.Ctx) error {
	pageNum, pageSize := pagination(c)
	configId := c.Query("configId")

	executions, count, err := rt.Services.Pipeline.ListExecutions(configId, pageNum, pageSize)
	if err != nil {
		return respondErr(c, err)
	}
	result := map[string]any{
		"executions": executions,
		"count":      count,
		"pageNum":    pageNum,
		"pageSize":   pageSize,
	}
	return httpx.WithRepJSON(c, result)
}

// cancelExecution POST /pipeline/executions/:id/cancel - cancel a running execution
func (rt *Router) cancelExecution(c *fiber.Ctx) error {
	executionId := c.Params("id")
	if executionId == "" {
		return httpx.WithRepErrMsg(c, httpx.BadRequest.Code, "execution id is required", c.Path())
	}
	if err := rt.Services.Pipeline.CancelExecution(executionId); err != nil {
		return respondErr(c, err)
	}
	return httpx.WithRepMsg(c, httpx.Success.Code, "cancellation requested")
}
