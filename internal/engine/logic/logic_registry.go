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

package logic

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/engine/repo"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/id"
	"github.com/visionflow/visionflow/pkg/log"
)

// RegistryLogic manages the backend service registry.
type RegistryLogic struct {
	registryRepo repo.IServiceRegistryRepository
}

func NewRegistryLogic(registryRepo repo.IServiceRegistryRepository) *RegistryLogic {
	return &RegistryLogic{registryRepo: registryRepo}
}

// RegisterService validates and stores a new backend service. New services
// start active with unknown health until the first probe reports in.
func (rl *RegistryLogic) RegisterService(req *model.RegisterServiceReq) (*model.ServiceDetail, error) {
	if req.ProviderId == "" || req.ServiceName == "" {
		return nil, fmt.Errorf("providerId and serviceName are required")
	}
	if !orchestrator.ServiceType(req.ServiceType).Valid() {
		return nil, fmt.Errorf("unknown service type: %s", req.ServiceType)
	}

	svc := &model.ServiceRegistry{
		ServiceId:    id.GetUUID(),
		ProviderId:   req.ProviderId,
		ServiceName:  req.ServiceName,
		ServiceType:  req.ServiceType,
		Model:        req.Model,
		Priority:     req.Priority,
		IsActive:     1,
		HealthStatus: string(orchestrator.HealthUnknown),
	}
	if len(req.Capabilities) > 0 {
		capsJson, err := sonic.MarshalString(req.Capabilities)
		if err != nil {
			return nil, err
		}
		svc.Capabilities = capsJson
	}

	if err := rl.registryRepo.RegisterService(svc); err != nil {
		log.Errorf("register service err: %v", err)
		return nil, err
	}
	return svc.Detail()
}

func (rl *RegistryLogic) GetService(serviceId string) (*model.ServiceDetail, error) {
	svc, err := rl.registryRepo.GetByServiceId(serviceId)
	if err != nil {
		return nil, err
	}
	return svc.Detail()
}

func (rl *RegistryLogic) ListServices(pageNum, pageSize int) ([]model.ServiceRegistry, int64, error) {
	services, count, err := rl.registryRepo.ListServices(pageNum, pageSize)
	if err != nil {
		log.Errorf("list services err: %v", err)
		return nil, 0, err
	}
	return services, count, nil
}

// UpdateService applies a partial update; the service id is immutable.
func (rl *RegistryLogic) UpdateService(serviceId string, req *model.UpdateServiceReq) error {
	updates := make(map[string]any)
	if req.ServiceName != nil {
		updates["service_name"] = *req.ServiceName
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.IsActive != nil {
		updates["is_active"] = boolToInt(*req.IsActive)
	}
	if req.Capabilities != nil {
		capsJson, err := sonic.MarshalString(*req.Capabilities)
		if err != nil {
			return err
		}
		updates["capabilities"] = capsJson
	}
	if len(updates) == 0 {
		return nil
	}
	return rl.registryRepo.UpdateByServiceId(serviceId, updates)
}

// ReportHealth records a probe result for one service.
func (rl *RegistryLogic) ReportHealth(serviceId string, req *model.ReportHealthReq) error {
	metricsJson := ""
	if req.PerformanceMetrics != nil {
		encoded, err := sonic.MarshalString(req.PerformanceMetrics)
		if err != nil {
			return err
		}
		metricsJson = encoded
	}
	return rl.registryRepo.UpdateHealth(serviceId, req.HealthStatus, metricsJson)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
