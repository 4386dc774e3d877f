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

package model

import (
	"time"

	"github.com/bytedance/sonic"

	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
)

// ServiceRegistry backend service registry table
type ServiceRegistry struct {
	BaseModel
	ServiceId          string     `gorm:"column:service_id;uniqueIndex" json:"serviceId"`
	ProviderId         string     `gorm:"column:provider_id" json:"providerId"`
	ServiceName        string     `gorm:"column:service_name" json:"serviceName"`
	ServiceType        string     `gorm:"column:service_type;index" json:"serviceType"`
	Model              string     `gorm:"column:model" json:"model"`
	Priority           int        `gorm:"column:priority" json:"priority"`
	IsActive           int        `gorm:"column:is_active" json:"isActive"` // 0: disabled, 1: enabled
	Capabilities       string     `gorm:"column:capabilities;type:json" json:"-"`
	HealthStatus       string     `gorm:"column:health_status" json:"healthStatus"` // unknown, healthy, degraded, unhealthy
	LastHealthCheck    *time.Time `gorm:"column:last_health_check" json:"lastHealthCheck"`
	PerformanceMetrics string     `gorm:"column:performance_metrics;type:json" json:"-"`
}

func (ServiceRegistry) TableName() string {
	return "t_service_registry"
}

// ToDescriptor converts a registry row into a routable service descriptor.
func (s *ServiceRegistry) ToDescriptor() (orchestrator.ServiceDescriptor, error) {
	d := orchestrator.ServiceDescriptor{
		ID:           s.ServiceId,
		ProviderID:   s.ProviderId,
		ServiceName:  s.ServiceName,
		ServiceType:  orchestrator.ServiceType(s.ServiceType),
		Priority:     s.Priority,
		HealthStatus: orchestrator.HealthStatus(s.HealthStatus),
		Model:        s.Model,
	}
	if d.HealthStatus == "" {
		d.HealthStatus = orchestrator.HealthUnknown
	}
	if s.Capabilities != "" {
		if err := sonic.UnmarshalString(s.Capabilities, &d.Capabilities); err != nil {
			return d, err
		}
	}
	return d, nil
}

// RegisterServiceReq request for registering a backend service
type RegisterServiceReq struct {
	ProviderId   string   `json:"providerId"`
	ServiceName  string   `json:"serviceName"`
	ServiceType  string   `json:"serviceType"`
	Model        string   `json:"model"`
	Priority     int      `json:"priority"`
	Capabilities []string `json:"capabilities"`
}

// UpdateServiceReq request for updating a registered service
// (ServiceId is not allowed to be modified)
type UpdateServiceReq struct {
	ServiceName  *string   `json:"serviceName,omitempty"`
	Model        *string   `json:"model,omitempty"`
	Priority     *int      `json:"priority,omitempty"`
	IsActive     *bool     `json:"isActive,omitempty"`
	Capabilities *[]string `json:"capabilities,omitempty"`
}

// ReportHealthReq request for reporting a service health probe result
type ReportHealthReq struct {
	HealthStatus       string                           `json:"healthStatus"`
	PerformanceMetrics *orchestrator.PerformanceMetrics `json:"performanceMetrics,omitempty"`
}

// ServiceDetail response for service registry detail
type ServiceDetail struct {
	ServiceRegistry
	Capabilities       []string                         `json:"capabilities,omitempty"`
	PerformanceMetrics *orchestrator.PerformanceMetrics `json:"performanceMetrics,omitempty"`
}

// Detail expands the JSON columns for API responses.
func (s *ServiceRegistry) Detail() (*ServiceDetail, error) {
	detail := &ServiceDetail{ServiceRegistry: *s}
	if s.Capabilities != "" {
		if err := sonic.UnmarshalString(s.Capabilities, &detail.Capabilities); err != nil {
			return nil, err
		}
	}
	if s.PerformanceMetrics != "" {
		var pm orchestrator.PerformanceMetrics
		if err := sonic.UnmarshalString(s.PerformanceMetrics, &pm); err != nil {
			return nil, err
		}
		detail.PerformanceMetrics = &pm
	}
	return detail, nil
}
