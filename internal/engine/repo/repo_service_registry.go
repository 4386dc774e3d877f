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

package repo

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"

	"github.com/visionflow/visionflow/internal/engine/consts"
	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/cache"
	"github.com/visionflow/visionflow/pkg/database"
	"github.com/visionflow/visionflow/pkg/log"
)

type IServiceRegistryRepository interface {
	RegisterService(svc *model.ServiceRegistry) error
	GetByServiceId(serviceId string) (*model.ServiceRegistry, error)
	GetActiveByType(serviceType string) ([]model.ServiceRegistry, error)
	ListServices(pageNum, pageSize int) ([]model.ServiceRegistry, int64, error)
	UpdateByServiceId(serviceId string, updates map[string]any) error
	UpdateHealth(serviceId string, healthStatus string, metricsJson string) error
}

type ServiceRegistryRepo struct {
	database.IDatabase
	cache.ICache
}

func NewServiceRegistryRepo(db database.IDatabase, cache cache.ICache) IServiceRegistryRepository {
	if cache == nil {
		log.Warnw("ServiceRegistryRepo initialized without cache, caching will be disabled")
	}
	return &ServiceRegistryRepo{
		IDatabase: db,
		ICache:    cache,
	}
}

// RegisterService stores a new backend service entry
func (sr *ServiceRegistryRepo) RegisterService(svc *model.ServiceRegistry) error {
	if err := sr.Database().Table(svc.TableName()).Create(svc).Error; err != nil {
		return err
	}
	sr.invalidate(svc.ServiceId, svc.ServiceType)
	return nil
}

func (sr *ServiceRegistryRepo) GetByServiceId(serviceId string) (*model.ServiceRegistry, error) {
	var svc model.ServiceRegistry
	if err := sr.Database().Table(svc.TableName()).
		Where("service_id = ?", serviceId).First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

// GetActiveByType returns all active services of one type. The list is the
// hot path of stage routing, so it is served cache-aside with a short TTL.
func (sr *ServiceRegistryRepo) GetActiveByType(serviceType string) ([]model.ServiceRegistry, error) {
	ctx := context.Background()
	cacheKey := consts.ServicesByTypeKey + serviceType

	if sr.ICache != nil {
		cachedData, err := sr.ICache.Get(ctx, cacheKey).Result()
		if err == nil && cachedData != "" {
			var services []model.ServiceRegistry
			if err := sonic.UnmarshalString(cachedData, &services); err == nil {
				return services, nil
			}
			log.Warnw("failed to unmarshal service list from cache", "serviceType", serviceType, "error", err)
		}
	}

	var services []model.ServiceRegistry
	if err := sr.Database().Table(model.ServiceRegistry{}.TableName()).
		Where("service_type = ? AND is_active = 1", serviceType).
		Order("priority DESC").
		Find(&services).Error; err != nil {
		return nil, err
	}

	if sr.ICache != nil {
		listJson, err := sonic.MarshalString(services)
		if err == nil {
			if err := sr.ICache.Set(ctx, cacheKey, listJson, 30*time.Second).Err(); err != nil {
				log.Warnw("failed to cache service list", "serviceType", serviceType, "error", err)
			}
		}
	}
	return services, nil
}

func (sr *ServiceRegistryRepo) ListServices(pageNum, pageSize int) ([]model.ServiceRegistry, int64, error) {
	var (
		services []model.ServiceRegistry
		count    int64
	)
	tableName := model.ServiceRegistry{}.TableName()
	if err := sr.Database().Table(tableName).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := sr.Database().Table(tableName).
		Order("service_type ASC, priority DESC").
		Offset((pageNum - 1) * pageSize).Limit(pageSize).
		Find(&services).Error; err != nil {
		return nil, 0, err
	}
	return services, count, nil
}

func (sr *ServiceRegistryRepo) UpdateByServiceId(serviceId string, updates map[string]any) error {
	svc, err := sr.GetByServiceId(serviceId)
	if err != nil {
		return err
	}
	result := sr.Database().Table(svc.TableName()).
		Where("service_id = ?", serviceId).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	sr.invalidate(serviceId, svc.ServiceType)
	return nil
}

// UpdateHealth records a health probe result for a service.
func (sr *ServiceRegistryRepo) UpdateHealth(serviceId string, healthStatus string, metricsJson string) error {
	if !orchestrator.HealthStatus(healthStatus).Valid() {
		return errors.New("unknown health status: " + healthStatus)
	}
	now := time.Now()
	updates := map[string]any{
		"health_status":     healthStatus,
		"last_health_check": &now,
	}
	if metricsJson != "" {
		updates["performance_metrics"] = metricsJson
	}
	return sr.UpdateByServiceId(serviceId, updates)
}

func (sr *ServiceRegistryRepo) invalidate(serviceId, serviceType string) {
	if sr.ICache == nil {
		return
	}
	ctx := context.Background()
	keys := []string{
		consts.ServiceDetailKey + serviceId,
		consts.ServicesByTypeKey + serviceType,
	}
	if err := sr.ICache.Del(ctx, keys...).Err(); err != nil {
		log.Warnw("failed to invalidate service cache", "serviceId", serviceId, "error", err)
	}
}
