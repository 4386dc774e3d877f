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
	"gorm.io/gorm"

	"github.com/visionflow/visionflow/internal/engine/consts"
	"github.com/visionflow/visionflow/internal/engine/model"
	"github.com/visionflow/visionflow/internal/pkg/orchestrator"
	"github.com/visionflow/visionflow/pkg/cache"
	"github.com/visionflow/visionflow/pkg/database"
	"github.com/visionflow/visionflow/pkg/log"
)

type IPipelineConfigRepository interface {
	CreateConfig(cfg *model.PipelineConfig) error
	GetByConfigId(configId string) (*model.PipelineConfig, error)
	GetDefault() (*model.PipelineConfig, error)
	ListConfigs(pageNum, pageSize int) ([]model.PipelineConfig, int64, error)
	UpdateByConfigId(configId string, updates map[string]any) error
	DeleteConfig(configId string) error
	SetDefault(configId string) error
}

type PipelineConfigRepo struct {
	database.IDatabase
	cache.ICache
}

func NewPipelineConfigRepo(db database.IDatabase, cache cache.ICache) IPipelineConfigRepository {
	if cache == nil {
		log.Warnw("PipelineConfigRepo initialized without cache, caching will be disabled")
	}
	return &PipelineConfigRepo{
		IDatabase: db,
		ICache:    cache,
	}
}

// CreateConfig stores a new pipeline configuration
func (pr *PipelineConfigRepo) CreateConfig(cfg *model.PipelineConfig) error {
	if err := pr.Database().Table(cfg.TableName()).Create(cfg).Error; err != nil {
		return err
	}
	if cfg.IsDefault == 1 {
		pr.invalidate(cfg.ConfigId)
	}
	return nil
}

func (pr *PipelineConfigRepo) GetByConfigId(configId string) (*model.PipelineConfig, error) {
	ctx := context.Background()
	cacheKey := consts.PipelineConfigKey + configId

	if pr.ICache != nil {
		cachedData, err := pr.ICache.Get(ctx, cacheKey).Result()
		if err == nil && cachedData != "" {
			var cfg model.PipelineConfig
			if err := sonic.UnmarshalString(cachedData, &cfg); err == nil {
				return &cfg, nil
			}
			log.Warnw("failed to unmarshal pipeline config from cache", "configId", configId, "error", err)
		}
	}

	var cfg model.PipelineConfig
	if err := pr.Database().Table(cfg.TableName()).
		Where("config_id = ?", configId).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orchestrator.ErrConfigurationNotFound
		}
		return nil, err
	}

	if pr.ICache != nil {
		cfgJson, err := sonic.MarshalString(&cfg)
		if err == nil {
			if err := pr.ICache.Set(ctx, cacheKey, cfgJson, 5*time.Minute).Err(); err != nil {
				log.Warnw("failed to cache pipeline config", "configId", configId, "error", err)
			}
		}
	}
	return &cfg, nil
}

// GetDefault returns the single active default configuration.
func (pr *PipelineConfigRepo) GetDefault() (*model.PipelineConfig, error) {
	var cfg model.PipelineConfig
	if err := pr.Database().Table(cfg.TableName()).
		Where("is_default = 1 AND is_active = 1").First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orchestrator.ErrConfigurationNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (pr *PipelineConfigRepo) ListConfigs(pageNum, pageSize int) ([]model.PipelineConfig, int64, error) {
	var (
		configs []model.PipelineConfig
		count   int64
	)
	tableName := model.PipelineConfig{}.TableName()
	if err := pr.Database().Table(tableName).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := pr.Database().Table(tableName).
		Order("created_at DESC").
		Offset((pageNum - 1) * pageSize).Limit(pageSize).
		Find(&configs).Error; err != nil {
		return nil, 0, err
	}
	return configs, count, nil
}

func (pr *PipelineConfigRepo) UpdateByConfigId(configId string, updates map[string]any) error {
	result := pr.Database().Table(model.PipelineConfig{}.TableName()).
		Where("config_id = ?", configId).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return orchestrator.ErrConfigurationNotFound
	}
	pr.invalidate(configId)
	return nil
}

func (pr *PipelineConfigRepo) DeleteConfig(configId string) error {
	result := pr.Database().Table(model.PipelineConfig{}.TableName()).
		Where("config_id = ?", configId).Delete(&model.PipelineConfig{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return orchestrator.ErrConfigurationNotFound
	}
	pr.invalidate(configId)
	return nil
}

// SetDefault promotes one configuration to default. The previous default is
// demoted in the same transaction so at most one default exists.
func (pr *PipelineConfigRepo) SetDefault(configId string) error {
	tableName := model.PipelineConfig{}.TableName()
	err := pr.Database().Transaction(func(tx *gorm.DB) error {
		var cfg model.PipelineConfig
		if err := tx.Table(tableName).
			Where("config_id = ?", configId).First(&cfg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orchestrator.ErrConfigurationNotFound
			}
			return err
		}
		if err := tx.Table(tableName).
			Where("is_default = 1 AND config_id != ?", configId).
			Update("is_default", 0).Error; err != nil {
			return err
		}
		return tx.Table(tableName).
			Where("config_id = ?", configId).
			Update("is_default", 1).Error
	})
	if err != nil {
		return err
	}
	pr.invalidate(configId)
	return nil
}

func (pr *PipelineConfigRepo) invalidate(configId string) {
	if pr.ICache == nil {
		return
	}
	ctx := context.Background()
	if err := pr.ICache.Del(ctx, consts.PipelineConfigKey+configId, consts.DefaultConfigKey).Err(); err != nil {
		log.Warnw("failed to invalidate pipeline config cache", "configId", configId, "error", err)
	}
}
