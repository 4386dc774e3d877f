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

package config

import (
	"fmt"

	"github.com/visionflow/visionflow/pkg/cache"
	"github.com/visionflow/visionflow/pkg/conf"
	"github.com/visionflow/visionflow/pkg/database"
	"github.com/visionflow/visionflow/pkg/log"
	"github.com/visionflow/visionflow/pkg/metrics"
)

// HttpConfig configures the API server.
type HttpConfig struct {
	Host                string `toml:"host" mapstructure:"host"`
	Port                int    `toml:"port" mapstructure:"port"`
	AccessLog           bool   `toml:"accessLog" mapstructure:"accessLog"`
	ExposeMetrics       bool   `toml:"exposeMetrics" mapstructure:"exposeMetrics"`
	InternalContextPath string `toml:"internalContextPath" mapstructure:"internalContextPath"`
	ReadTimeoutMs       int64  `toml:"readTimeoutMs" mapstructure:"readTimeoutMs"`
	WriteTimeoutMs      int64  `toml:"writeTimeoutMs" mapstructure:"writeTimeoutMs"`
}

func (h *HttpConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// OrchestratorConfig tunes the pipeline engine.
type OrchestratorConfig struct {
	// DefaultStageTimeoutMs bounds stages that declare no timeout. Zero
	// leaves such stages unbounded.
	DefaultStageTimeoutMs int64 `toml:"defaultStageTimeoutMs" mapstructure:"defaultStageTimeoutMs"`
}

// AppConfig is the root configuration loaded from conf.d/config.toml.
type AppConfig struct {
	Http         HttpConfig            `toml:"http" mapstructure:"http"`
	Log          log.Conf              `toml:"log" mapstructure:"log"`
	Database     database.Database     `toml:"database" mapstructure:"database"`
	Redis        cache.Redis           `toml:"redis" mapstructure:"redis"`
	Metrics      metrics.MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	Orchestrator OrchestratorConfig    `toml:"orchestrator" mapstructure:"orchestrator"`
}

// Load reads the configuration directory and applies defaults.
func Load(confDir string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := conf.LoadConfigFile(confDir, cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Log.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills unset fields with sane defaults.
func (c *AppConfig) SetDefaults() {
	if c.Http.Host == "" {
		c.Http.Host = "0.0.0.0"
	}
	if c.Http.Port == 0 {
		c.Http.Port = 8180
	}
	if c.Http.InternalContextPath == "" {
		c.Http.InternalContextPath = "/api/v1"
	}
	if c.Orchestrator.DefaultStageTimeoutMs == 0 {
		c.Orchestrator.DefaultStageTimeoutMs = 120000
	}
	c.Log.SetDefaults()
}
