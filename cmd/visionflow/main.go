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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visionflow/visionflow/internal/engine/config"
	"github.com/visionflow/visionflow/internal/engine/logic"
	"github.com/visionflow/visionflow/internal/engine/repo"
	"github.com/visionflow/visionflow/internal/engine/repo/memory"
	"github.com/visionflow/visionflow/internal/engine/router"
	"github.com/visionflow/visionflow/internal/engine/service"
	httpserver "github.com/visionflow/visionflow/internal/server/http"
	"github.com/visionflow/visionflow/pkg/cache"
	"github.com/visionflow/visionflow/pkg/database"
	"github.com/visionflow/visionflow/pkg/log"
	"github.com/visionflow/visionflow/pkg/metrics"
	"github.com/visionflow/visionflow/pkg/safe"
	"github.com/visionflow/visionflow/pkg/version"
)

var confDir string

func init() {
	flag.StringVar(&confDir, "conf", "./conf.d", "conf directory, e.g. -conf ./conf.d")
}

func main() {
	flag.Parse()
	fmt.Printf("visionflow engine %s (%s)\n", version.Version, version.GitCommit)

	appConf, err := config.Load(confDir)
	if err != nil {
		panic(err)
	}
	log.MustInit(&appConf.Log)

	repos := buildRepositories(appConf)

	metricsServer := metrics.NewServer(appConf.Metrics)
	pipelineMetrics := metrics.NewPipelineMetrics()
	if err := metricsServer.RegisterCollector(pipelineMetrics); err != nil {
		log.Fatalf("register pipeline collectors: %v", err)
	}
	if err := metricsServer.Start(); err != nil {
		log.Fatalf("start metrics server: %v", err)
	}

	invokers := service.NewInvokerRegistry(service.EchoInvoker{})
	defaultStageTimeout := time.Duration(appConf.Orchestrator.DefaultStageTimeoutMs) * time.Millisecond

	services := &router.Services{
		Pipeline: logic.NewPipelineLogic(repos, invokers, defaultStageTimeout, pipelineMetrics),
		Config:   logic.NewConfigLogic(repos.PipelineConfig),
		Registry: logic.NewRegistryLogic(repos.ServiceRegistry),
	}
	if err := services.Config.InitializePipelineSystem(); err != nil {
		log.Fatalf("seed pipeline configurations: %v", err)
	}

	rt := router.NewRouter(&appConf.Http, services, metricsServer)
	srv := httpserver.NewServer(&appConf.Http, rt.App())

	errCh := make(chan error, 1)
	safe.Go(func() {
		errCh <- srv.Start()
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("http server: %v", err)
		}
	case sig := <-quit:
		log.Infow("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Errorw("http server shutdown failed", "error", err)
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		log.Errorw("metrics server shutdown failed", "error", err)
	}
	log.Info("visionflow engine stopped")
}

// buildRepositories wires persistent storage when the database is enabled
// and falls back to in-memory repositories otherwise.
func buildRepositories(appConf *config.AppConfig) *repo.Repositories {
	if !appConf.Database.Enable {
		log.Warn("database disabled, executions and configurations are held in memory")
		return memory.NewRepositories()
	}

	db, err := database.NewDatabase(appConf.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	var c cache.ICache
	if appConf.Redis.Mode != "" {
		client, err := cache.NewRedis(appConf.Redis)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		c = cache.NewRedisCache(client)
	}
	return repo.NewRepositories(database.NewGormDB(db), c)
}
