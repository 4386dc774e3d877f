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

package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/visionflow/visionflow/internal/engine/config"
	"github.com/visionflow/visionflow/pkg/log"
)

// Server wraps the fiber application with lifecycle management.
type Server struct {
	app  *fiber.App
	conf *config.HttpConfig
}

func NewServer(conf *config.HttpConfig, app *fiber.App) *Server {
	return &Server{
		app:  app,
		conf: conf,
	}
}

// Start blocks serving HTTP until the listener fails or is shut down.
func (s *Server) Start() error {
	log.Infow("http server started", "address", s.conf.Addr())
	return s.app.Listen(s.conf.Addr())
}

// Stop gracefully drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	log.Info("http server shutting down")
	return s.app.ShutdownWithContext(ctx)
}
