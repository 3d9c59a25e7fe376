// Package main provides the orchestrator server implementation.
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/api"
	"github.com/archon-ai/orchestrator/config"
	"github.com/archon-ai/orchestrator/internal/orchestrator"
	"github.com/archon-ai/orchestrator/internal/server"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 将配置、编排器与 HTTP 控制面组装为一个可启动的进程。
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	orc         *orchestrator.Orchestrator
	httpManager *server.Manager
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动编排器与控制 API。
func (s *Server) Start() error {
	// 1. 共享的上游限流器（按 provider family 一个）
	limiters := orchestrator.NewProviderLimiters(
		s.cfg.Orchestrator.ProviderRateLimitRPS,
		s.cfg.Orchestrator.ProviderRateLimitBurst,
	)

	// 2. 编排器：worker pool + 依赖监视器
	s.orc = orchestrator.New(orchestrator.Options{
		MaxConcurrentTasks: s.cfg.Orchestrator.Workers,
	}, s.logger)
	s.orc.Start(context.Background())

	// 3. 自动注册：环境变量凭据 + 可选的静态 agents 文件
	bootCfg := orchestrator.AutoBootstrapConfigFromEnv()
	if s.cfg.Providers.ClaudeFlowMCPEndpoint != "" {
		bootCfg.ClaudeFlowMCP = s.cfg.Providers.ClaudeFlowMCPEndpoint
	}
	s.orc.Bootstrap(context.Background(), bootCfg, limiters)

	if path := s.cfg.Orchestrator.AgentsFile; path != "" {
		if err := s.orc.BootstrapStatic(context.Background(), path, limiters); err != nil {
			return fmt.Errorf("failed to load static agents: %w", err)
		}
	}

	// 4. 控制 API
	handler := api.NewRouter(s.orc, limiters, s.logger)
	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.Port),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		s.orc.Stop()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("orchestrator server started",
		zap.Int("port", s.cfg.Server.Port),
		zap.Int("workers", s.cfg.Orchestrator.Workers),
	)
	return nil
}

// WaitForShutdown 阻塞直到收到退出信号，然后按序关闭 HTTP 与编排器。
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()
	s.orc.Stop()
}
