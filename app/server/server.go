package server

import (
	"context"
	"net/http"

	"vtt-fusion/app/config"
	"vtt-fusion/app/database"
	"vtt-fusion/app/filewatcher"
	"vtt-fusion/app/handler"
	"vtt-fusion/app/logger"
	"vtt-fusion/app/service"
	"vtt-fusion/app/storage"
	"vtt-fusion/app/transcriber"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config    *config.Config
	Logger    *logger.Logger
	gin       *gin.Engine
	http      *http.Server
	batchSvc  *service.BatchService
	scheduler *service.Scheduler
	watcher   *filewatcher.Watcher
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	// 显式构造存储网关与转写后端，注入批量服务
	gateway, err := storage.NewS3Storage(context.Background(), cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	tr, err := transcriber.NewFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	batchSvc := service.NewBatchService(cfg, log, gateway, tr)

	router := gin.Default()

	s := &Server{
		Config: cfg,
		Logger: log,
		gin:    router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		batchSvc:  batchSvc,
		scheduler: service.NewScheduler(batchSvc, log),
		watcher:   filewatcher.New(cfg, log, tr),
	}

	// 设置路由
	s.setupRoutes()

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动定时批量转写
	if err := s.scheduler.Start(s.Config.Batch.Schedule); err != nil {
		return err
	}

	// 启动本地收件目录监控
	if err := s.watcher.Start(); err != nil {
		return err
	}

	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// 停止定时触发与本地监控
	s.scheduler.Stop()
	s.watcher.Stop()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	// 创建处理器实例
	batchHandler := handler.NewBatchHandler(s.Logger, s.batchSvc)
	runsHandler := handler.NewRunsHandler(s.Logger)

	// 批量转写触发入口
	s.gin.POST("/batch-generate-vtt", batchHandler.GenerateVTT)

	// 健康检查
	s.gin.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API路由组
	api := s.gin.Group("/api")
	{
		// 运行历史相关路由
		runs := api.Group("/runs")
		{
			runs.GET("/", runsHandler.GetRuns)
			runs.GET("/:run_id", runsHandler.GetRun)
		}
	}
}
