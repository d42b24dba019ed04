package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/controller"
	"github.com/dingzu/dramagic/dao/mysql"
	"github.com/dingzu/dramagic/dao/store"
	"github.com/dingzu/dramagic/logic"
	"github.com/dingzu/dramagic/pkg/oss"
	"github.com/dingzu/dramagic/pkg/provider"
	"github.com/dingzu/dramagic/pkg/sse"
)

func main() {
	// .env 不存在时忽略错误，生产环境直接走真环境变量
	_ = godotenv.Load()
	cfg := config.Load()

	logger := initLogger(cfg.AppEnv)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db, err := mysql.Init(cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("init mysql failed", zap.Error(err))
	}
	defer db.Close()

	// redis 只做状态短缓存，连不上降级为直查上游
	var statusCache *store.StatusCache
	if rdb, err := store.Init(cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, status cache disabled", zap.Error(err))
	} else {
		statusCache = store.NewStatusCache(rdb, logger)
		defer rdb.Close()
	}

	// 对象存储未配置时转存能力整体降级，任务流程不受影响
	var ossClient *oss.Client
	var rehoster logic.Rehoster
	if cfg.OSS.Configured() {
		client, err := oss.New(cfg.OSS, logger)
		if err != nil {
			logger.Fatal("init oss failed", zap.Error(err))
		}
		if err := client.EnsureBucket(context.Background()); err != nil {
			logger.Fatal("ensure bucket failed", zap.Error(err))
		}
		ossClient = client
		rehoster = oss.NewRehoster(client, logger)
	} else {
		logger.Warn("oss not configured, video rehosting disabled")
	}

	sseHub := sse.NewHub()
	go sseHub.Run()

	creds := provider.NewCredentials(cfg)
	registry := provider.NewRegistry(
		provider.NewComfly(cfg, creds),
		provider.NewToapis(cfg, creds),
		provider.NewArk(cfg, creds),
	)

	taskStore := mysql.NewTaskStore(db)
	projectStore := mysql.NewProjectStore(db)
	videoSvc := logic.NewVideoService(taskStore, registry, creds, rehoster, statusCache, sseHub, logger)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	videoCtrl := controller.NewVideoController(videoSvc)
	pricingCtrl := controller.NewPricingController()
	ossCtrl := controller.NewOSSController(ossClient)
	projectCtrl := controller.NewProjectController(projectStore, sseHub)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/events", sse.ServeSSE(sseHub))

	api := r.Group("/api/v1")
	api.Use(controller.AdminAuth(cfg.AdminToken))
	{
		api.POST("/video/submit", videoCtrl.SubmitVideoTask)
		api.GET("/video/status/:source_task_id", videoCtrl.GetSourceStatus)
		api.POST("/video/poll/:id", videoCtrl.PollVideoTask)
		api.POST("/video/save", videoCtrl.SaveVideo)
		api.POST("/video/tasks", videoCtrl.CreateVideoTask)
		api.GET("/video/tasks", videoCtrl.ListVideoTasks)
		api.GET("/video/tasks/:id", videoCtrl.GetVideoTask)
		api.PUT("/video/tasks/:id", videoCtrl.UpdateVideoTask)

		api.GET("/pricing", pricingCtrl.ListPricing)
		api.GET("/pricing/cost", pricingCtrl.ComputeCost)

		api.GET("/oss/status", ossCtrl.Status)
		api.GET("/oss/files", ossCtrl.Files)
		api.GET("/oss/sign", ossCtrl.Sign)

		api.POST("/projects", projectCtrl.CreateProject)
		api.GET("/projects", projectCtrl.ListProjects)
		api.GET("/projects/:id", projectCtrl.GetProject)
		api.PUT("/projects/:id/canvas", projectCtrl.UpdateCanvas)
	}

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func initLogger(appEnv string) *zap.Logger {
	if appEnv == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
