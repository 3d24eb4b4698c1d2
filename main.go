package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"aniwatch_web/internal/api"
	"aniwatch_web/internal/config"
	"aniwatch_web/internal/models"
	"aniwatch_web/internal/repository"
	"aniwatch_web/internal/service"
	"aniwatch_web/internal/storage"
)

func main() {
	// 載入應用程式配置
	// 從配置文件中讀取設置，如數據庫連接信息和服務器地址等
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// 初始化資料庫連接
	// 使用配置中的信息建立到 PostgreSQL 數據庫的連接
	db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	// 確保在程序結束時關閉數據庫連接
	defer db.Close()

	// 初始化 Redis 連接，用於請求限流
	redisClient, err := storage.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
	if err != nil {
		logrus.Fatalf("Failed to initialize redis: %v", err)
	}
	defer redisClient.Close()

	// 自動遷移資料庫結構
	// 根據定義的模型自動創建或更新數據庫表結構
	if err := db.AutoMigrate(&models.User{}, &models.WatchRoom{}, &models.RoomParticipant{}); err != nil {
		logrus.Fatalf("Failed to auto migrate database: %v", err)
	}

	// 初始化 repositories
	repos := repository.NewRepositories(db)

	// 初始化 services
	services := service.NewServices(repos)

	// 設置 Gin 路由
	r := gin.Default()
	api.SetupRoutes(r, services, redisClient)

	// 啟動伺服器
	// 使用配置中指定的地址啟動 HTTP 服務器
	if err := r.Run(cfg.Server.Address); err != nil {
		logrus.Fatalf("Failed to run server: %v", err)
	}
}
