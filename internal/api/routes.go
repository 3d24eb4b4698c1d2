package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"aniwatch_web/internal/api/handlers"
	"aniwatch_web/internal/middleware"
	"aniwatch_web/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services, redisClient *redis.Client) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.UserService)
	roomHandler := handlers.NewRoomHandler(services.RoomService, services.PlaybackService)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocketManager, services.RoomService)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 一起看房間相關
		rooms := authorized.Group("/rooms")
		{
			// 創建房間會消耗代碼空間，單獨限流
			rooms.POST("", middleware.RateLimit(redisClient, 5), roomHandler.CreateRoom) // 創建房間
			rooms.POST("/join", roomHandler.JoinRoom)                                    // 通過代碼加入房間

			rooms.GET("/:code", roomHandler.GetRoom)                       // 獲取房間信息
			rooms.GET("/:code/participants", roomHandler.GetParticipants)  // 獲取參與者名單

			// 播放控制，只有房主的指令會生效
			rooms.POST("/:code/playback", roomHandler.ApplyPlayback)

			rooms.POST("/:code/leave", roomHandler.LeaveRoom) // 離開房間
			rooms.POST("/:code/close", roomHandler.CloseRoom) // 房主關閉房間

			// WebSocket 連接點，推送播放同步和聊天消息
			rooms.GET("/:code/ws", wsHandler.HandleWebSocket)
		}
	}
}
