package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aniwatch_web/internal/service"
)

// RoomHandler 處理與一起看房間相關的請求
type RoomHandler struct {
	roomService     *service.RoomService
	playbackService *service.PlaybackService
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService, playbackService *service.PlaybackService) *RoomHandler {
	return &RoomHandler{
		roomService:     roomService,
		playbackService: playbackService,
	}
}

// currentUserID 讀取認證中間件設置的用戶 ID
// 上下文中沒有用戶時已寫入 401 響應，調用方直接返回即可
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	userID, ok := value.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return userID, true
}

// CreateRoom 處理創建新房間的請求
// 創建者自動成為房主和第一個參與者
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input struct {
		Name    string `json:"name" binding:"required"`
		AnimeID uint   `json:"anime_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的請求內容"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), input.Name, userID, input.AnimeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"code": room.Code, "name": room.Name})
}

// JoinRoom 處理通過房間代碼加入房間的請求
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的請求內容"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), input.Code, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// GetRoom 處理獲取房間訊息的請求
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// GetParticipants 處理獲取參與者名單的請求，按加入時間排序
func (h *RoomHandler) GetParticipants(c *gin.Context) {
	participants, err := h.roomService.Participants(c.Request.Context(), c.Param("code"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// ApplyPlayback 處理房主的播放指令
// 權限檢查在 PlaybackService 中完成，這裡只做請求解析
func (h *RoomHandler) ApplyPlayback(c *gin.Context) {
	var cmd service.PlaybackCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的請求內容"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	room, err := h.playbackService.ApplyCommand(c.Request.Context(), c.Param("code"), userID, cmd)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// LeaveRoom 處理離開房間的請求
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	removed, err := h.roomService.LeaveRoom(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// CloseRoom 處理房主關閉房間的請求
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.roomService.CloseRoom(c.Request.Context(), c.Param("code"), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "房間已關閉"})
}
