package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aniwatch_web/internal/repository"
	"aniwatch_web/internal/service"
)

// setupTestRouter 構建一個使用內存存儲的測試路由
// 認證中間件被替換為從請求頭直接讀取用戶 ID 的樁
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRoomRepository()
	wsManager := service.NewWebSocketManager()
	roomSvc := service.NewRoomService(repo, service.NewCodeAllocator(), wsManager)
	playbackSvc := service.NewPlaybackService(repo, wsManager)
	roomHandler := NewRoomHandler(roomSvc, playbackSvc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		var userID uint
		fmt.Sscanf(c.GetHeader("X-Test-User"), "%d", &userID)
		c.Set("userID", userID)
	})

	rooms := r.Group("/api/rooms")
	rooms.POST("", roomHandler.CreateRoom)
	rooms.POST("/join", roomHandler.JoinRoom)
	rooms.GET("/:code", roomHandler.GetRoom)
	rooms.GET("/:code/participants", roomHandler.GetParticipants)
	rooms.POST("/:code/playback", roomHandler.ApplyPlayback)
	rooms.POST("/:code/leave", roomHandler.LeaveRoom)
	rooms.POST("/:code/close", roomHandler.CloseRoom)
	return r
}

func doRequest(r *gin.Engine, method, path string, userID uint, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", fmt.Sprintf("%d", userID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTestRoom(t *testing.T, r *gin.Engine, hostID uint) string {
	t.Helper()

	w := doRequest(r, "POST", "/api/rooms", hostID, `{"name": "Movie Night"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Code, 6)
	require.Equal(t, "Movie Night", resp.Name)
	return resp.Code
}

func TestCreateRoomEndpoint(t *testing.T) {
	r := setupTestRouter()

	code := createTestRoom(t, r, 1)

	// 創建者已經是參與者
	w := doRequest(r, "GET", "/api/rooms/"+code+"/participants", 1, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":1`)
}

func TestCreateRoomEndpointInvalidBody(t *testing.T) {
	r := setupTestRouter()

	w := doRequest(r, "POST", "/api/rooms", 1, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinRoomEndpoint(t *testing.T) {
	r := setupTestRouter()
	code := createTestRoom(t, r, 1)

	w := doRequest(r, "POST", "/api/rooms/join", 2, fmt.Sprintf(`{"code": %q}`, code))
	assert.Equal(t, http.StatusOK, w.Code)

	var view service.RoomView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, code, view.Code)
	assert.Equal(t, 1, view.Episode)
	assert.False(t, view.IsPlaying)

	// 未知代碼
	w = doRequest(r, "POST", "/api/rooms/join", 2, `{"code": "ZZZZZZ"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 格式錯誤的代碼
	w = doRequest(r, "POST", "/api/rooms/join", 2, `{"code": "ab"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaybackEndpointAuthority(t *testing.T) {
	r := setupTestRouter()
	code := createTestRoom(t, r, 1)

	w := doRequest(r, "POST", "/api/rooms/join", 2, fmt.Sprintf(`{"code": %q}`, code))
	require.Equal(t, http.StatusOK, w.Code)

	// 非房主的播放指令返回 403
	w = doRequest(r, "POST", "/api/rooms/"+code+"/playback", 2, `{"action": "play"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 房主的指令生效
	w = doRequest(r, "POST", "/api/rooms/"+code+"/playback", 1, `{"action": "seek", "position_ms": 120000}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var view service.RoomView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, int64(120000), view.PositionMs)
}

func TestCloseRoomEndpoint(t *testing.T) {
	r := setupTestRouter()
	code := createTestRoom(t, r, 1)

	w := doRequest(r, "POST", "/api/rooms/"+code+"/close", 1, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 已關閉的房間返回 410，與 404 區分
	w = doRequest(r, "GET", "/api/rooms/"+code, 1, "")
	assert.Equal(t, http.StatusGone, w.Code)

	w = doRequest(r, "POST", "/api/rooms/join", 3, fmt.Sprintf(`{"code": %q}`, code))
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestEndpointsWithoutAuthContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRoomRepository()
	wsManager := service.NewWebSocketManager()
	roomSvc := service.NewRoomService(repo, service.NewCodeAllocator(), wsManager)
	playbackSvc := service.NewPlaybackService(repo, wsManager)
	roomHandler := NewRoomHandler(roomSvc, playbackSvc)

	// 路由掛載時沒有認證中間件，上下文中沒有用戶 ID
	// handler 返回 401 而不是 panic
	r := gin.New()
	r.POST("/api/rooms", roomHandler.CreateRoom)
	r.POST("/api/rooms/:code/leave", roomHandler.LeaveRoom)

	req, _ := http.NewRequest("POST", "/api/rooms", bytes.NewBufferString(`{"name": "Movie Night"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ = http.NewRequest("POST", "/api/rooms/AAAAAA/leave", bytes.NewBuffer(nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLeaveRoomEndpoint(t *testing.T) {
	r := setupTestRouter()
	code := createTestRoom(t, r, 1)

	w := doRequest(r, "POST", "/api/rooms/join", 2, fmt.Sprintf(`{"code": %q}`, code))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "POST", "/api/rooms/"+code+"/leave", 2, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":true`)
}
