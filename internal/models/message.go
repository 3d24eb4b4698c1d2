package models

import (
	"time"
)

// 房間內 WebSocket 消息的類型
const (
	MessageTypeSync   = "sync"   // 播放狀態同步，房主指令生效後推送
	MessageTypeChat   = "chat"   // 參與者聊天消息，只轉發不落庫
	MessageTypeSystem = "system" // 系統通知，如加入、離開房間
)

// RoomMessage 代表一條通過 WebSocket 傳遞的房間消息
type RoomMessage struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	UserID    uint      `json:"user_id,omitempty"`
	RoomID    uint      `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
	// 播放狀態快照，只在 sync 消息中存在
	Sync *PlaybackState `json:"sync,omitempty"`
}

// PlaybackState 是推送給觀察者的播放狀態快照
// 只記錄瞬時位置，播放中的客戶端根據自己的時鐘外推經過的時間
type PlaybackState struct {
	Episode    int   `json:"episode"`
	PositionMs int64 `json:"position_ms"`
	IsPlaying  bool  `json:"is_playing"`
}

// NewChatMessage 創建一條新的聊天消息
func NewChatMessage(userID, roomID uint, content string) RoomMessage {
	return RoomMessage{
		Type:      MessageTypeChat,
		Content:   content,
		UserID:    userID,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage 創建一條新的系統消息
func NewSystemMessage(roomID uint, content string) RoomMessage {
	return RoomMessage{
		Type:      MessageTypeSystem,
		Content:   content,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
}

// NewSyncMessage 創建一條播放狀態同步消息
func NewSyncMessage(room *WatchRoom) RoomMessage {
	return RoomMessage{
		Type:      MessageTypeSync,
		RoomID:    room.ID,
		Timestamp: time.Now(),
		Sync: &PlaybackState{
			Episode:    room.Episode,
			PositionMs: room.PositionMs,
			IsPlaying:  room.IsPlaying,
		},
	}
}
