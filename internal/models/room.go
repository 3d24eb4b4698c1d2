package models

import (
	"time"

	"gorm.io/gorm"
)

// WatchRoom 表示一個一起看房間
// 播放狀態（Episode、PositionMs、IsPlaying）只由房主修改，
// 其他參與者只能讀取同一份記錄
type WatchRoom struct {
	gorm.Model
	Code       string `gorm:"uniqueIndex;not null"` // 房間代碼，全局唯一，用於加入房間
	Name       string `gorm:"not null"`
	HostID     uint   `gorm:"not null"` // 房主的用戶 ID，任何時刻只有一個
	AnimeID    uint   // 正在觀看的動畫 ID，可選，只作為外部目錄的引用
	Episode    int    `gorm:"default:1"` // 當前集數，從 1 開始
	PositionMs int64  // 播放位置（毫秒）
	IsPlaying  bool   // 是否正在播放
	IsActive   bool   `gorm:"default:true"` // 房間是否可加入，關閉後保留記錄不刪除
}

// RoomParticipant 表示房間的一個參與者
// (RoomID, UserID) 組合唯一，同一用戶不會重複出現在名單中
type RoomParticipant struct {
	gorm.Model
	RoomID   uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"room_id"`
	UserID   uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}
