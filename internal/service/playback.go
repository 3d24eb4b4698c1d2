package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"aniwatch_web/internal/repository"
)

// 播放指令的動作類型
const (
	ActionPlay       = "play"        // 開始播放，不改變播放位置
	ActionPause      = "pause"       // 暫停，位置凍結在房主提供的值
	ActionSeek       = "seek"        // 跳轉到指定位置，不改變播放狀態
	ActionSetEpisode = "set_episode" // 切換集數，位置歸零且不自動播放
)

// PlaybackCommand 是房主發出的播放指令
// 強類型結構，無效的組合在觸達存儲層之前被拒絕
type PlaybackCommand struct {
	Action     string `json:"action" binding:"required"`
	PositionMs *int64 `json:"position_ms,omitempty"`
	Episode    *int   `json:"episode,omitempty"`
}

// Validate 檢查指令的動作和負載是否匹配
func (c *PlaybackCommand) Validate() error {
	switch c.Action {
	case ActionPlay:
		return nil
	case ActionPause, ActionSeek:
		if c.PositionMs == nil || *c.PositionMs < 0 {
			return ErrInvalidInput
		}
		return nil
	case ActionSetEpisode:
		if c.Episode == nil || *c.Episode < 1 {
			return ErrInvalidInput
		}
		return nil
	default:
		return ErrInvalidInput
	}
}

// PlaybackService 將房主的播放指令寫入權威的房間記錄
// 權限模型：每個房間只有一個合法寫者（當前房主），
// 其他參與者是只讀觀察者，因此不需要合併邏輯。
// 房主身份檢查只在這裡做，傳輸層不重複檢查
type PlaybackService struct {
	roomRepo  repository.RoomRepository
	wsManager *WebSocketManager
}

func NewPlaybackService(roomRepo repository.RoomRepository, wsManager *WebSocketManager) *PlaybackService {
	return &PlaybackService{
		roomRepo:  roomRepo,
		wsManager: wsManager,
	}
}

// ApplyCommand 應用房主的播放指令並把新狀態推送給房間內的觀察者
// 所有修改通過存儲層的原子更新完成，兩條幾乎同時到達的房主指令
// 以全序生效，後應用者獲勝
func (s *PlaybackService) ApplyCommand(ctx context.Context, code string, issuerID uint, cmd PlaybackCommand) (*RoomView, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	room, err := resolveActiveRoom(ctx, s.roomRepo, code)
	if err != nil {
		return nil, err
	}

	// 唯一的權限檢查點：只有當前房主可以修改播放狀態
	if issuerID != room.HostID {
		return nil, ErrNotHost
	}

	patch := buildPatch(cmd)
	if err := s.roomRepo.UpdateRoom(ctx, room.ID, patch); err != nil {
		return nil, fmt.Errorf("apply playback command: %w", err)
	}

	// 重新讀取權威記錄，觀察者收到的是存儲層確認後的狀態
	updated, err := s.roomRepo.FindRoomByID(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("reload room after command: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"room_code": updated.Code,
		"host_id":   issuerID,
		"action":    cmd.Action,
	}).Debug("playback command applied")

	s.wsManager.BroadcastSync(updated)

	view := RoomView{
		ID:         updated.ID,
		Code:       updated.Code,
		Name:       updated.Name,
		HostID:     updated.HostID,
		AnimeID:    updated.AnimeID,
		Episode:    updated.Episode,
		PositionMs: updated.PositionMs,
		IsPlaying:  updated.IsPlaying,
		IsActive:   updated.IsActive,
	}
	return &view, nil
}

// buildPatch 把指令轉換為原子更新的字段集合
// Play 只翻轉播放標誌，位置由客戶端根據自己的時鐘外推；
// Pause 把位置凍結在房主暫停時提供的值；
// Seek 無論播放與否都直接設置位置；
// SetEpisode 切換集數並歸零位置，新的一集不會自動開始播放
func buildPatch(cmd PlaybackCommand) map[string]interface{} {
	switch cmd.Action {
	case ActionPlay:
		return map[string]interface{}{"is_playing": true}
	case ActionPause:
		return map[string]interface{}{"is_playing": false, "position_ms": *cmd.PositionMs}
	case ActionSeek:
		return map[string]interface{}{"position_ms": *cmd.PositionMs}
	default: // ActionSetEpisode，Validate 已排除其他值
		return map[string]interface{}{"episode": *cmd.Episode, "position_ms": int64(0), "is_playing": false}
	}
}
