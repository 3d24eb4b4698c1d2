package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"aniwatch_web/internal/models"
	"aniwatch_web/internal/repository"
)

// 代碼碰撞時的最大重試次數
// 達到上限說明代碼空間或負載配置有問題，返回 ErrAllocationExhausted 並記錄告警
const maxCreateAttempts = 10

// RoomView 是返回給調用方的房間視圖
type RoomView struct {
	ID         uint   `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	HostID     uint   `json:"host_id"`
	AnimeID    uint   `json:"anime_id,omitempty"`
	Episode    int    `json:"episode"`
	PositionMs int64  `json:"position_ms"`
	IsPlaying  bool   `json:"is_playing"`
	IsActive   bool   `json:"is_active"`
}

// ParticipantView 是名單中的一個參與者
type ParticipantView struct {
	UserID   uint   `json:"user_id"`
	JoinedAt string `json:"joined_at"`
}

// RoomService 負責房間的生命週期和成員管理
// 房主離開時的策略：提升最早加入的剩餘參與者為新房主，
// 沒有剩餘參與者時才關閉房間
type RoomService struct {
	roomRepo  repository.RoomRepository
	allocator CodeAllocator
	wsManager *WebSocketManager
}

func NewRoomService(roomRepo repository.RoomRepository, allocator CodeAllocator, wsManager *WebSocketManager) *RoomService {
	return &RoomService{
		roomRepo:  roomRepo,
		allocator: allocator,
		wsManager: wsManager,
	}
}

// CreateRoom 創建房間並自動將房主加入為參與者
// 代碼由分配器隨機生成，唯一性通過存儲層的唯一約束確認，
// 衝突時重新分配，最多重試 maxCreateAttempts 次。
// 房主加入失敗時整個創建回滾，調用方不會觀察到沒有房主成員的房間
func (s *RoomService) CreateRoom(ctx context.Context, name string, hostID uint, animeID uint) (*RoomView, error) {
	name = strings.TrimSpace(name)
	if name == "" || hostID == 0 {
		return nil, ErrInvalidInput
	}

	logCtx := logrus.WithFields(logrus.Fields{"host_id": hostID, "room_name": name})

	var room *models.WatchRoom
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > maxCreateAttempts {
			logCtx.Errorf("room code allocation exhausted after %d attempts", maxCreateAttempts)
			return nil, ErrAllocationExhausted
		}

		room = &models.WatchRoom{
			Code:     s.allocator.Allocate(),
			Name:     name,
			HostID:   hostID,
			AnimeID:  animeID,
			Episode:  1,
			IsActive: true,
		}

		err := s.roomRepo.CreateRoom(ctx, room)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 代碼碰撞，重新分配
			logCtx.WithField("room_code", room.Code).Warnf("room code collision, retrying (attempt %d)", attempt)
			continue
		}
		return nil, fmt.Errorf("create room: %w", err)
	}

	// 自動將房主加入為參與者，失敗時回滾整個創建
	if err := s.roomRepo.AddParticipant(ctx, room.ID, hostID); err != nil {
		if rollbackErr := s.roomRepo.DeleteRoom(ctx, room.ID); rollbackErr != nil {
			logCtx.WithError(rollbackErr).Error("failed to roll back room after host admission failure")
		}
		return nil, fmt.Errorf("admit host to room: %w", err)
	}

	logCtx.WithField("room_code", room.Code).Info("room created")
	return s.toView(room), nil
}

// JoinRoom 通過房間代碼加入房間
// 同一用戶重複加入視為無害的空操作，返回當前房間視圖，名單不變
func (s *RoomService) JoinRoom(ctx context.Context, code string, userID uint) (*RoomView, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	room, err := resolveActiveRoom(ctx, s.roomRepo, code)
	if err != nil {
		return nil, err
	}

	err = s.roomRepo.AddParticipant(ctx, room.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 冪等吸收：重複加入不視為失敗
			return s.toView(room), nil
		}
		return nil, fmt.Errorf("join room: %w", err)
	}

	s.wsManager.BroadcastSystemMessage(room.ID, fmt.Sprintf("用戶 %d 加入房間", userID))
	return s.toView(room), nil
}

// LeaveRoom 離開房間，返回是否確實移除了參與者
// 房主離開時先完成繼任（提升最早加入的其他參與者）或關閉房間，
// 成功後才移除房主，房主在任何中間狀態下都仍然是參與者
func (s *RoomService) LeaveRoom(ctx context.Context, code string, userID uint) (bool, error) {
	if userID == 0 {
		return false, ErrInvalidInput
	}

	room, err := findRoom(ctx, s.roomRepo, code)
	if err != nil {
		return false, err
	}

	if room.IsActive && userID == room.HostID {
		return s.removeHost(ctx, room)
	}

	removed, err := s.roomRepo.RemoveParticipant(ctx, room.ID, userID)
	if err != nil {
		return false, fmt.Errorf("leave room: %w", err)
	}
	if removed {
		s.wsManager.BroadcastSystemMessage(room.ID, fmt.Sprintf("用戶 %d 離開房間", userID))
	}
	return removed, nil
}

// CloseRoom 由房主顯式關閉房間
// 關閉是終態：記錄保留但不再可加入，播放狀態不再可修改
func (s *RoomService) CloseRoom(ctx context.Context, code string, issuerID uint) error {
	room, err := resolveActiveRoom(ctx, s.roomRepo, code)
	if err != nil {
		return err
	}
	if issuerID != room.HostID {
		return ErrNotHost
	}
	return s.closeRoom(ctx, room)
}

// GetRoom 根據代碼查詢房間視圖
func (s *RoomService) GetRoom(ctx context.Context, code string) (*RoomView, error) {
	room, err := resolveActiveRoom(ctx, s.roomRepo, code)
	if err != nil {
		return nil, err
	}
	return s.toView(room), nil
}

// Participants 返回按加入時間排序的參與者名單
func (s *RoomService) Participants(ctx context.Context, code string) ([]ParticipantView, error) {
	room, err := resolveActiveRoom(ctx, s.roomRepo, code)
	if err != nil {
		return nil, err
	}

	participants, err := s.roomRepo.ListParticipants(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, ParticipantView{
			UserID:   p.UserID,
			JoinedAt: p.JoinedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views, nil
}

// IsParticipant 檢查用戶是否為房間的參與者，供 WebSocket 握手使用
func (s *RoomService) IsParticipant(ctx context.Context, code string, userID uint) (uint, bool, error) {
	room, err := resolveActiveRoom(ctx, s.roomRepo, code)
	if err != nil {
		return 0, false, err
	}

	participants, err := s.roomRepo.ListParticipants(ctx, room.ID)
	if err != nil {
		return 0, false, err
	}
	for _, p := range participants {
		if p.UserID == userID {
			return room.ID, true, nil
		}
	}
	return room.ID, false, nil
}

// removeHost 處理房主離開一個開放的房間
// 繼任（或關閉）先生效，房主的成員記錄最後移除：
// 繼任失敗時房主仍然是參與者，房主永遠不會指向名單外的用戶
func (s *RoomService) removeHost(ctx context.Context, room *models.WatchRoom) (bool, error) {
	participants, err := s.roomRepo.ListParticipants(ctx, room.ID)
	if err != nil {
		return false, fmt.Errorf("host succession: %w", err)
	}

	hostPresent := false
	var successorID uint
	for _, p := range participants {
		switch {
		case p.UserID == room.HostID:
			hostPresent = true
		case successorID == 0:
			// 名單按加入時間排序，第一個非房主成員就是繼任者
			successorID = p.UserID
		}
	}
	if !hostPresent {
		return false, nil
	}

	if successorID != 0 {
		if err := s.roomRepo.UpdateRoom(ctx, room.ID, map[string]interface{}{"host_id": successorID}); err != nil {
			return false, fmt.Errorf("promote new host: %w", err)
		}
		logrus.WithFields(logrus.Fields{"room_code": room.Code, "new_host_id": successorID}).Info("host left, promoted earliest participant")
		s.wsManager.BroadcastSystemMessage(room.ID, fmt.Sprintf("用戶 %d 成為新房主", successorID))
	} else if err := s.closeRoom(ctx, room); err != nil {
		return false, err
	}

	removed, err := s.roomRepo.RemoveParticipant(ctx, room.ID, room.HostID)
	if err != nil {
		return removed, fmt.Errorf("leave room: %w", err)
	}
	if removed {
		s.wsManager.BroadcastSystemMessage(room.ID, fmt.Sprintf("用戶 %d 離開房間", room.HostID))
	}
	return removed, nil
}

func (s *RoomService) closeRoom(ctx context.Context, room *models.WatchRoom) error {
	err := s.roomRepo.UpdateRoom(ctx, room.ID, map[string]interface{}{
		"is_active":  false,
		"is_playing": false,
	})
	if err != nil {
		return fmt.Errorf("close room: %w", err)
	}

	logrus.WithField("room_code", room.Code).Info("room closed")
	s.wsManager.BroadcastSystemMessage(room.ID, "房間已關閉")
	return nil
}

// findRoom 規範化並驗證房間代碼後查找房間，不檢查房間是否仍然開放
func findRoom(ctx context.Context, repo repository.RoomRepository, code string) (*models.WatchRoom, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	room, err := repo.FindRoomByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return room, nil
}

// resolveActiveRoom 查找房間並要求房間仍然開放
// 已關閉的房間返回 ErrRoomClosed，與 ErrRoomNotFound 區分
func resolveActiveRoom(ctx context.Context, repo repository.RoomRepository, code string) (*models.WatchRoom, error) {
	room, err := findRoom(ctx, repo, code)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomClosed
	}
	return room, nil
}

// NormalizeCode 將用戶輸入的房間代碼規範化為大寫，並驗證格式
// 格式錯誤在觸達存儲層之前被拒絕
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return "", ErrInvalidInput
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return "", ErrInvalidInput
		}
	}
	return code, nil
}

func (s *RoomService) toView(room *models.WatchRoom) *RoomView {
	return &RoomView{
		ID:         room.ID,
		Code:       room.Code,
		Name:       room.Name,
		HostID:     room.HostID,
		AnimeID:    room.AnimeID,
		Episode:    room.Episode,
		PositionMs: room.PositionMs,
		IsPlaying:  room.IsPlaying,
		IsActive:   room.IsActive,
	}
}
