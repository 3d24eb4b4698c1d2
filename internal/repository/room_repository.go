package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"aniwatch_web/internal/models"
	"aniwatch_web/internal/storage"
)

// RoomRepository 定義一起看房間的持久化接口
// 所有組件都通過這個接口讀寫房間和參與者記錄。
// CreateRoom 和 AddParticipant 對各自的唯一約束是原子的，
// UpdateRoom 是單條 UPDATE 語句，是每個房間指令的唯一串行化點
type RoomRepository interface {
	// CreateRoom 創建房間，代碼衝突時返回 ErrDuplicateEntry
	CreateRoom(ctx context.Context, room *models.WatchRoom) error
	// FindRoomByCode 根據房間代碼查找房間
	FindRoomByCode(ctx context.Context, code string) (*models.WatchRoom, error)
	// FindRoomByID 根據房間 ID 查找房間
	FindRoomByID(ctx context.Context, id uint) (*models.WatchRoom, error)
	// UpdateRoom 原子地部分更新房間記錄
	UpdateRoom(ctx context.Context, id uint, patch map[string]interface{}) error
	// DeleteRoom 刪除房間記錄，只用於創建失敗時的回滾
	DeleteRoom(ctx context.Context, id uint) error
	// AddParticipant 添加參與者，重複加入時返回 ErrDuplicateEntry
	AddParticipant(ctx context.Context, roomID, userID uint) error
	// RemoveParticipant 移除參與者，返回是否確實移除了記錄
	RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	// ListParticipants 返回按加入時間排序的參與者名單快照
	ListParticipants(ctx context.Context, roomID uint) ([]models.RoomParticipant, error)
}

type roomRepository struct {
	db *storage.PostgresDB
}

func NewRoomRepository(db *storage.PostgresDB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) CreateRoom(ctx context.Context, room *models.WatchRoom) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("create room (code: %s): %w", room.Code, err)
	}
	return nil
}

func (r *roomRepository) FindRoomByCode(ctx context.Context, code string) (*models.WatchRoom, error) {
	var room models.WatchRoom
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room by code %q: %w", code, err)
	}
	return &room, nil
}

func (r *roomRepository) FindRoomByID(ctx context.Context, id uint) (*models.WatchRoom, error) {
	var room models.WatchRoom
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room by id %d: %w", id, err)
	}
	return &room, nil
}

func (r *roomRepository) UpdateRoom(ctx context.Context, id uint, patch map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.WatchRoom{}).Where("id = ?", id).Updates(patch)
	if result.Error != nil {
		return fmt.Errorf("update room %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *roomRepository) DeleteRoom(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.WatchRoom{}, id).Error
}

func (r *roomRepository) AddParticipant(ctx context.Context, roomID, userID uint) error {
	participant := models.RoomParticipant{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Create(&participant).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("add participant (room: %d, user: %d): %w", roomID, userID, err)
	}
	return nil
}

func (r *roomRepository) RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomParticipant{})
	if result.Error != nil {
		return false, fmt.Errorf("remove participant (room: %d, user: %d): %w", roomID, userID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *roomRepository) ListParticipants(ctx context.Context, roomID uint) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at asc").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("list participants (room: %d): %w", roomID, err)
	}
	return participants, nil
}

// isUniqueViolation 檢查是否為 PostgreSQL 的唯一約束錯誤 (23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
