package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"aniwatch_web/internal/models"
)

// memoryRoomRepository 是 RoomRepository 的內存實現
// 用於測試和不依賴 PostgreSQL 的場景，
// 通過互斥鎖提供與數據庫唯一約束相同的原子性保證
type memoryRoomRepository struct {
	mu           sync.RWMutex
	rooms        map[uint]*models.WatchRoom
	codeIndex    map[string]uint                     // code -> roomID
	participants map[uint]map[uint]*memberRecord     // roomID -> userID -> record
	nextRoomID   uint
	nextSeq      uint64
}

// memberRecord 記錄加入時間和加入順序，保證名單排序穩定
type memberRecord struct {
	joinedAt time.Time
	seq      uint64
}

func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoomRepository{
		rooms:        make(map[uint]*models.WatchRoom),
		codeIndex:    make(map[string]uint),
		participants: make(map[uint]map[uint]*memberRecord),
	}
}

func (r *memoryRoomRepository) CreateRoom(ctx context.Context, room *models.WatchRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codeIndex[room.Code]; exists {
		return ErrDuplicateEntry
	}

	r.nextRoomID++
	room.ID = r.nextRoomID
	room.CreatedAt = time.Now()

	stored := *room
	r.rooms[room.ID] = &stored
	r.codeIndex[room.Code] = room.ID
	return nil
}

func (r *memoryRoomRepository) FindRoomByCode(ctx context.Context, code string) (*models.WatchRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.codeIndex[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	copied := *r.rooms[id]
	return &copied, nil
}

func (r *memoryRoomRepository) FindRoomByID(ctx context.Context, id uint) (*models.WatchRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}

func (r *memoryRoomRepository) UpdateRoom(ctx context.Context, id uint, patch map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}

	// patch 的鍵與數據庫列名保持一致
	for key, value := range patch {
		switch key {
		case "name":
			room.Name = value.(string)
		case "host_id":
			room.HostID = value.(uint)
		case "anime_id":
			room.AnimeID = value.(uint)
		case "episode":
			room.Episode = value.(int)
		case "position_ms":
			room.PositionMs = value.(int64)
		case "is_playing":
			room.IsPlaying = value.(bool)
		case "is_active":
			room.IsActive = value.(bool)
		}
	}
	room.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRoomRepository) DeleteRoom(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil
	}
	delete(r.codeIndex, room.Code)
	delete(r.rooms, id)
	delete(r.participants, id)
	return nil
}

func (r *memoryRoomRepository) AddParticipant(ctx context.Context, roomID, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.participants[roomID] == nil {
		r.participants[roomID] = make(map[uint]*memberRecord)
	}
	if _, exists := r.participants[roomID][userID]; exists {
		return ErrDuplicateEntry
	}

	r.nextSeq++
	r.participants[roomID][userID] = &memberRecord{
		joinedAt: time.Now(),
		seq:      r.nextSeq,
	}
	return nil
}

func (r *memoryRoomRepository) RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.participants[roomID]
	if !ok {
		return false, nil
	}
	if _, exists := members[userID]; !exists {
		return false, nil
	}
	delete(members, userID)
	return true, nil
}

func (r *memoryRoomRepository) ListParticipants(ctx context.Context, roomID uint) ([]models.RoomParticipant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.participants[roomID]
	type entry struct {
		userID uint
		record *memberRecord
	}
	entries := make([]entry, 0, len(members))
	for userID, record := range members {
		entries = append(entries, entry{userID: userID, record: record})
	}
	// 按加入順序排序，返回的是快照
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].record.seq < entries[j].record.seq
	})

	participants := make([]models.RoomParticipant, 0, len(entries))
	for _, e := range entries {
		participants = append(participants, models.RoomParticipant{
			RoomID:   roomID,
			UserID:   e.userID,
			JoinedAt: e.record.joinedAt,
		})
	}
	return participants, nil
}
