package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aniwatch_web/internal/repository"
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

// newTestPlayback 創建一個房主為用戶 1、用戶 2 已加入的房間
func newTestPlayback(t *testing.T) (*RoomService, *PlaybackService, string) {
	t.Helper()

	repo := repository.NewMemoryRoomRepository()
	wsManager := NewWebSocketManager()
	roomSvc := NewRoomService(repo, NewCodeAllocator(), wsManager)
	playbackSvc := NewPlaybackService(repo, wsManager)

	ctx := context.Background()
	room, err := roomSvc.CreateRoom(ctx, "Movie Night", 1, 42)
	require.NoError(t, err)
	_, err = roomSvc.JoinRoom(ctx, room.Code, 2)
	require.NoError(t, err)

	return roomSvc, playbackSvc, room.Code
}

func TestPlaybackNotHost(t *testing.T) {
	roomSvc, playbackSvc, code := newTestPlayback(t)
	ctx := context.Background()

	before, err := roomSvc.GetRoom(ctx, code)
	require.NoError(t, err)

	// 非房主的指令被拒絕
	_, err = playbackSvc.ApplyCommand(ctx, code, 2, PlaybackCommand{Action: ActionPlay})
	assert.ErrorIs(t, err, ErrNotHost)

	// 房間狀態沒有任何變化
	after, err := roomSvc.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPlaybackPlayKeepsPosition(t *testing.T) {
	_, playbackSvc, code := newTestPlayback(t)
	ctx := context.Background()

	_, err := playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionSeek, PositionMs: int64Ptr(5000)})
	require.NoError(t, err)

	// Play 只翻轉播放標誌，不改變位置
	room, err := playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionPlay})
	require.NoError(t, err)
	assert.True(t, room.IsPlaying)
	assert.Equal(t, int64(5000), room.PositionMs)
}

func TestPlaybackSeekThenPause(t *testing.T) {
	_, playbackSvc, code := newTestPlayback(t)
	ctx := context.Background()

	_, err := playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionPlay})
	require.NoError(t, err)

	_, err = playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionSeek, PositionMs: int64Ptr(120000)})
	require.NoError(t, err)

	// 暫停時位置凍結在房主提供的值
	room, err := playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionPause, PositionMs: int64Ptr(120000)})
	require.NoError(t, err)
	assert.Equal(t, int64(120000), room.PositionMs)
	assert.False(t, room.IsPlaying)
}

func TestPlaybackSetEpisodeResets(t *testing.T) {
	_, playbackSvc, code := newTestPlayback(t)
	ctx := context.Background()

	// 先進入播放中、位置不為零的狀態
	_, err := playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionSeek, PositionMs: int64Ptr(90000)})
	require.NoError(t, err)
	_, err = playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionPlay})
	require.NoError(t, err)

	// 切換集數：位置歸零，且新的一集不自動播放
	room, err := playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionSetEpisode, Episode: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, room.Episode)
	assert.Equal(t, int64(0), room.PositionMs)
	assert.False(t, room.IsPlaying)
}

func TestPlaybackClosedRoom(t *testing.T) {
	roomSvc, playbackSvc, code := newTestPlayback(t)
	ctx := context.Background()

	require.NoError(t, roomSvc.CloseRoom(ctx, code, 1))

	_, err := playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionPlay})
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestPlaybackUnknownRoom(t *testing.T) {
	_, playbackSvc, _ := newTestPlayback(t)
	ctx := context.Background()

	_, err := playbackSvc.ApplyCommand(ctx, "ZZZZZZ", 1, PlaybackCommand{Action: ActionPlay})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestPlaybackCommandValidate(t *testing.T) {
	_, playbackSvc, code := newTestPlayback(t)
	ctx := context.Background()

	cases := []PlaybackCommand{
		{Action: "rewind"},                                         // 未知動作
		{Action: ActionPause},                                      // 缺少位置
		{Action: ActionSeek, PositionMs: int64Ptr(-1)},             // 負的位置
		{Action: ActionSetEpisode},                                 // 缺少集數
		{Action: ActionSetEpisode, Episode: intPtr(0)},             // 集數從 1 開始
	}
	for _, cmd := range cases {
		_, err := playbackSvc.ApplyCommand(ctx, code, 1, cmd)
		assert.ErrorIs(t, err, ErrInvalidInput, "command %+v", cmd)
	}
}

func TestPlaybackAfterHostSuccession(t *testing.T) {
	roomSvc, playbackSvc, code := newTestPlayback(t)
	ctx := context.Background()

	// 原房主離開，用戶 2 被提升
	_, err := roomSvc.LeaveRoom(ctx, code, 1)
	require.NoError(t, err)

	// 新房主的指令生效
	room, err := playbackSvc.ApplyCommand(ctx, code, 2, PlaybackCommand{Action: ActionPlay})
	require.NoError(t, err)
	assert.True(t, room.IsPlaying)

	// 原房主不再有權限
	_, err = playbackSvc.ApplyCommand(ctx, code, 1, PlaybackCommand{Action: ActionPause, PositionMs: int64Ptr(0)})
	assert.ErrorIs(t, err, ErrNotHost)
}
