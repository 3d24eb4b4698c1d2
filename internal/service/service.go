package service

import (
	"aniwatch_web/internal/repository"
)

type Services struct {
	UserService      *UserService
	RoomService      *RoomService
	PlaybackService  *PlaybackService
	WebSocketManager *WebSocketManager
}

func NewServices(repos *repository.Repositories) *Services {
	wsManager := NewWebSocketManager()
	allocator := NewCodeAllocator()

	userService := NewUserService(repos.User)
	roomService := NewRoomService(repos.Room, allocator, wsManager)
	playbackService := NewPlaybackService(repos.Room, wsManager)
	return &Services{
		UserService:      userService,
		RoomService:      roomService,
		PlaybackService:  playbackService,
		WebSocketManager: wsManager,
	}
}
