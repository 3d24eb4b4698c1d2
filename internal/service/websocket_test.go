package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"aniwatch_web/internal/models"
)

func TestBroadcastDuringDisconnect(t *testing.T) {
	m := NewWebSocketManager()
	client := &Client{
		UserID:   1,
		RoomID:   1,
		SendChan: make(chan *models.RoomMessage, 256),
		done:     make(chan struct{}),
	}
	m.addClient(client)

	// 廣播方可能在客戶端被移除前取得快照，
	// 斷開過程中的併發廣播不能觸發 panic
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			m.BroadcastSystemMessage(1, "tick")
		}
	}()

	m.removeClient(client)
	close(client.done)
	wg.Wait()

	assert.Equal(t, 0, m.GetRoomClients(1))
}

func TestRemoveClientDropsEmptyRoom(t *testing.T) {
	m := NewWebSocketManager()
	a := &Client{UserID: 1, RoomID: 7, SendChan: make(chan *models.RoomMessage, 1), done: make(chan struct{})}
	b := &Client{UserID: 2, RoomID: 7, SendChan: make(chan *models.RoomMessage, 1), done: make(chan struct{})}

	m.addClient(a)
	m.addClient(b)
	assert.Equal(t, 2, m.GetRoomClients(7))

	m.removeClient(a)
	assert.Equal(t, 1, m.GetRoomClients(7))

	// 重複移除是無害的
	m.removeClient(a)
	assert.Equal(t, 1, m.GetRoomClients(7))

	m.removeClient(b)
	assert.Equal(t, 0, m.GetRoomClients(7))
}
