package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"aniwatch_web/internal/models"
)

// Client 代表一個 WebSocket 客戶端連接
type Client struct {
	Conn     *websocket.Conn          // WebSocket 連接
	UserID   uint                     // 用戶 ID
	RoomID   uint                     // 房間 ID
	SendChan chan *models.RoomMessage // 消息發送通道，永不關閉，併發的廣播可以安全寫入
	done     chan struct{}            // 連接關閉信號，通知 writePump 退出
}

// WebSocketManager 管理所有的 WebSocket 連接和消息傳遞
// 是播放同步的推送通道：房主指令生效後，新狀態通過這裡推送給
// 房間內所有客戶端，觀察者不需要輪詢
type WebSocketManager struct {
	clients    map[uint]map[*Client]bool // 兩層 map: roomID -> client -> bool
	clientsMux sync.RWMutex              // 用於保護 clients map 的讀寫鎖
}

// NewWebSocketManager 創建並初始化新的 WebSocket 管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[uint]map[*Client]bool),
	}
}

// HandleConnection 處理新的 WebSocket 連接請求，阻塞直到連接關閉
func (m *WebSocketManager) HandleConnection(conn *websocket.Conn, roomID, userID uint) {
	client := &Client{
		Conn:     conn,
		UserID:   userID,
		RoomID:   roomID,
		SendChan: make(chan *models.RoomMessage, 256), // 設置緩衝大小為 256 的消息通道
		done:     make(chan struct{}),
	}

	m.addClient(client)

	// 確保連接關閉時清理資源
	// SendChan 不關閉：廣播方可能已在移除前取得客戶端快照
	defer func() {
		m.removeClient(client)
		close(client.done)
		conn.Close()
	}()

	// 啟動讀寫處理
	go m.writePump(client)
	m.readPump(client)
}

// readPump 持續監聽並處理從客戶端接收的消息
// 只接受聊天消息並轉發給房間，播放指令不走這條路徑，
// 必須通過 HTTP 端點經過 PlaybackService 的權限檢查
func (m *WebSocketManager) readPump(client *Client) {
	client.Conn.SetReadLimit(4096) // 設置最大消息大小為 4KB
	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Warn("websocket unexpected close")
			}
			break
		}

		// 解析接收到的消息
		var msg models.RoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logrus.WithError(err).Warn("websocket message parse error")
			continue
		}

		// 只轉發聊天消息，其他類型由服務端生成
		if msg.Type != models.MessageTypeChat {
			continue
		}

		chat := models.NewChatMessage(client.UserID, client.RoomID, msg.Content)
		m.BroadcastToRoom(client.RoomID, &chat)
	}
}

// writePump 處理向客戶端發送消息的邏輯
func (m *WebSocketManager) writePump(client *Client) {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-client.SendChan:
			// 設置寫入超時
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// 獲取寫入器並發送消息
			w, err := client.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			// JSON 編碼
			messageBytes, err := json.Marshal(message)
			if err != nil {
				logrus.WithError(err).Warn("websocket message encoding error")
				continue
			}

			if _, err := w.Write(messageBytes); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// 發送心跳包
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastToRoom 向房間內的所有客戶端廣播消息
func (m *WebSocketManager) BroadcastToRoom(roomID uint, message *models.RoomMessage) {
	m.clientsMux.RLock()
	clients := make([]*Client, 0, len(m.clients[roomID]))
	for client := range m.clients[roomID] {
		clients = append(clients, client)
	}
	m.clientsMux.RUnlock()

	for _, client := range clients {
		select {
		case client.SendChan <- message:
			// 消息成功加入發送隊列
		default:
			// 客戶端消息隊列已滿，關閉連接
			m.removeClient(client)
			client.Conn.Close()
		}
	}
}

// BroadcastSync 把房間的播放狀態快照推送給房間內所有客戶端
func (m *WebSocketManager) BroadcastSync(room *models.WatchRoom) {
	msg := models.NewSyncMessage(room)
	m.BroadcastToRoom(room.ID, &msg)
}

// BroadcastSystemMessage 發送系統消息到指定房間
func (m *WebSocketManager) BroadcastSystemMessage(roomID uint, content string) {
	msg := models.NewSystemMessage(roomID, content)
	m.BroadcastToRoom(roomID, &msg)
}

// addClient 安全地添加新的客戶端連接
func (m *WebSocketManager) addClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if m.clients[client.RoomID] == nil {
		m.clients[client.RoomID] = make(map[*Client]bool)
	}
	m.clients[client.RoomID][client] = true
}

// removeClient 安全地移除客戶端連接
func (m *WebSocketManager) removeClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if clients, ok := m.clients[client.RoomID]; ok {
		delete(clients, client)
		// 如果房間空了，刪除房間
		if len(clients) == 0 {
			delete(m.clients, client.RoomID)
		}
	}
}

// GetRoomClients 獲取指定房間的在線客戶端數量
func (m *WebSocketManager) GetRoomClients(roomID uint) int {
	m.clientsMux.RLock()
	defer m.clientsMux.RUnlock()

	return len(m.clients[roomID])
}
