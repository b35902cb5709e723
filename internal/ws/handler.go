package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"talktolisten/backend/internal/models"
	"talktolisten/backend/internal/voice"
	"talktolisten/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB

	// Buffered inbound chunks per connection. Clients stream sub-second
	// chunks; the consumer drains them in arrival order.
	chunkQueueSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// ChatResolver loads a chat so the connection can be bound to its bot and
// checked against the authenticated user.
type ChatResolver interface {
	GetChat(id uint) (*models.Chat, error)
}

// Message is the envelope for every frame exchanged with the client.
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// inboundChunk is one client audio chunk queued for the pipeline.
type inboundChunk struct {
	data   []byte
	format string
}

type Client struct {
	ID     string
	Conn   *websocket.Conn
	Send   chan []byte
	ChatID uint
	BotID  uint
	UserID uint
	Hub    *Hub

	chunks    chan inboundChunk
	done      chan struct{}
	closeOnce sync.Once
}

type Hub struct {
	clients      map[*Client]bool
	register     chan *Client
	unregister   chan *Client
	orchestrator *voice.Orchestrator
	chats        ChatResolver
	mu           sync.Mutex
}

func NewHub(orchestrator *voice.Orchestrator, chats ChatResolver) *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		orchestrator: orchestrator,
		chats:        chats,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client registered: %s for chat %d", client.ID, client.ChatID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.shutdown()
				h.orchestrator.EndConversation(client.ChatID, client.BotID)
				log.Printf("Client unregistered: %s", client.ID)
			}
			h.mu.Unlock()
		}
	}
}

// GetActiveConnections returns the ids of currently connected clients.
func (h *Hub) GetActiveConnections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.clients))
	for client := range h.clients {
		ids = append(ids, client.ID)
	}
	return ids
}

// shutdown signals that the client is gone. Send is never closed: the
// chunk consumer may still be inside the pipeline and its late result
// must be discarded, not panic. WritePump exits on done instead.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		close(c.chunks)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
		log.Printf("ReadPump ended for client: %s", c.ID)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, messageData, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		// Binary frames are raw audio in the client's default format.
		if messageType == websocket.BinaryMessage {
			c.enqueueChunk(inboundChunk{data: messageData, format: "m4a"})
			continue
		}

		var message Message
		if err := json.Unmarshal(messageData, &message); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message Message) {
	switch message.Type {
	case "audio":
		c.handleAudioMessage(message)
	case "ping":
		c.sendMessage("pong", nil)
	default:
		log.Printf("Unknown message type: %s", message.Type)
	}
}

// handleAudioMessage decodes a JSON-framed audio chunk and queues it.
// Processing happens on the consumer goroutine so chunks stay in arrival
// order; ReadPump never blocks on the pipeline.
func (c *Client) handleAudioMessage(message Message) {
	var audioContent struct {
		Data   string `json:"data"`
		Format string `json:"format"`
	}

	contentBytes, err := json.Marshal(message.Content)
	if err != nil {
		log.Printf("Error marshaling audio content: %v", err)
		return
	}
	if err := json.Unmarshal(contentBytes, &audioContent); err != nil {
		log.Printf("Error unmarshaling audio content: %v", err)
		return
	}

	audioData, err := base64.StdEncoding.DecodeString(audioContent.Data)
	if err != nil {
		log.Printf("Error decoding base64 audio data: %v", err)
		c.sendErrorMessage("Failed to decode audio data")
		return
	}

	format := audioContent.Format
	if format == "" {
		format = "m4a"
	}

	c.enqueueChunk(inboundChunk{data: audioData, format: format})
}

func (c *Client) enqueueChunk(chunk inboundChunk) {
	select {
	case c.chunks <- chunk:
	default:
		// The pipeline is behind by a full queue; dropping is better than
		// stalling the read loop and losing the connection.
		log.Printf("Dropping audio chunk for client %s: queue full", c.ID)
		c.sendErrorMessage("Audio is arriving faster than it can be processed")
	}
}

// consumeChunks drains the chunk queue one at a time, keeping the turn
// buffer's arrival-order guarantee for this conversation.
func (c *Client) consumeChunks() {
	for chunk := range c.chunks {
		result := c.Hub.orchestrator.ProcessChunk(context.Background(), c.ChatID, c.BotID, chunk.data, chunk.format)

		switch {
		case result.ErrorCode != "":
			c.sendMessage("turn_error", result)
		case result.TurnComplete:
			c.sendMessage("turn", result)
		default:
			c.sendMessage("listening", nil)
		}
	}
}

func (c *Client) sendMessage(messageType string, content interface{}) {
	message := Message{
		Type:    messageType,
		Content: content,
	}

	messageJSON, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	select {
	case <-c.done:
		// The client unregistered while a turn was still in flight.
	case c.Send <- messageJSON:
	default:
		log.Printf("Dropping outbound message for client %s: send buffer full", c.ID)
	}
}

func (c *Client) sendErrorMessage(errorText string) {
	c.sendMessage("error", map[string]string{
		"message": errorText,
	})
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush any queued messages as separate frames
			n := len(c.Send)
			for i := 0; i < n; i++ {
				extraMsg := <-c.Send
				if err := c.Conn.WriteMessage(websocket.TextMessage, extraMsg); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs authenticates the client, binds the connection to one chat, and
// starts the pumps plus the chunk consumer.
func ServeWs(hub *Hub, c *gin.Context) {
	chatIDStr := c.Query("chatId")
	if chatIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
		return
	}
	chatID, err := strconv.ParseUint(chatIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chatId"})
		return
	}

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}
	claims, err := jwt.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	chat, err := hub.chats.GetChat(uint(chatID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if chat.UserID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "chat belongs to another user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}
	conn.EnableWriteCompression(true)

	client := &Client{
		ID:     strconv.FormatUint(uint64(claims.UserID), 10) + "-" + chatIDStr,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		ChatID: chat.ID,
		BotID:  chat.BotID,
		UserID: claims.UserID,
		Hub:    hub,
		chunks: make(chan inboundChunk, chunkQueueSize),
		done:   make(chan struct{}),
	}

	client.Hub.register <- client
	log.Printf("New WebSocket connection established for user %d, chat %d", claims.UserID, chat.ID)

	go client.WritePump()
	go client.consumeChunks()
	go client.ReadPump()
}
