package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"kiosk/internal/cart"
	"kiosk/internal/dto"
	"kiosk/internal/logger"
	"kiosk/internal/model"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 8
	writeTimeout    = 2 * time.Second
)

// Client is a websocket connection the hub writes to.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// HubService fans out display frames and cart snapshots to every connected
// kiosk screen. It implements cart.Sink and pipeline.Display. Broadcasting
// never blocks the caller: when the hub falls behind, messages are dropped.
type HubService struct {
	clients    map[Client]bool
	broadcast  chan []byte
	register   chan Client
	unregister chan Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger

	lastCart []byte
	cartMu   sync.Mutex
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan Client),
		unregister: make(chan Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register/unregister/broadcast requests until ctx is cancelled.
func (h *HubService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", total)

			// New screens get the current cart right away
			if last := h.lastCartMessage(); last != nil {
				h.write(client, last)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			clients := make([]Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mutex.RUnlock()

			for _, client := range clients {
				h.write(client, message)
			}
		}
	}
}

func (h *HubService) write(client Client, message []byte) {
	client.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		h.logger.Error("Error sending message: %v", err)
		h.mutex.Lock()
		delete(h.clients, client)
		h.mutex.Unlock()
		client.Close()
	}
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// Register adds a client. After the hub stopped the client is closed instead.
func (h *HubService) Register(client Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every client, dropping it if the queue is full.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// ShowFrame implements pipeline.Display.
func (h *HubService) ShowFrame(kind string, frame model.Frame) {
	if frame.Empty() || h.GetClientCount() == 0 {
		return
	}

	msg, err := json.Marshal(dto.FrameMessage{
		Type:       kind,
		Image:      base64.StdEncoding.EncodeToString(frame.Data),
		Width:      frame.Width,
		Height:     frame.Height,
		CapturedAt: frame.CapturedAt,
	})
	if err != nil {
		h.logger.Error("Failed to encode frame message: %v", err)
		return
	}
	h.Broadcast(msg)
}

// Publish implements cart.Sink.
func (h *HubService) Publish(snapshot cart.Snapshot) {
	msg, err := json.Marshal(dto.CartMessage{Type: dto.MessageCart, Snapshot: snapshot})
	if err != nil {
		h.logger.Error("Failed to encode cart message: %v", err)
		return
	}

	h.cartMu.Lock()
	h.lastCart = msg
	h.cartMu.Unlock()

	h.Broadcast(msg)
}

func (h *HubService) lastCartMessage() []byte {
	h.cartMu.Lock()
	defer h.cartMu.Unlock()
	return h.lastCart
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
