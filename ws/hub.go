package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"memory-scramble-server/config"
	"memory-scramble-server/game"
	"memory-scramble-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub streams board snapshots to spectator WebSocket clients. One
// goroutine long-polls Board.Watch and fans each new snapshot out to
// every connected client; clients that cannot keep up drop frames.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Board      *game.Board
	Config     *config.Config

	snapshots chan string
}

// NewHub creates a new Hub over the given board.
func NewHub(cfg *config.Config, board *game.Board) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Board:      board,
		Config:     cfg,
		snapshots:  make(chan string),
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled the loop stops and no new registrations are
// accepted.
func (h *Hub) Run(ctx context.Context) {
	go h.watchLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws")
			return

		case client := <-h.Register:
			h.Clients[client] = true
			// First frame immediately so the spectator is not blank
			// until the next board change.
			wsutil.SafeSend(client.Send, []byte(h.Board.Snapshot()))
			slog.Info("spectator connected", "tag", "ws", "client", client.ID, "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				slog.Info("spectator disconnected", "tag", "ws", "client", client.ID, "total", len(h.Clients))
			}

		case snapshot := <-h.snapshots:
			for client := range h.Clients {
				wsutil.SafeSend(client.Send, []byte(snapshot))
			}
		}
	}
}

// watchLoop feeds each board change into the snapshots channel.
func (h *Hub) watchLoop(ctx context.Context) {
	for {
		snapshot, err := h.Board.Watch(ctx)
		if err != nil {
			// Context cancelled; Run is stopping too.
			return
		}
		select {
		case h.snapshots <- snapshot:
		case <-ctx.Done():
			return
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, h.Config.WatchSendBuffer),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
