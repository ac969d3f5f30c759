package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxhome/iot-core/internal/device"
	"github.com/voxhome/iot-core/internal/infrastructure/config"
	"github.com/voxhome/iot-core/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeInit           = "init"
	WSTypeControl        = "control"
	WSTypeControlResults = "control_results"
	WSTypeGetStatus      = "get_status"
	WSTypeDeviceStatus   = "device_status"
	WSTypeDeviceUpdate   = "device_update"
	WSTypeError          = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// WSMessage is the single envelope for every WebSocket frame, inbound and
// outbound. Which fields are populated depends on Type:
//
//	init            -> Devices (full snapshot, sent once on connect)
//	control         -> Commands (client request)
//	control_results -> Results (one per command, in request order)
//	get_status      -> Device, Location (client request)
//	device_status   -> Device, Location, State
//	device_update   -> Device, Location, State (broadcast to all clients)
//	error           -> Message
type WSMessage struct {
	Type     string                                  `json:"type"`
	Device   string                                  `json:"device,omitempty"`
	Location string                                  `json:"location,omitempty"`
	State    device.State                            `json:"state,omitempty"`
	Devices  map[device.Type]map[string]device.State `json:"devices,omitempty"`
	Commands []device.Command                        `json:"commands,omitempty"`
	Results  []device.Result                         `json:"results,omitempty"`
	Message  string                                  `json:"message,omitempty"`
}

// Hub manages WebSocket connections and broadcasts device updates.
//
// It implements device.Broadcaster, so the executor and drift simulator
// fan successful mutations out through it without knowing about sockets.
type Hub struct {
	cfg      config.WebSocketConfig
	logger   *logging.Logger
	store    *device.Store
	executor *device.Executor
	clients  map[*WSClient]struct{}
	mu       sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, store *device.Store, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		clients: make(map[*WSClient]struct{}),
	}
}

// SetExecutor wires the command executor into the hub.
// Called after both are created, since the executor broadcasts through
// the hub and the hub routes control messages to the executor.
func (h *Hub) SetExecutor(e *device.Executor) {
	h.executor = e
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "client_id", client.id, "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "client_id", client.id, "clients", h.ClientCount())
}

// DeviceUpdate broadcasts a device state change to every connected client.
// It satisfies device.Broadcaster.
//
// Lock ordering: the client list is snapshotted under the hub lock, then
// the lock is released before any send. Slow clients lose frames rather
// than stalling the broadcast.
func (h *Hub) DeviceUpdate(t device.Type, location string, state device.State) {
	msg := WSMessage{
		Type:     WSTypeDeviceUpdate,
		Device:   string(t),
		Location: location,
		State:    state,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
	if len(clients) > 0 {
		h.logger.Debug("device update broadcast",
			"device", t,
			"location", location,
			"recipients", len(clients),
		)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection and starts the client pumps.
// The first frame the client receives is an init snapshot of every device,
// so the frontend can render without a follow-up request.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		id:   uuid.NewString(),
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	// Queue the snapshot before registering: once the client is in the hub
	// a concurrent broadcast could land in its send channel, and the init
	// frame must always arrive first.
	client.sendMessage(WSMessage{
		Type:    WSTypeInit,
		Devices: s.store.Snapshot(r.Context()),
	})
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "client_id", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "client_id", c.id, "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps the connection
		// alive even if the browser doesn't answer protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid format")
		return
	}

	switch msg.Type {
	case WSTypeControl:
		c.handleControl(msg)
	case WSTypeGetStatus:
		c.handleGetStatus(msg)
	default:
		c.sendError("unknown command type")
	}
}

// handleControl executes a batch of commands and replies with per-command
// results. Successful commands also reach every client as device_update
// broadcasts via the executor's fan-out, this client included.
func (c *WSClient) handleControl(msg WSMessage) {
	if c.hub.executor == nil {
		c.sendError("command execution unavailable")
		return
	}

	results := c.hub.executor.ExecuteBatch(context.Background(), msg.Commands)

	c.sendMessage(WSMessage{
		Type:    WSTypeControlResults,
		Results: results,
	})
}

// handleGetStatus replies with the current state of a single device.
func (c *WSClient) handleGetStatus(msg WSMessage) {
	t, err := device.ParseType(msg.Device)
	if err != nil {
		c.sendError("device not found")
		return
	}

	state, err := c.hub.store.Get(context.Background(), t, msg.Location)
	if err != nil {
		c.sendError("device not found")
		return
	}

	c.sendMessage(WSMessage{
		Type:     WSTypeDeviceStatus,
		Device:   msg.Device,
		Location: msg.Location,
		State:    state,
	})
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendMessage marshals and sends a message to this client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(message string) {
	c.sendMessage(WSMessage{Type: WSTypeError, Message: message})
}
