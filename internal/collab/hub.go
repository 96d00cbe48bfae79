package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/catalog"
	"github.com/inamate/bspview/internal/engine"
	"github.com/inamate/bspview/internal/metrics"
	"github.com/inamate/bspview/internal/scene"
	"github.com/inamate/bspview/internal/typeid"
)

const (
	opTimeout      = 10 * time.Second
	viewportMargin = 20
)

// Scenes is what the hub needs from the catalog.
type Scenes interface {
	Get(ctx context.Context, id string) (*scene.Scene, error)
	Index(ctx context.Context, id string) (*engine.Index, error)
	Replace(ctx context.Context, id string, s *scene.Scene, expected int) (*scene.Scene, error)
}

type Room struct {
	sceneID   string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	opMu      sync.Mutex // serializes edits to the scene
	serverSeq int64
}

func NewRoom(sceneID string) *Room {
	return &Room{
		sceneID:  sceneID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

type Hub struct {
	scenes     Scenes
	mu         sync.RWMutex
	rooms      map[string]*Room // sceneID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(scenes Scenes) *Hub {
	return &Hub{
		scenes:     scenes,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop ends Run and closes every client's send queue, which makes the write
// pumps close their connections.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for id, room := range h.rooms {
			for _, c := range room.clients {
				c.close()
			}
			delete(h.rooms, id)
		}
		metrics.CollabRooms.Set(0)
	})
}

// Register adds client to its scene's room. It returns once the client is
// in the room, so messages read afterwards always find it. The scene is read
// here so the hub loop never waits on the store.
func (h *Hub) Register(ctx context.Context, client *Client) {
	if s, err := h.scenes.Get(ctx, client.SceneID); err == nil {
		client.version = s.Version
	}

	select {
	case h.register <- client:
		<-client.joined
	case <-h.done:
		client.close()
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// RoomCount returns the number of scenes with connected clients.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if h.stopped() {
		h.mu.Unlock()
		client.close()
		close(client.joined)
		return
	}
	room, ok := h.rooms[client.SceneID]
	if !ok {
		room = NewRoom(client.SceneID)
		h.rooms[client.SceneID] = room
		metrics.CollabRooms.Set(float64(len(h.rooms)))
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	room.presence.Update(client.ClientID, &PresencePayload{DisplayName: client.DisplayName})

	welcome := newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
		Version:     client.version,
		CanEdit:     client.CanEdit,
	})
	welcome.SceneID = client.SceneID
	client.Send(welcome)

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.SceneID, joinMsg, client.ClientID)

	close(client.joined)
	slog.Info("client joined", "user", client.UserID, "scene", client.SceneID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SceneID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.SceneID)
		metrics.CollabRooms.Set(float64(len(h.rooms)))
	}
	h.mu.Unlock()

	// Broadcast leave to remaining clients
	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
	})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.SceneID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "scene", client.SceneID)
}

func (h *Hub) room(sceneID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[sceneID]
	return room, ok
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypeEyeUpdate:
		h.handleEyeUpdate(ctx, sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(ctx, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type: " + msg.Type}))
	}
}

func (h *Hub) handleEyeUpdate(ctx context.Context, sender *Client, msg *Message) {
	var eye EyePayload
	if err := json.Unmarshal(msg.Payload, &eye); err != nil {
		slog.Warn("invalid eye payload", "error", err)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid eye payload"}))
		return
	}
	order, err := bsp.ParseOrder(eye.Order)
	if err != nil {
		sender.Send(newMessage(TypeError, ErrorPayload{Message: err.Error()}))
		return
	}

	room, ok := h.room(sender.SceneID)
	if !ok {
		return
	}

	presence := &PresencePayload{
		DisplayName: sender.DisplayName,
		Eye:         &scene.Point{X: eye.X, Y: eye.Y},
		Order:       order.String(),
		Width:       eye.Width,
		Height:      eye.Height,
	}
	room.presence.Update(sender.ClientID, presence)

	h.sendOrder(ctx, sender, presence)

	// Broadcast to other clients in room
	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	outMsg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.SceneID, outMsg, sender.ClientID)
}

// sendOrder queries the scene from the client's eye and sends the result.
func (h *Hub) sendOrder(ctx context.Context, c *Client, p *PresencePayload) {
	if p.Eye == nil {
		return
	}
	ix, err := h.scenes.Index(ctx, c.SceneID)
	if err != nil {
		slog.Warn("index scene for viewer", "scene", c.SceneID, "error", err)
		c.Send(newMessage(TypeError, ErrorPayload{Message: "scene unavailable"}))
		return
	}

	order, _ := bsp.ParseOrder(p.Order)
	width, height := p.Width, p.Height
	if width <= 0 || height <= 0 {
		width, height = int(ix.Bounds.Width)+2*viewportMargin, int(ix.Bounds.Height)+2*viewportMargin
	}
	view := engine.FitViewport(ix.Bounds, width, height, viewportMargin)
	eye := bsp.Point{X: p.Eye.X, Y: p.Eye.Y}

	commands := engine.CompileDrawCommands(ix.Order(eye, order), view)
	if commands == nil {
		commands = []engine.DrawCommand{}
	}
	c.Send(newMessage(TypeOrder, OrderPayload{
		Version:  ix.Version,
		Eye:      *p.Eye,
		Order:    order.String(),
		Commands: commands,
	}))
}

func (h *Hub) handleOpSubmit(ctx context.Context, sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid operation payload"}))
		return
	}
	op := submit.Operation
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}

	if !sender.CanEdit {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: "read-only"}))
		return
	}

	room, ok := h.room(sender.SceneID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	room.opMu.Lock()
	updated, err := h.applyOperation(ctx, sender.SceneID, &op)
	var seq int64
	if err == nil {
		room.serverSeq++
		seq = room.serverSeq
	}
	room.opMu.Unlock()

	if err != nil {
		reason := err.Error()
		if errors.Is(err, catalog.ErrVersionConflict) {
			reason = "conflict"
		}
		slog.Info("operation rejected", "op", op.ID, "type", op.Type, "user", sender.UserID, "error", err)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: reason}))
		return
	}

	sender.Send(newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		SegmentID:       op.SegmentID,
		ServerSeq:       seq,
		Version:         updated.Version,
		ServerTimestamp: GetServerTimestamp(),
	}))

	changed := newMessage(TypeSceneChanged, SceneChangedPayload{
		Version:     updated.Version,
		OperationID: op.ID,
		UserID:      sender.UserID,
	})
	changed.SceneID = sender.SceneID
	h.broadcastToRoom(sender.SceneID, changed, "")

	h.refreshOrders(ctx, room)
}

func (h *Hub) applyOperation(ctx context.Context, sceneID string, op *Operation) (*scene.Scene, error) {
	s, err := h.scenes.Get(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	if err := ApplyOperation(s, op); err != nil {
		return nil, err
	}
	return h.scenes.Replace(ctx, sceneID, s, s.Version)
}

// refreshOrders sends a fresh order to every client whose eye is known.
func (h *Hub) refreshOrders(ctx context.Context, room *Room) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if p, ok := room.presence.Get(c.ClientID); ok {
			h.sendOrder(ctx, c, p)
		}
	}
}

func (h *Hub) broadcastToRoom(sceneID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sceneID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
