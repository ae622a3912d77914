package server

import (
	"context"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/brewbean/livecup/internal/rtc"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 64 * 1024
	sendBufferSize = 256
)

// ParticipantObserver is told the participant count of a room whenever it changes.
type ParticipantObserver interface {
	SetParticipants(room string, count int)
}

type relayMessage struct {
	from  *participant
	frame []byte
}

// participant is one websocket connection joined to a room.
type participant struct {
	identity string
	room     string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
}

// Hub relays data frames between participants of the same room.
type Hub struct {
	logger     *log.Logger
	observer   ParticipantObserver
	upgrader   websocket.Upgrader
	register   chan *participant
	unregister chan *participant
	relay      chan relayMessage
	stopped    chan struct{}

	mu    sync.RWMutex
	rooms map[string]map[*participant]bool
}

// HubOption customises a hub.
type HubOption func(*Hub)

// WithHubLogger overrides the hub logger.
func WithHubLogger(logger *log.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithParticipantObserver reports room occupancy changes to o.
func WithParticipantObserver(o ParticipantObserver) HubOption {
	return func(h *Hub) {
		h.observer = o
	}
}

// WithOriginCheck replaces the default origin policy used on upgrade.
func WithOriginCheck(allowed func(origin string) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return allowed != nil && allowed(origin)
		}
	}
}

// NewHub creates a hub. Call Run before serving HandleWebSocket.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger:     log.Default(),
		register:   make(chan *participant),
		unregister: make(chan *participant),
		relay:      make(chan relayMessage, sendBufferSize),
		stopped:    make(chan struct{}),
		rooms:      make(map[string]map[*participant]bool),
	}
	WithOriginCheck(NewOriginPolicy(nil))(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ParticipantCount returns the number of participants joined to room.
func (h *Hub) ParticipantCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Rooms lists rooms with at least one participant.
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.rooms))
	for name := range h.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run processes joins, leaves and relayed frames until ctx is cancelled,
// then disconnects every participant.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case p := <-h.register:
			h.mu.Lock()
			members, ok := h.rooms[p.room]
			if !ok {
				members = make(map[*participant]bool)
				h.rooms[p.room] = members
			}
			members[p] = true
			count := len(members)
			h.mu.Unlock()
			h.logger.Printf("[hub] %s joined room %s (%d participants)", p.identity, p.room, count)
			h.observe(p.room, count)

		case p := <-h.unregister:
			h.remove(p)

		case msg := <-h.relay:
			h.mu.RLock()
			for peer := range h.rooms[msg.from.room] {
				if peer == msg.from {
					continue
				}
				select {
				case peer.send <- msg.frame:
				default:
					h.logger.Printf("[hub] send buffer full for %s in room %s, dropping frame", peer.identity, peer.room)
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for name, members := range h.rooms {
				for p := range members {
					close(p.send)
				}
				delete(h.rooms, name)
				h.observe(name, 0)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(p *participant) {
	h.mu.Lock()
	members, ok := h.rooms[p.room]
	if !ok || !members[p] {
		h.mu.Unlock()
		return
	}
	delete(members, p)
	close(p.send)
	count := len(members)
	if count == 0 {
		delete(h.rooms, p.room)
	}
	h.mu.Unlock()
	h.logger.Printf("[hub] %s left room %s (%d participants)", p.identity, p.room, count)
	h.observe(p.room, count)
}

func (h *Hub) observe(room string, count int) {
	if h.observer != nil {
		h.observer.SetParticipants(room, count)
	}
}

// HandleWebSocket upgrades /rtc?room=<name>&identity=<id> requests and joins
// the caller to the room. A missing identity is generated.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.stopped:
		writeError(w, http.StatusServiceUnavailable, "hub is shutting down")
		return
	default:
	}

	room := r.URL.Query().Get("room")
	if room == "" {
		writeError(w, http.StatusBadRequest, "room query parameter is required")
		return
	}
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		identity = "participant-" + uuid.NewString()[:8]
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[hub] websocket upgrade error: %v", err)
		return
	}

	p := &participant{
		identity: identity,
		room:     room,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		hub:      h,
	}

	select {
	case h.register <- p:
	case <-h.stopped:
		conn.Close()
		return
	}

	go p.writePump()
	go p.readPump()
}

// stamp rewrites an inbound message as a frame attributed to the sender.
func (p *participant) stamp(messageType int, message []byte) ([]byte, bool) {
	var frame rtc.Frame
	switch messageType {
	case websocket.TextMessage:
		decoded, err := rtc.DecodeFrame(message)
		if err != nil {
			p.hub.logger.Printf("[hub] unreadable frame from %s: %v", p.identity, err)
			return nil, false
		}
		frame = decoded
	case websocket.BinaryMessage:
		frame = rtc.Frame{Kind: rtc.KindReliable, Payload: message}
	default:
		return nil, false
	}
	frame.Participant = p.identity

	data, err := rtc.EncodeFrame(frame)
	if err != nil {
		p.hub.logger.Printf("[hub] re-encode frame from %s: %v", p.identity, err)
		return nil, false
	}
	return data, true
}

func (p *participant) readPump() {
	defer func() {
		select {
		case p.hub.unregister <- p:
		case <-p.hub.stopped:
		}
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxFrameSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				p.hub.logger.Printf("[hub] websocket error from %s: %v", p.identity, err)
			}
			return
		}

		frame, ok := p.stamp(messageType, message)
		if !ok {
			continue
		}

		select {
		case p.hub.relay <- relayMessage{from: p, frame: frame}:
		case <-p.hub.stopped:
			return
		}
	}
}

func (p *participant) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
