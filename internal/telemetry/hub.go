package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/config"
)

// Event types.
const (
	EventReady     = "ready"
	EventHeartbeat = "heartbeat"
	EventLamp      = "lamp"
	EventTaken     = "taken"
	EventDelivered = "delivered"
	EventTint      = "tint"
	EventDoor      = "door"
	EventPosition  = "position"
)

// clientBuffer is the per-client queue; events beyond it are dropped.
const clientBuffer = 256

// Event represents a telemetry event with SSE formatting.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	Unit string                 `json:"unit,omitempty"`
}

// Client represents an SSE client connection.
type Client struct {
	ID      string
	Writer  http.ResponseWriter
	Context context.Context
	Cancel  context.CancelFunc
	LastID  int64
	Unit    string
	Events  chan Event
	once    sync.Once
	mu      sync.Mutex // Protect Writer access
}

// Hub manages SSE telemetry distribution with per-unit buffering.
//
// h.mu protects clients, unitIDs and buffers. Each EventBuffer has its own
// mutex. Client channels are closed exactly once through Client.once.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	unitIDs map[string]*int64 // monotonic event IDs per unit

	buffers map[string]*EventBuffer

	heartbeat  time.Duration
	bufferSize int
	snapshot   func() interface{}
	log        zerolog.Logger

	heartbeatTicker *time.Ticker
	stopHeartbeat   chan struct{}

	dropped atomic.Int64

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// EventBuffer maintains a circular buffer of events for a specific unit.
type EventBuffer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewHub creates a new telemetry hub.
func NewHub(timing config.TimingConfig, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		unitIDs:    make(map[string]*int64),
		buffers:    make(map[string]*EventBuffer),
		heartbeat:  timing.Heartbeat(),
		bufferSize: timing.EventBufferSize,
		log:        logger.With().Str("component", "telemetry").Logger(),
		done:       make(chan struct{}),
	}
}

// SetSnapshot installs the function whose result is sent in the ready event.
func (h *Hub) SetSnapshot(fn func() interface{}) {
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}

// Subscribe handles SSE client subscription with Last-Event-ID resume support.
// It blocks until the client disconnects or the hub stops.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)

	lastEventID := int64(0)
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			lastEventID = id
		}
	}

	client := &Client{
		ID:      uuid.NewString(),
		Writer:  w,
		Context: clientCtx,
		Cancel:  cancel,
		LastID:  lastEventID,
		Unit:    r.URL.Query().Get("unit"),
		Events:  make(chan Event, clientBuffer),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	if h.heartbeatTicker == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()

	if err := h.sendReadyEvent(client); err != nil {
		h.unregisterClient(client.ID)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastEventID > 0 && client.Unit != "" {
		if err := h.replayEvents(client, lastEventID); err != nil {
			h.unregisterClient(client.ID)
			return fmt.Errorf("failed to replay events: %w", err)
		}
	}

	h.log.Debug().Str("client", client.ID).Str("unit", client.Unit).Msg("Telemetry client connected")
	h.handleClient(client)
	return nil
}

// Publish publishes an event to all connected clients without blocking.
// Clients whose queue is full miss the event.
func (h *Hub) Publish(event Event) {
	select {
	case <-h.done:
		return
	default:
	}

	if event.ID == 0 {
		event.ID = h.nextEventID(event.Unit)
	}
	if event.Unit != "" {
		h.bufferEvent(event)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.Unit != "" && event.Unit != "" && client.Unit != event.Unit {
			continue
		}
		select {
		case <-client.Context.Done():
		case client.Events <- event:
		default:
			h.dropped.Add(1)
		}
	}
}

// PublishUnit publishes an event for a specific unit.
func (h *Hub) PublishUnit(unitID int, eventType string, data map[string]interface{}) {
	h.Publish(Event{Type: eventType, Unit: strconv.Itoa(unitID), Data: data})
}

// Dropped returns the number of events dropped for slow clients.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendReadyEvent sends the initial ready event to a client.
func (h *Hub) sendReadyEvent(client *Client) error {
	h.mu.RLock()
	snapshot := h.snapshot
	h.mu.RUnlock()

	var units interface{} = []interface{}{}
	if snapshot != nil {
		units = snapshot()
	}

	return h.sendEventToClient(client, Event{
		Type: EventReady,
		Data: map[string]interface{}{"units": units},
	})
}

// replayEvents replays buffered events for a client based on Last-Event-ID.
func (h *Hub) replayEvents(client *Client, lastEventID int64) error {
	h.mu.RLock()
	buffer, exists := h.buffers[client.Unit]
	h.mu.RUnlock()

	if !exists {
		return nil
	}

	for _, event := range buffer.GetEventsAfter(lastEventID) {
		if err := h.sendEventToClient(client, event); err != nil {
			return err
		}
	}
	return nil
}

// sendEventToClient sends a single event to a client via SSE.
func (h *Hub) sendEventToClient(client *Client, event Event) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if event.ID > 0 {
		if _, err := fmt.Fprintf(client.Writer, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(client.Writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if flusher, ok := client.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// handleClient delivers queued events until the client goes away.
func (h *Hub) handleClient(client *Client) {
	defer h.unregisterClient(client.ID)

	for {
		select {
		case <-client.Context.Done():
			return
		case <-h.done:
			return
		case event := <-client.Events:
			if err := h.sendEventToClient(client, event); err != nil {
				h.log.Debug().Err(err).Str("client", client.ID).Msg("Telemetry client write failed")
				return
			}
		}
	}
}

// unregisterClient removes a client from the hub.
func (h *Hub) unregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.clients[clientID]
	if !exists {
		return
	}
	client.Cancel()
	delete(h.clients, clientID)

	if len(h.clients) == 0 {
		h.stopHeartbeatLocked()
	}
}

// stopHeartbeatLocked stops the heartbeat if running. Caller must hold h.mu.
func (h *Hub) stopHeartbeatLocked() {
	if h.heartbeatTicker == nil {
		return
	}
	h.heartbeatTicker.Stop()
	h.heartbeatTicker = nil
	close(h.stopHeartbeat)
	h.stopHeartbeat = nil
}

// nextEventID returns the next monotonic event ID for a unit.
func (h *Hub) nextEventID(unitKey string) int64 {
	if unitKey == "" {
		unitKey = "global"
	}

	h.mu.RLock()
	counter, exists := h.unitIDs[unitKey]
	h.mu.RUnlock()

	if !exists {
		h.mu.Lock()
		counter, exists = h.unitIDs[unitKey]
		if !exists {
			counter = new(int64)
			h.unitIDs[unitKey] = counter
		}
		h.mu.Unlock()
	}

	return atomic.AddInt64(counter, 1)
}

// bufferEvent adds an event to the per-unit buffer. Buffers are never
// removed, so the reference stays valid after h.mu is released.
func (h *Hub) bufferEvent(event Event) {
	h.mu.Lock()
	buffer, exists := h.buffers[event.Unit]
	if !exists {
		buffer = NewEventBuffer(h.bufferSize)
		h.buffers[event.Unit] = buffer
	}
	h.mu.Unlock()

	buffer.AddEvent(event)
}

// startHeartbeat starts the heartbeat ticker. Caller must hold h.mu.
func (h *Hub) startHeartbeat() {
	h.heartbeatTicker = time.NewTicker(h.heartbeat)
	h.stopHeartbeat = make(chan struct{})

	ticker := h.heartbeatTicker
	stop := h.stopHeartbeat

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ticker.C:
				h.Publish(Event{
					Type: EventHeartbeat,
					Data: map[string]interface{}{"ts": time.Now().UTC().Format(time.RFC3339)},
				})
			case <-stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// Stop disconnects all clients and stops the heartbeat.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for _, client := range h.clients {
			client.Cancel()
		}
		h.stopHeartbeatLocked()
		h.mu.Unlock()

		done := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			h.log.Warn().Msg("Timeout waiting for telemetry goroutines")
		}
	})
}

// NewEventBuffer creates a new event buffer with the specified capacity.
func NewEventBuffer(capacity int) *EventBuffer {
	return &EventBuffer{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// AddEvent adds an event to the buffer, evicting the oldest when full.
func (b *EventBuffer) AddEvent(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		b.events = b.events[1:]
	}
}

// GetEventsAfter returns events after the specified ID.
func (b *EventBuffer) GetEventsAfter(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events {
		if event.ID > lastID {
			result = append(result, event)
		}
	}
	return result
}

// Size returns the current buffer size.
func (b *EventBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
