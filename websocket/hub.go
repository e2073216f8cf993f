package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"danang-green/geocode"
	"danang-green/mapsync"
	"danang-green/metrics"
	"danang-green/models"

	"github.com/apex/log"
	"github.com/gorilla/websocket"
)

// Searcher resolves free text to a position
type Searcher interface {
	Search(ctx context.Context, query string) (geocode.Result, error)
}

// Hub manages map connections. Every connection drives its own map engine.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Messages for every client
	broadcast chan []byte

	Register   chan *Client
	Unregister chan *Client

	mutex sync.RWMutex
	quit  chan struct{}

	source   mapsync.ReportSource
	searcher Searcher

	memMu    sync.Mutex
	memories map[string]*mapsync.ViewportMemory

	connectedClients int
	lastBroadcast    time.Time
}

// NewHub creates a hub serving reports from source. searcher may be nil.
func NewHub(source mapsync.ReportSource, searcher Searcher) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		quit:       make(chan struct{}),
		source:     source,
		searcher:   searcher,
		memories:   make(map[string]*mapsync.ViewportMemory),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()
			metrics.MapClients.Set(float64(h.connectedClients))
			log.Infof("Map client connected. Total clients: %d", h.connectedClients)

		case client := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.connectedClients = len(h.clients)
			}
			h.mutex.Unlock()
			metrics.MapClients.Set(float64(h.connectedClients))
			log.Infof("Map client disconnected. Total clients: %d", h.connectedClients)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if !client.enqueue(message) {
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.connectedClients = len(h.clients)
			h.lastBroadcast = time.Now()
			h.mutex.Unlock()
			metrics.MapClients.Set(float64(h.connectedClients))

		case <-h.quit:
			h.mutex.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.connectedClients = 0
			h.mutex.Unlock()
			metrics.MapClients.Set(0)
			return
		}
	}
}

// Stop disconnects every client and ends Run
func (h *Hub) Stop() {
	close(h.quit)
}

// Map views that keep their own viewport. Any other id shares DefaultViewID.
const (
	DefaultViewID = "map"
	HomeViewID    = "home"
	EnvViewID     = "env"
)

var knownViews = map[string]bool{DefaultViewID: true, HomeViewID: true, EnvViewID: true}

// Memory returns the viewport memory of one browser view, created on first use
func (h *Hub) Memory(viewID string) *mapsync.ViewportMemory {
	if !knownViews[viewID] {
		viewID = DefaultViewID
	}
	h.memMu.Lock()
	defer h.memMu.Unlock()
	m, ok := h.memories[viewID]
	if !ok {
		m = mapsync.NewViewportMemory()
		h.memories[viewID] = m
	}
	return m
}

// Attach starts serving conn as a map view identified by viewID
func (h *Hub) Attach(conn *websocket.Conn, viewID string) *Client {
	client := newClient(h, conn, h.Memory(viewID))

	select {
	case h.Register <- client:
	case <-h.quit:
		client.engine.TearDown()
		client.closeSend()
		conn.Close()
		return client
	}

	go client.WritePump()
	go client.ReadPump()
	return client
}

// PublishEvent forwards report events to every open map
func (h *Hub) PublishEvent(_ context.Context, ev models.ReportEvent) error {
	cmd := Command{Type: TypeEvent, Event: &ev, SentAt: time.Now().UTC()}
	if ev.Type == models.EventReportCreated {
		cmd.Message = NewReportToast
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warnf("Map broadcast queue full, dropping %s for %s", ev.Type, ev.Report.ID)
	}
	return nil
}

// GetStats returns the number of connected clients and the time of the last broadcast
func (h *Hub) GetStats() (int, time.Time) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, h.lastBroadcast
}
