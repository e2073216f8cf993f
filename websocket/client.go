package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"danang-green/geocode"
	"danang-green/mapsync"
	"danang-green/models"

	"github.com/apex/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	searchTimeout  = 15 * time.Second
)

var errClientGone = errors.New("map client is gone or too slow")

// Client is one browser map view
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	engine *mapsync.Engine
}

func newClient(hub *Hub, conn *websocket.Conn, memory *mapsync.ViewportMemory) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	c.engine = mapsync.NewEngine(&surface{client: c}, mapsync.Options{
		Memory: memory,
		Hooks: mapsync.Hooks{
			OnSelect: func(r models.ReportRecord) {
				c.sendCommand(Command{Type: TypeSelected, Report: &r})
			},
			OnTileError: func(err error) {
				log.WithError(err).Debug("Tile error reported by map client")
			},
		},
	})
	if hub.source != nil {
		c.engine.Bind(hub.source)
	}
	return c
}

// Engine returns the map engine driven by this client
func (c *Client) Engine() *mapsync.Engine { return c.engine }

// enqueue reports false when the client is closed or its buffer is full
func (c *Client) enqueue(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendCommand(cmd Command) error {
	cmd.SentAt = time.Now().UTC()
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal %s command: %w", cmd.Type, err)
	}
	if !c.enqueue(data) {
		return errClientGone
	}
	return nil
}

// ReadPump feeds browser messages to the engine until the connection closes
func (c *Client) ReadPump() {
	defer func() {
		c.engine.TearDown()
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("Map client read error")
			}
			return
		}
		var in Inbound
		if err := json.Unmarshal(message, &in); err != nil {
			log.WithError(err).Warn("Ignoring malformed map client message")
			continue
		}
		c.dispatch(in)
	}
}

func (c *Client) dispatch(in Inbound) {
	switch in.Type {
	case TypeLayout:
		size := mapsync.Size{}
		if in.Size != nil {
			size = *in.Size
		}
		c.engine.Layout(size)
	case TypeViewport:
		if in.View != nil {
			c.engine.SurfaceMoved(*in.View, in.Tag)
		}
	case TypeSetViewport:
		if in.View != nil {
			c.engine.SetViewport(*in.View)
		}
	case TypeSelect:
		c.engine.SetSelectedReport(in.ID)
	case TypeMarkerClick:
		c.engine.MarkerClicked(in.ID)
	case TypeVisibility:
		c.engine.SetVisible(in.Visible)
	case TypeTileError:
		c.engine.TileError(errors.New(in.Error))
	case TypeSearch:
		go c.search(in.Query)
	default:
		log.Warnf("Unknown map client message type %q", in.Type)
	}
}

// search geocodes query and flies the map to the match
func (c *Client) search(query string) {
	if c.hub.searcher == nil {
		c.sendCommand(Command{Type: TypeSearchResult, Search: &geocode.Result{}, Message: NotFoundMessage})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	res, err := c.hub.searcher.Search(ctx, query)
	if err != nil {
		log.WithError(err).Warnf("Search for %q failed", query)
		c.sendCommand(Command{Type: TypeSearchResult, Search: &geocode.Result{}, Message: NotFoundMessage})
		return
	}
	if !res.Found {
		c.sendCommand(Command{Type: TypeSearchResult, Search: &res, Message: NotFoundMessage})
		return
	}
	c.sendCommand(Command{Type: TypeSearchResult, Search: &res})
	c.engine.SetViewport(models.ViewportState{Center: res.Position, Zoom: searchZoom})
}

// WritePump writes queued messages and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
