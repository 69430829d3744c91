package syncer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openroam/tripgraph/internal/crdt"
	"github.com/openroam/tripgraph/internal/domain"
	"github.com/openroam/tripgraph/internal/store"
)

// Config governs the sync connection for one trip.
type Config struct {
	// URL is the relay's sync endpoint, e.g. ws://host:8080/sync.
	URL    string
	TripID string

	WriteTimeout time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

func (c Config) withDefaults() Config {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = 250 * time.Millisecond
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 15 * time.Second
	}
	return c
}

// Client is the sync channel for one trip: it feeds remote updates into the
// tree store, ships local updates out, and mirrors the presence layer's live
// state. Reconnects are transparent; a resumed connection's snapshot is
// treated as an ordinary remote change.
type Client struct {
	id     string
	cfg    Config
	logger *slog.Logger
	store  *store.Store

	mu       sync.Mutex
	conn     *websocket.Conn
	presence map[string]domain.Presence
	closed   bool

	// writeMu serializes writers; gorilla connections support one
	// concurrent writer only.
	writeMu sync.Mutex

	done chan struct{}
}

// Dial connects to the relay and starts the read loop. The initial dial
// failing is a hard error; later disconnects are handled by reconnecting with
// capped exponential backoff.
func Dial(cfg Config, logger *slog.Logger, st *store.Store) (*Client, error) {
	cfg = cfg.withDefaults()
	c := &Client{
		id:       uuid.NewString(),
		cfg:      cfg,
		logger:   logger,
		store:    st,
		presence: make(map[string]domain.Presence),
		done:     make(chan struct{}),
	}

	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	c.conn = conn

	go c.run(conn)
	return c, nil
}

// ConnectionID identifies this client on the presence layer.
func (c *Client) ConnectionID() string { return c.id }

func (c *Client) connect() (*websocket.Conn, error) {
	url := fmt.Sprintf("%s/%s", c.cfg.URL, c.cfg.TripID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial sync channel: %w", err)
	}
	// Push the local replica so edits made while disconnected propagate;
	// the relay merges it like any other update.
	if snapshot := c.store.Snapshot(); len(snapshot) > 0 {
		if err := writeEnvelope(conn, c.cfg.WriteTimeout, NewEnvelope(TypeUpdate, snapshot)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("push local snapshot: %w", err)
		}
	}
	// The relay replays the full live presence set after a join, so anything
	// remembered from before the disconnect is stale: a peer that left in the
	// meantime had its leave announced while we were not listening.
	c.mu.Lock()
	c.presence = make(map[string]domain.Presence)
	c.mu.Unlock()
	return conn, nil
}

// run reads until the connection fails, then reconnects until Close.
func (c *Client) run(conn *websocket.Conn) {
	backoff := c.cfg.ReconnectMin
	for {
		err := c.readLoop(conn)
		_ = conn.Close()
		if c.isClosed() {
			return
		}
		c.logger.Info("sync channel disconnected, reconnecting", "trip", c.cfg.TripID, "error", err)

		for {
			if c.isClosed() {
				return
			}
			time.Sleep(backoff)
			next, dialErr := c.connect()
			if dialErr == nil {
				conn = next
				c.mu.Lock()
				c.conn = conn
				c.mu.Unlock()
				backoff = c.cfg.ReconnectMin
				break
			}
			c.logger.Warn("sync reconnect failed", "trip", c.cfg.TripID, "error", dialErr)
			backoff *= 2
			if backoff > c.cfg.ReconnectMax {
				backoff = c.cfg.ReconnectMax
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	switch env.Type {
	case TypeSnapshot:
		var u crdt.Update
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			c.logger.Warn("malformed snapshot payload", "error", err)
			return
		}
		c.store.ApplyRemote(u, store.OriginSnapshot)
	case TypeUpdate:
		var u crdt.Update
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			c.logger.Warn("malformed update payload", "error", err)
			return
		}
		c.store.ApplyRemote(u, store.OriginRemote)
	case TypePresence:
		var p domain.Presence
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ID == "" {
			return
		}
		c.mu.Lock()
		c.presence[p.ID] = p
		c.mu.Unlock()
	case TypePresenceLeave:
		var leave PresenceLeave
		if err := json.Unmarshal(env.Payload, &leave); err != nil {
			return
		}
		c.mu.Lock()
		delete(c.presence, leave.ID)
		c.mu.Unlock()
	}
}

// SendUpdate ships a committed transaction to peers. It implements
// engine.Transport.
func (c *Client) SendUpdate(u crdt.Update) error {
	return c.write(NewEnvelope(TypeUpdate, u))
}

// PublishPresence overwrites this connection's presence entry. No delivery
// guarantee is made; a lost publish is superseded by the next one.
func (c *Client) PublishPresence(p domain.Presence) error {
	p.ID = c.id
	return c.write(NewEnvelope(TypePresence, p))
}

// Cursors returns the live remote presence records, excluding this client's
// own entry, in stable id order.
func (c *Client) Cursors() []domain.Presence {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Presence, 0, len(c.presence))
	for id, p := range c.presence {
		if id == c.id {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops the read loop and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) write(env Envelope) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return fmt.Errorf("sync channel closed")
	}
	if conn == nil {
		return fmt.Errorf("sync channel not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeEnvelope(conn, c.cfg.WriteTimeout, env)
}

func writeEnvelope(conn *websocket.Conn, timeout time.Duration, env Envelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	return conn.WriteJSON(env)
}
