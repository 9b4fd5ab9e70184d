// Package changefeed turns PostgreSQL table_changes notifications into
// in-process subscriptions and websocket broadcasts.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/waraqa-store/api/internal/ws"
)

// Channel is the NOTIFY channel written by the notify_table_change trigger.
const Channel = "table_changes"

// OpResync is delivered to every subscriber each time LISTEN succeeds,
// including the first time. Writes made before LISTEN or while the
// connection was down produce no notification.
const OpResync = "RESYNC"

const subscriptionBuffer = 16

// Change is one row-level write on a watched table.
type Change struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
}

// Conn is the subset of *pgx.Conn used to listen.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Dialer opens a dedicated listening connection.
type Dialer func(ctx context.Context) (Conn, error)

// Broadcaster receives every change for websocket fan-out.
type Broadcaster interface {
	BroadcastToTable(table string, event ws.Event)
}

// PgxDialer dials connString with pgx. Pooled connections cannot hold a
// LISTEN across requests, so the listener owns its own connection.
func PgxDialer(connString string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Listener owns the LISTEN connection and the subscriber registry.
type Listener struct {
	dial       Dialer
	hub        Broadcaster
	retryDelay time.Duration

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewListener creates a Listener. hub may be nil.
func NewListener(dial Dialer, hub Broadcaster) *Listener {
	return &Listener{
		dial:       dial,
		hub:        hub,
		retryDelay: 3 * time.Second,
		subs:       make(map[*Subscription]struct{}),
	}
}

// Subscription delivers changes for a fixed set of tables. Deliveries are
// coalesced: when the buffer is full further changes are dropped, which is
// safe for consumers that refetch on every change.
type Subscription struct {
	C <-chan Change

	ch     chan Change
	tables map[string]bool
	l      *Listener
	once   sync.Once
}

// Subscribe registers interest in tables. An empty list watches everything.
func (l *Listener) Subscribe(tables ...string) *Subscription {
	ch := make(chan Change, subscriptionBuffer)
	s := &Subscription{C: ch, ch: ch, l: l}
	if len(tables) > 0 {
		s.tables = make(map[string]bool, len(tables))
		for _, t := range tables {
			s.tables[t] = true
		}
	}

	l.mu.Lock()
	l.subs[s] = struct{}{}
	l.mu.Unlock()
	return s
}

// Unsubscribe stops deliveries and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.l.mu.Lock()
		delete(s.l.subs, s)
		close(s.ch)
		s.l.mu.Unlock()
	})
}

func (s *Subscription) wants(table string) bool {
	return s.tables == nil || s.tables[table]
}

// Dispatch delivers c to matching subscribers and the hub.
func (l *Listener) Dispatch(c Change) {
	l.mu.Lock()
	for s := range l.subs {
		if !s.wants(c.Table) {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
	l.mu.Unlock()

	if l.hub != nil && c.Op != OpResync {
		payload, err := json.Marshal(c)
		if err != nil {
			return
		}
		l.hub.BroadcastToTable(c.Table, ws.Event{Type: c.Op, Payload: payload})
	}
}

// resync tells every subscriber to refetch.
func (l *Listener) resync() {
	l.mu.Lock()
	for s := range l.subs {
		select {
		case s.ch <- Change{Op: OpResync}:
		default:
		}
	}
	l.mu.Unlock()
}

// Run listens until ctx is cancelled, reconnecting after connection loss.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("WARN: change feed: %v; reconnecting in %s", err, l.retryDelay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retryDelay):
		}
	}
}

// listen holds one connection until it fails.
func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background()) //nolint:errcheck

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.resync()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		c, err := decode(n)
		if err != nil {
			log.Printf("WARN: change feed: %v", err)
			continue
		}
		l.Dispatch(c)
	}
}

func decode(n *pgconn.Notification) (Change, error) {
	var c Change
	if n.Channel != Channel {
		return c, fmt.Errorf("unexpected channel %q", n.Channel)
	}
	if err := json.Unmarshal([]byte(n.Payload), &c); err != nil {
		return c, fmt.Errorf("decode payload %q: %w", n.Payload, err)
	}
	if c.Table == "" {
		return c, fmt.Errorf("payload %q has no table", n.Payload)
	}
	return c, nil
}
