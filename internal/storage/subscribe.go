package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Subscription receives a signal for every committed change to one user's workouts.
// It holds a pooled connection until Close is called.
type Subscription struct {
	conn   *pgxpool.Conn
	userID string
	ch     chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

// Subscribe starts listening for workout changes of userID. Bursts of changes
// may be coalesced into one signal; receivers are expected to re-read state.
func (db *DB) Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+WorkoutsChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listening on %s: %w", WorkoutsChannel, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		conn:   conn,
		userID: userID.String(),
		ch:     make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.loop(loopCtx)
	return s, nil
}

func (s *Subscription) loop(ctx context.Context) {
	defer close(s.done)
	defer close(s.ch)
	for {
		n, err := s.conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.mu.Lock()
				s.err = fmt.Errorf("waiting for notification: %w", err)
				s.mu.Unlock()
			}
			return
		}
		if !s.matches(n) {
			continue
		}
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

func (s *Subscription) matches(n *pgconn.Notification) bool {
	return n != nil && n.Channel == WorkoutsChannel && n.Payload == s.userID
}

// Notifications yields one value per (possibly coalesced) change. It is closed
// when the subscription ends.
func (s *Subscription) Notifications() <-chan struct{} {
	return s.ch
}

// Err reports why the subscription ended, or nil if it was closed or its
// context ended.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops listening and returns the connection to the pool. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		if !s.conn.Conn().IsClosed() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_, _ = s.conn.Exec(ctx, "UNLISTEN *")
			cancel()
		}
		s.conn.Release()
	})
}
