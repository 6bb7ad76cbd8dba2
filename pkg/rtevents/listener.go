package rtevents

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Listener maintains one dedicated LISTEN connection and fans each NOTIFY
// out to every subscriber of its channel. Grounded on the teacher's
// pkg/events.NotifyListener, trimmed to the roundtable case: one issue
// produces exactly one channel, so the per-channel generation bookkeeping
// that guards concurrent LISTEN/UNLISTEN races in the teacher's multi-session
// listener has no counterpart here — Subscribe/Unsubscribe only ever touch
// this issue's single channel.
type Listener struct {
	connString string
	issueID    string

	mu          sync.Mutex
	subscribers map[chan []byte]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener creates a Listener for one issue's NOTIFY channel.
func NewListener(connString, issueID string) *Listener {
	return &Listener{
		connString:  connString,
		issueID:     issueID,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Start opens the LISTEN connection and begins dispatching notifications.
// Safe to call once; call Stop to release the connection.
func (l *Listener) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, "LISTEN \""+Channel(l.issueID)+"\""); err != nil {
		_ = conn.Close(ctx)
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.loop(loopCtx, conn)
	return nil
}

// Stop closes the LISTEN connection and waits for the receive loop to exit.
func (l *Listener) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Subscribe registers ch to receive every future NOTIFY payload. The caller
// owns ch and must call Unsubscribe before closing it.
func (l *Listener) Subscribe(ch chan []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the fan-out set.
func (l *Listener) Unsubscribe(ch chan []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subscribers, ch)
}

func (l *Listener) loop(ctx context.Context, conn *pgx.Conn) {
	defer close(l.done)
	defer func() { _ = conn.Close(context.Background()) }()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("rtevents: WaitForNotification failed", "issue_id", l.issueID, "error", err)
			return
		}
		l.broadcast([]byte(notification.Payload))
	}
}

func (l *Listener) broadcast(payload []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subscribers {
		select {
		case ch <- payload:
		default:
			// Slow subscriber — drop rather than block the LISTEN loop.
		}
	}
}
