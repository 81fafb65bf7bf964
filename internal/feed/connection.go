package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daszybak/fastbet/internal/polymarket/websocket"
)

const (
	DefaultKeepaliveInterval = 10 * time.Second
	closeTimeout             = 5 * time.Second
)

type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session is one open market channel connection.
type Session interface {
	Subscribe(ctx context.Context, tokenIDs []string) error
	Keepalive(ctx context.Context) error
	ReadFrame() ([]byte, error)
	Close(ctx context.Context) error
}

type DialFunc func(ctx context.Context) (Session, error)

// WebsocketDialer dials the Polymarket market channel at url.
func WebsocketDialer(url string, readTimeout time.Duration) DialFunc {
	return func(ctx context.Context) (Session, error) {
		c, err := websocket.Dial(ctx, url, readTimeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type ConnectionConfig struct {
	KeepaliveInterval time.Duration
	BackoffInitial    time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration
}

// Connection streams quotes for a fixed set of tokens into a Store and
// reconnects with backoff until stopped. Changing the token set means
// replacing the connection.
type Connection struct {
	tokenIDs  []string
	dial      DialFunc
	store     *Store
	keepalive time.Duration
	backoff   *Backoff
	metrics   *Metrics
	logger    *slog.Logger

	// sleep waits between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error

	state atomic.Int32
	// detached is set once a newer connection owns the state gauge.
	detached atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewConnection(tokenIDs []string, dial DialFunc, store *Store, cfg ConnectionConfig, metrics *Metrics, logger *slog.Logger) *Connection {
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Connection{
		tokenIDs:  tokenIDs,
		dial:      dial,
		store:     store,
		keepalive: cfg.KeepaliveInterval,
		backoff:   NewBackoff(cfg.BackoffInitial, cfg.BackoffMultiplier, cfg.BackoffMax),
		metrics:   metrics,
		logger:    logger.With("component", "feed_connection"),
		sleep:     sleepContext,
		done:      make(chan struct{}),
	}
}

// Start runs the connection in the background. Calling it again is a no-op.
func (c *Connection) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Stop cancels the connection and waits for it to wind down or for ctx to expire.
func (c *Connection) Stop(ctx context.Context) error {
	c.mu.Lock()
	started, cancel := c.started, c.cancel
	c.mu.Unlock()

	if !started {
		return nil
	}
	cancel()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop feed connection: %w", ctx.Err())
	}
}

// Done is closed once a started connection has fully stopped.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) State() State {
	return State(c.state.Load())
}

// TokenIDs returns the subscription of this connection.
func (c *Connection) TokenIDs() []string {
	return append([]string(nil), c.tokenIDs...)
}

func (c *Connection) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if !c.detached.Load() {
		c.metrics.State.Set(float64(s))
	}
	if prev != s {
		c.logger.Debug("state changed", "from", prev, "to", s)
	}
}

// detachStateGauge stops c from writing the shared state gauge. The
// supervisor calls it before a replacement connection starts.
func (c *Connection) detachStateGauge() {
	c.detached.Store(true)
}

func (c *Connection) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateIdle)

	c.logger.Info("starting", "tokens", len(c.tokenIDs))

	for {
		c.setState(StateConnecting)
		err := c.connect(ctx)
		if ctx.Err() != nil {
			c.logger.Info("stopped", "reason", ctx.Err())
			return
		}

		c.setState(StateDisconnected)
		c.metrics.Disconnects.Inc()

		wait := c.backoff.Next()
		c.logger.Warn("disconnected, reconnecting", "error", err, "backoff", wait)
		if err := c.sleep(ctx, wait); err != nil {
			c.logger.Info("stopped", "reason", err)
			return
		}
	}
}

// connect dials, subscribes and streams until the session fails or ctx is
// done. The session is closed before it returns.
func (c *Connection) connect(ctx context.Context) error {
	sess, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	if err := sess.Subscribe(ctx, c.tokenIDs); err != nil {
		c.closeSession(sess)
		return fmt.Errorf("subscribe: %w", err)
	}
	c.metrics.Connects.Inc()
	c.setState(StateSubscribed)
	c.logger.Info("subscribed", "tokens", len(c.tokenIDs))

	return c.stream(ctx, sess)
}

// stream dispatches frames in arrival order on the calling goroutine while
// one goroutine reads and another sends keepalives.
func (c *Connection) stream(ctx context.Context, sess Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte)
	errCh := make(chan error, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			frame, err := sess.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.keepalive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sess.Keepalive(ctx); err != nil {
					errCh <- fmt.Errorf("keepalive: %w", err)
					return
				}
			}
		}
	}()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case err = <-errCh:
			break loop
		case frame := <-frames:
			c.dispatch(frame)
		}
	}

	// Closing the session unblocks the reader.
	cancel()
	c.closeSession(sess)
	wg.Wait()

	return err
}

func (c *Connection) closeSession(sess Session) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := sess.Close(ctx); err != nil {
		c.logger.Debug("close session", "error", err)
	}
}

func (c *Connection) dispatch(frame []byte) {
	c.metrics.Frames.Inc()

	results := websocket.Decode(frame)
	applied, skipped := websocket.Apply(results, c.store)

	c.metrics.Observations.Add(float64(applied))
	if skipped == 0 {
		return
	}
	c.metrics.Skipped.Add(float64(skipped))
	for _, r := range results {
		if r.Skipped() {
			c.logger.Debug("skipped message", "event_type", r.EventType, "error", r.Err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
