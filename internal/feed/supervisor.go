package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/daszybak/fastbet/pkg/hashset"
)

// MaxTokens is how many tokens the market channel accepts on one connection.
const MaxTokens = 500

type SupervisorConfig struct {
	Connection ConnectionConfig
	// MaxTokens caps the subscription; zero or more than MaxTokens means MaxTokens.
	MaxTokens int
	// ResubscribeOnChange replaces a running connection when EnsureSubscribed
	// asks for a different token set. When false a running connection is
	// kept no matter what is asked for.
	ResubscribeOnChange bool
}

// Supervisor owns the live connection and the quote store it writes to.
type Supervisor struct {
	store   *Store
	dial    DialFunc
	cfg     SupervisorConfig
	metrics *Metrics
	logger  *slog.Logger

	// Connections outlive the callers of EnsureSubscribed, so they hang
	// off the supervisor's own context.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *Connection
}

func NewSupervisor(store *Store, dial DialFunc, cfg SupervisorConfig, metrics *Metrics, logger *slog.Logger) *Supervisor {
	if cfg.MaxTokens <= 0 || cfg.MaxTokens > MaxTokens {
		cfg.MaxTokens = MaxTokens
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		store:   store,
		dial:    dial,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With("component", "feed_supervisor"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// NormalizeTokenIDs drops blank IDs and duplicates, keeps first-seen order
// and caps the result at limit.
func NormalizeTokenIDs(ids []string, limit int) []string {
	return hashset.Unique(ids, func(id string) bool {
		return strings.TrimSpace(id) != ""
	}, limit)
}

// EnsureSubscribed starts a connection for ids unless one is already
// running, and reports whether it started one. It never blocks on the network.
func (s *Supervisor) EnsureSubscribed(ids []string) bool {
	ids = NormalizeTokenIDs(ids, s.cfg.MaxTokens)
	if len(ids) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}

	if s.runningLocked() {
		if !s.cfg.ResubscribeOnChange || sameTokens(s.conn.tokenIDs, ids) {
			return false
		}
		old := s.conn
		old.detachStateGauge()
		s.logger.Info("token set changed, replacing connection",
			"old_tokens", len(old.tokenIDs), "new_tokens", len(ids))
		go func() {
			if err := old.Stop(s.ctx); err != nil {
				s.logger.Warn("stop replaced connection", "error", err)
			}
		}()
	}

	s.conn = NewConnection(ids, s.dial, s.store, s.cfg.Connection, s.metrics, s.logger)
	s.conn.Start(s.ctx)
	s.logger.Info("started connection", "tokens", len(ids))
	return true
}

func (s *Supervisor) runningLocked() bool {
	if s.conn == nil {
		return false
	}
	select {
	case <-s.conn.Done():
		return false
	default:
		return true
	}
}

func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runningLocked()
}

// Subscribed returns the token set of the running connection, if any.
func (s *Supervisor) Subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.runningLocked() {
		return nil
	}
	return s.conn.TokenIDs()
}

// State of the current connection; StateIdle when there is none.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return StateIdle
	}
	return s.conn.State()
}

func (s *Supervisor) Quote(tokenID string) (Quote, bool) {
	return s.store.Quote(tokenID)
}

func (s *Supervisor) Quotes() map[string]Quote {
	return s.store.Quotes()
}

// Close stops the running connection. Later EnsureSubscribed calls do nothing.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.cancel()
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Stop(ctx)
}

func sameTokens(a, b []string) bool {
	return hashset.SetFromSlice(a).Equal(hashset.SetFromSlice(b))
}
