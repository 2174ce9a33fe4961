// Package statuscache maintains a near-real-time in-memory view of every
// remote DAQ client's liveness, status, and recent logs.
//
// A single Service polls the upstream through the gateway on two independent
// loops (client discovery and data refresh) and serves synchronous reads
// from the cache, so UI requests never hit the upstream directly.
package statuscache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"daqpanel/internal/gateway"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Snapshot is the latest known state for one client. Snapshots are written
// by whole-value replacement and never mutated afterwards, so readers may
// hold onto one without copying.
//
// Failure policy: when a refresh fails for a client, the previous status
// payload and log history are kept and Connected flips to false. Stale data
// with an offline marker beats an empty panel.
type Snapshot struct {
	ClientID  string                `json:"client_id"`
	Connected bool                  `json:"connected"`
	Status    *gateway.ClientStatus `json:"status,omitempty"`
	Logs      []gateway.LogEntry    `json:"logs"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Upstream is the subset of the gateway the poller needs.
type Upstream interface {
	ListClients(ctx context.Context) ([]gateway.ClientInfo, error)
	Status(ctx context.Context, clientID string) (*gateway.ClientStatus, error)
	Logs(ctx context.Context, clientID string) ([]gateway.LogEntry, error)
}

// Options configures the polling cadence and limits.
type Options struct {
	// DiscoveryInterval is the cadence of the client-list poll (default 5s).
	DiscoveryInterval time.Duration

	// RefreshInterval is the cadence of the status/log refresh (default 1s).
	RefreshInterval time.Duration

	// PollConcurrency bounds how many clients are polled at once (default 16).
	PollConcurrency int

	// LogBuffer caps the number of cached log entries per client (default 200).
	LogBuffer int
}

func (o *Options) applyDefaults() {
	if o.DiscoveryInterval <= 0 {
		o.DiscoveryInterval = 5 * time.Second
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 1 * time.Second
	}
	if o.PollConcurrency <= 0 {
		o.PollConcurrency = 16
	}
	if o.LogBuffer <= 0 {
		o.LogBuffer = 200
	}
}

// Service is the status/log cache and its background poller.
// Construct with New, then call Start exactly once; Stop waits for the
// loops to drain. Reads are safe at any point, including before Start.
type Service struct {
	upstream Upstream
	opts     Options
	logger   *slog.Logger

	mu    sync.RWMutex
	known map[string]gateway.ClientInfo
	cache map[string]*Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup

	pollCycles metric.Int64Counter
	pollErrors metric.Int64Counter
}

// New creates a stopped cache service.
func New(upstream Upstream, opts Options, logger *slog.Logger) *Service {
	opts.applyDefaults()

	meter := otel.Meter("daqpanel-poller")
	cycles, _ := meter.Int64Counter("daqpanel.poll.cycles",
		metric.WithDescription("Completed refresh cycles"))
	errs, _ := meter.Int64Counter("daqpanel.poll.errors",
		metric.WithDescription("Failed per-client polls"))

	return &Service{
		upstream:   upstream,
		opts:       opts,
		logger:     logger,
		known:      make(map[string]gateway.ClientInfo),
		cache:      make(map[string]*Snapshot),
		pollCycles: cycles,
		pollErrors: errs,
	}
}

// Start launches the discovery and refresh loops. They run until the given
// context is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	// Prime the known-clients set so the first refresh has work to do.
	if err := s.RunDiscoveryOnce(ctx); err != nil {
		s.logger.Warn("initial client discovery failed", "error", err)
	}

	s.wg.Add(2)
	go s.discoveryLoop(ctx)
	go s.refreshLoop(ctx)
}

// Stop cancels the loops and waits until both have exited.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Status returns the last cached snapshot for a client. The second return
// is false when the client is unknown or has never been polled.
func (s *Service) Status(clientID string) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.cache[clientID]
	return snap, ok
}

// Logs returns the cached log entries for a client, empty if none.
func (s *Service) Logs(clientID string) []gateway.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.cache[clientID]
	if !ok || snap.Logs == nil {
		return []gateway.LogEntry{}
	}
	return snap.Logs
}

// Clients returns the current known-clients set, sorted by id.
func (s *Service) Clients() []gateway.ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]gateway.ClientInfo, 0, len(s.known))
	for _, info := range s.known {
		clients = append(clients, info)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients
}

// CacheSize reports how many clients have a cached snapshot.
func (s *Service) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Service) discoveryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.DiscoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunDiscoveryOnce(ctx); err != nil {
				s.logger.Warn("client discovery failed", "error", err)
			}
		}
	}
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunRefreshOnce(ctx)
		}
	}
}

// RunDiscoveryOnce fetches the client list and replaces the known set.
// On error the previous set is left untouched.
func (s *Service) RunDiscoveryOnce(ctx context.Context) error {
	clients, err := s.upstream.ListClients(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]gateway.ClientInfo, len(clients))
	for _, c := range clients {
		known[c.ID] = c
	}

	s.mu.Lock()
	s.known = known
	s.mu.Unlock()

	return nil
}

// RunRefreshOnce polls status and logs for every known client. Clients are
// polled concurrently under the configured limit; one client's failure
// never blocks or corrupts another's entry.
func (s *Service) RunRefreshOnce(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.known))
	for id := range s.known {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sem := make(chan struct{}, s.opts.PollConcurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		sem <- struct{}{}
		wg.Add(1)
		go func(clientID string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.pollClient(ctx, clientID)
		}(id)
	}

	wg.Wait()
	s.pollCycles.Add(ctx, 1)
}

func (s *Service) pollClient(ctx context.Context, clientID string) {
	status, err := s.upstream.Status(ctx, clientID)
	if err != nil {
		s.markOffline(ctx, clientID, err)
		return
	}

	logs, err := s.upstream.Logs(ctx, clientID)
	if err != nil {
		s.markOffline(ctx, clientID, err)
		return
	}

	if len(logs) > s.opts.LogBuffer {
		logs = logs[len(logs)-s.opts.LogBuffer:]
	}

	s.mu.Lock()
	s.cache[clientID] = &Snapshot{
		ClientID:  clientID,
		Connected: true,
		Status:    status,
		Logs:      logs,
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Unlock()
}

// markOffline replaces the client's entry with an offline snapshot that
// keeps the previous status payload and logs.
func (s *Service) markOffline(ctx context.Context, clientID string, cause error) {
	// Upstream timeouts are routine for a busy supervisor; don't log them.
	if !errors.Is(cause, gateway.ErrGatewayTimeout) {
		s.logger.Warn("client poll failed", "client_id", clientID, "error", cause)
	}
	s.pollErrors.Add(ctx, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cache[clientID]
	next := &Snapshot{
		ClientID:  clientID,
		Connected: false,
		UpdatedAt: time.Now().UTC(),
	}
	if prev != nil {
		next.Status = prev.Status
		next.Logs = prev.Logs
	}
	s.cache[clientID] = next
}
