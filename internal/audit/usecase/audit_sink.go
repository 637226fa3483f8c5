package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	auditDomain "github.com/heirclark/dataguard/internal/audit/domain"
	"github.com/heirclark/dataguard/internal/metrics"
)

// Sink defaults.
const (
	DefaultBatchSize       = 50
	DefaultFlushInterval   = 5 * time.Second
	DefaultFlushTimeout    = 10 * time.Second
	DefaultMaxQueueSize    = 10000
	DefaultBreakerFailures = 5

	scrubRetention = 24 * time.Hour
)

// SinkConfig holds AuditSink tuning. Zero values take the defaults.
type SinkConfig struct {
	BatchSize       int
	FlushInterval   time.Duration
	FlushTimeout    time.Duration
	MaxQueueSize    int
	BreakerFailures uint32
}

func (c SinkConfig) withDefaults() SinkConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = DefaultFlushTimeout
	}
	if c.MaxQueueSize < c.BatchSize {
		c.MaxQueueSize = max(DefaultMaxQueueSize, c.BatchSize)
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = DefaultBreakerFailures
	}
	return c
}

// AuditSink batches audit entries in memory and persists them with multi-row inserts.
//
// Log appends under a mutex and never touches the database. A single background
// goroutine flushes every FlushInterval, and immediately once BatchSize entries
// are waiting. Flushes are serialized by flushMu. A failed batch goes back to
// the front of the queue in its original order and is retried on the next
// cycle, so an entry that reached the database before an ambiguous failure may
// be written twice.
//
// A circuit breaker stops hitting the database after BreakerFailures consecutive
// failed flushes and lets one attempt through per FlushInterval until it succeeds.
//
// Entries referencing a user under erasure are parked outside the queue between
// ScrubUser and CommitScrub or ReleaseUser, so they are never flushed with an
// identity the erasure may still remove.
type AuditSink struct {
	repo    AuditLogRepository
	logger  *slog.Logger
	metrics metrics.BusinessMetrics
	clock   clockwork.Clock
	breaker *gobreaker.CircuitBreaker
	cfg     SinkConfig

	mu       sync.Mutex
	queue    []*auditDomain.AuditLog
	parked   map[string]*parkedEntries
	scrubbed map[string]time.Time

	flushMu sync.Mutex
	trigger chan struct{}

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

// parkedEntries are held back for one user while erasures for that user run.
type parkedEntries struct {
	holds   int
	entries []*auditDomain.AuditLog
}

// NewAuditSink creates a stopped AuditSink. Call Start, or use Run.
func NewAuditSink(
	repo AuditLogRepository,
	logger *slog.Logger,
	m metrics.BusinessMetrics,
	clock clockwork.Clock,
	cfg SinkConfig,
) *AuditSink {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if m == nil {
		m = metrics.NewNoOpBusinessMetrics()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &AuditSink{
		repo:     repo,
		logger:   logger,
		metrics:  m,
		clock:    clock,
		cfg:      cfg,
		parked:   make(map[string]*parkedEntries),
		scrubbed: make(map[string]time.Time),
		trigger:  make(chan struct{}, 1),
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-flush",
		MaxRequests: 1,
		Timeout:     cfg.FlushInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("audit flush circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return s
}

// Log enqueues entry, filling ID and CreatedAt when unset.
//
// When the queue already holds MaxQueueSize entries the new entry is dropped and
// the drop is reported to the operator log and metrics.
func (s *AuditSink) Log(ctx context.Context, entry *auditDomain.AuditLog) {
	if entry == nil {
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.Must(uuid.NewV7())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now().UTC()
	}

	s.mu.Lock()
	if len(s.queue) >= s.cfg.MaxQueueSize {
		s.mu.Unlock()
		s.logger.Error("audit queue full, entry dropped",
			slog.String("audit_log_id", entry.ID.String()),
			slog.String("action", entry.Action.String()),
			slog.Int("max_queue_size", s.cfg.MaxQueueSize),
		)
		s.metrics.RecordOperation(ctx, "audit", "log_dropped", metrics.StatusError)
		return
	}
	s.scrubLocked(entry)
	if s.parkLocked(entry) {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, entry)
	n := len(s.queue)
	s.mu.Unlock()

	s.notify(n)
}

// Flush persists up to BatchSize queued entries in one insert. On failure the
// entries are put back at the front of the queue and the error, wrapping
// ErrFlushFailed, is returned to the flush caller only.
func (s *AuditSink) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	batch := s.take(s.cfg.BatchSize)
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	flushCtx, cancel := context.WithTimeout(ctx, s.cfg.FlushTimeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.repo.CreateBatch(flushCtx, batch)
	})
	if err != nil {
		s.requeue(batch)
		s.logger.Error("audit flush failed, entries re-queued",
			slog.Int("batch_size", len(batch)),
			slog.Int("queue_len", s.Len()),
			slog.Any("error", err),
		)
		s.metrics.RecordOperation(ctx, "audit", "flush", metrics.StatusError)
		s.metrics.RecordDuration(ctx, "audit", "flush", time.Since(start), metrics.StatusError)
		return fmt.Errorf("%w: %w", auditDomain.ErrFlushFailed, err)
	}

	s.metrics.RecordOperation(ctx, "audit", "flush", metrics.StatusSuccess)
	s.metrics.RecordDuration(ctx, "audit", "flush", time.Since(start), metrics.StatusSuccess)
	return nil
}

// Drain flushes until the queue is empty or a flush fails.
func (s *AuditSink) Drain(ctx context.Context) error {
	for s.Len() > 0 {
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the background flush goroutine. Calling Start on a running sink
// is a no-op.
func (s *AuditSink) Start() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
}

// Stop ends the background goroutine and drains the queue. Entries that still
// cannot be persisted stay queued and the flush error is returned.
func (s *AuditSink) Stop(ctx context.Context) error {
	s.lifecycleMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := s.Drain(ctx); err != nil {
		s.logger.Error("audit sink stopped with unflushed entries",
			slog.Int("queue_len", s.Len()),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// Run starts the sink, calls fn and always stops the sink afterwards, so queued
// entries are flushed even when fn fails or ctx is cancelled.
func (s *AuditSink) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	s.Start()
	defer func() {
		err = errors.Join(err, s.Stop(context.WithoutCancel(ctx)))
	}()

	return fn(ctx)
}

// ScrubUser moves queued entries that reference userID out of the queue and
// parks new ones until CommitScrub or ReleaseUser is called for userID. It waits
// for an in-flight flush, so once it returns no entry for userID can be written.
// Calls nest: entries stay parked until every ScrubUser has been matched.
// Returns the number of entries moved out of the queue.
func (s *AuditSink) ScrubUser(userID string) int {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.parked[userID]
	if !ok {
		p = &parkedEntries{}
		s.parked[userID] = p
	}
	p.holds++

	kept := make([]*auditDomain.AuditLog, 0, len(s.queue))
	count := 0
	for _, entry := range s.queue {
		if entry.References(userID) {
			p.entries = append(p.entries, entry)
			count++
			continue
		}
		kept = append(kept, entry)
	}
	s.queue = kept
	return count
}

// CommitScrub anonymizes the entries parked for userID, puts them back at the
// front of the queue and keeps anonymizing new entries for the user for the next
// 24 hours. Erasure calls it after its transaction commits. Returns the number
// of parked entries anonymized.
func (s *AuditSink) CommitScrub(userID string) int {
	s.mu.Lock()

	filter := auditDomain.AnonymizationPolicy{}.ForUser(userID, s.clock.Now())
	s.scrubbed[userID] = filter.AnonymizedAt

	var released []*auditDomain.AuditLog
	if p, ok := s.parked[userID]; ok {
		released = p.entries
		p.entries = nil
		s.dropHoldLocked(userID, p)
	}
	for _, entry := range released {
		entry.Anonymize(filter.AnonymizedAt, filter.Reason)
	}
	s.queue = append(released, s.queue...)
	n := len(s.queue)
	s.mu.Unlock()

	s.notify(n)
	return len(released)
}

// ReleaseUser ends one ScrubUser hold for userID without anonymizing anything.
// Erasure calls it when its transaction fails. Once no hold is left the parked
// entries go back to the front of the queue unchanged.
func (s *AuditSink) ReleaseUser(userID string) {
	s.mu.Lock()

	p, ok := s.parked[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if !s.dropHoldLocked(userID, p) {
		s.mu.Unlock()
		return
	}

	restored := make([]*auditDomain.AuditLog, 0, len(p.entries))
	for _, entry := range p.entries {
		s.scrubLocked(entry)
		if !s.parkLocked(entry) {
			restored = append(restored, entry)
		}
	}
	s.queue = append(restored, s.queue...)
	n := len(s.queue)
	s.mu.Unlock()

	s.notify(n)
}

// Parked returns the number of entries held back by ScrubUser.
func (s *AuditSink) Parked() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.parked {
		n += len(p.entries)
	}
	return n
}

// Len returns the number of queued entries. Parked entries are not counted.
func (s *AuditSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *AuditSink) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.flushPending(ctx, true)
		case <-s.trigger:
			s.flushPending(ctx, false)
		}
	}
}

// flushPending flushes full batches, or everything when all is set, stopping at
// the first failure.
func (s *AuditSink) flushPending(ctx context.Context, all bool) {
	for {
		n := s.Len()
		if n == 0 || (!all && n < s.cfg.BatchSize) {
			return
		}
		if err := s.Flush(ctx); err != nil {
			return
		}
	}
}

func (s *AuditSink) take(n int) []*auditDomain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	n = min(n, len(s.queue))
	if n == 0 {
		return nil
	}

	batch := slices.Clone(s.queue[:n])
	s.queue = slices.Clone(s.queue[n:])
	s.pruneScrubbedLocked()
	return batch
}

func (s *AuditSink) requeue(batch []*auditDomain.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*auditDomain.AuditLog, 0, len(batch))
	for _, entry := range batch {
		s.scrubLocked(entry)
		if !s.parkLocked(entry) {
			kept = append(kept, entry)
		}
	}
	s.queue = append(kept, s.queue...)
}

func (s *AuditSink) notify(queued int) {
	if queued < s.cfg.BatchSize {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// parkLocked holds entry back when it references a user under erasure.
func (s *AuditSink) parkLocked(entry *auditDomain.AuditLog) bool {
	for userID, p := range s.parked {
		if entry.References(userID) {
			p.entries = append(p.entries, entry)
			return true
		}
	}
	return false
}

// dropHoldLocked ends one hold on p and reports whether it was the last one.
func (s *AuditSink) dropHoldLocked(userID string, p *parkedEntries) bool {
	p.holds--
	if p.holds > 0 {
		return false
	}
	delete(s.parked, userID)
	return true
}

func (s *AuditSink) scrubLocked(entry *auditDomain.AuditLog) {
	if len(s.scrubbed) == 0 {
		return
	}
	now := s.clock.Now()
	for userID := range s.scrubbed {
		if entry.References(userID) {
			entry.Anonymize(now, auditDomain.ReasonErasure)
			return
		}
	}
}

func (s *AuditSink) pruneScrubbedLocked() {
	now := s.clock.Now()
	for userID, at := range s.scrubbed {
		if now.Sub(at) > scrubRetention {
			delete(s.scrubbed, userID)
		}
	}
}
