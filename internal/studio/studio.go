package studio

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/diagnostics"
	"github.com/RenatoCabral2022/binaural-studio/internal/metrics"
	"github.com/RenatoCabral2022/binaural-studio/internal/upload"
)

// ErrCapacity is returned when a new visitor would exceed MaxVisitors.
var ErrCapacity = errors.New("max visitors reached")

const (
	minSweepInterval = 10 * time.Millisecond
	maxSweepInterval = time.Minute
)

type Config struct {
	MaxVisitors    int
	ProcessTimeout time.Duration
	// VisitorTTL forgets forms not seen for this long. Zero keeps them
	// until Delete or Shutdown.
	VisitorTTL time.Duration
}

type visitor struct {
	form     *upload.Form
	lastSeen atomic.Int64 // unix nanos
}

func (v *visitor) touch(now time.Time) {
	v.lastSeen.Store(now.UnixNano())
}

func (v *visitor) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, v.lastSeen.Load()))
}

// Studio holds one upload form per visitor.
type Studio struct {
	cfg       Config
	processor upload.Processor
	diag      *diagnostics.Ring
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	visitors map[string]*visitor

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates an empty registry. diag may be nil. A positive VisitorTTL
// starts a janitor that runs until Shutdown.
func New(cfg Config, p upload.Processor, diag *diagnostics.Ring, logger *zap.Logger) *Studio {
	return newStudio(cfg, p, diag, logger, time.Now)
}

func newStudio(cfg Config, p upload.Processor, diag *diagnostics.Ring, logger *zap.Logger, now func() time.Time) *Studio {
	s := &Studio{
		cfg:       cfg,
		processor: p,
		diag:      diag,
		logger:    logger,
		now:       now,
		visitors:  make(map[string]*visitor),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if cfg.VisitorTTL > 0 {
		go s.janitor(min(max(cfg.VisitorTTL/2, minSweepInterval), maxSweepInterval))
	} else {
		close(s.done)
	}
	return s
}

// logTag identifies a visitor in logs without revealing the cookie value.
func logTag(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:6])
}

// Count returns the current number of visitors.
func (s *Studio) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visitors)
}

// Lookup returns the visitor's form without creating one. A hit counts as
// activity.
func (s *Studio) Lookup(id string) (*upload.Form, bool) {
	s.mu.RLock()
	v, ok := s.visitors[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v.touch(s.now())
	return v.form, true
}

// Get returns the visitor's form, creating it on first use.
func (s *Studio) Get(id string) (*upload.Form, error) {
	if f, ok := s.Lookup(id); ok {
		return f, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if v, ok := s.visitors[id]; ok {
		v.touch(now)
		return v.form, nil
	}

	// Enforce visitor cap, reclaiming expired forms first
	if len(s.visitors) >= s.cfg.MaxVisitors && s.cfg.VisitorTTL > 0 {
		s.evictLocked(now)
	}
	if len(s.visitors) >= s.cfg.MaxVisitors {
		s.logger.Warn("visitor cap reached",
			zap.Int("current", len(s.visitors)),
			zap.Int("max", s.cfg.MaxVisitors),
		)
		metrics.VisitorsRejectedTotal.Inc()
		return nil, ErrCapacity
	}

	opts := []upload.Option{upload.WithTimeout(s.cfg.ProcessTimeout)}
	if s.diag != nil {
		opts = append(opts, upload.WithDiagnostics(s.diag))
	}
	tag := logTag(id)
	v := &visitor{form: upload.New(s.processor, s.logger.With(zap.String("visitor", tag)), opts...)}
	v.touch(now)
	s.visitors[id] = v
	metrics.ActiveVisitors.Inc()
	s.logger.Info("visitor created", zap.String("visitor", tag))
	return v.form, nil
}

// Delete aborts the visitor's in-flight request and forgets the form.
func (s *Studio) Delete(id string) {
	s.mu.Lock()
	v, ok := s.visitors[id]
	if ok {
		delete(s.visitors, id)
	}
	s.mu.Unlock()

	if ok {
		v.form.Abort()
		metrics.ActiveVisitors.Dec()
		metrics.VisitorsEvictedTotal.WithLabelValues("deleted").Inc()
		s.logger.Info("visitor deleted", zap.String("visitor", logTag(id)))
	}
}

// sweep forgets every expired visitor and returns how many went.
func (s *Studio) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(s.now())
}

// evictLocked drops visitors idle for at least VisitorTTL. Forms with a
// request in flight are kept. The caller holds s.mu.
func (s *Studio) evictLocked(now time.Time) int {
	evicted := 0
	for id, v := range s.visitors {
		if v.idleFor(now) < s.cfg.VisitorTTL || v.form.State().Loading {
			continue
		}
		delete(s.visitors, id)
		evicted++
		metrics.ActiveVisitors.Dec()
		metrics.VisitorsEvictedTotal.WithLabelValues("idle").Inc()
		s.logger.Debug("visitor expired", zap.String("visitor", logTag(id)))
	}
	if evicted > 0 {
		s.logger.Info("expired idle visitors", zap.Int("evicted", evicted), zap.Int("remaining", len(s.visitors)))
	}
	return evicted
}

func (s *Studio) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// Shutdown stops the janitor, aborts every in-flight request and empties
// the registry.
func (s *Studio) Shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	visitors := s.visitors
	s.visitors = make(map[string]*visitor)
	s.mu.Unlock()

	for _, v := range visitors {
		v.form.Abort()
	}
	metrics.ActiveVisitors.Set(0)

	s.logger.Info("studio shutdown complete", zap.Int("visitors", len(visitors)))
}
