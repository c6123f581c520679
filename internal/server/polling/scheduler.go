package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/casely/internal/logging"
	"github.com/dmitrijs2005/casely/internal/server/archive"
	"github.com/dmitrijs2005/casely/internal/server/metrics"
)

var ErrAlreadyRunning = errors.New("poller already running")

// Status is a point-in-time view of the poller.
type Status struct {
	Running     bool         `json:"running"`
	Ready       bool         `json:"ready"`
	Paused      bool         `json:"paused"`
	Cycles      int64        `json:"cycles"`
	LastBatch   *BatchResult `json:"last_batch,omitempty"`
	LastSweep   *SweepResult `json:"last_sweep,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
	LastErrorAt *time.Time   `json:"last_error_at,omitempty"`
}

// Poller owns the ingestion loop. Create it with New, then either call Run
// on a goroutine of your own or use Start/Stop.
type Poller struct {
	cfg         Config
	fetcher     Fetcher
	contracts   ContractStore
	cursor      CursorStore
	credentials CredentialStore
	archiver    archive.Archiver
	metrics     metrics.Provider
	log         logging.Logger
	now         func() time.Time

	control chan ControlMessage

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, deps Deps) *Poller {
	if cfg.ControlBuffer <= 0 {
		cfg.ControlBuffer = 8
	}
	p := &Poller{
		cfg:         cfg,
		fetcher:     deps.Fetcher,
		contracts:   deps.Contracts,
		cursor:      deps.Cursor,
		credentials: deps.Credentials,
		archiver:    deps.Archiver,
		metrics:     deps.Metrics,
		log:         deps.Logger,
		now:         time.Now,
		control:     make(chan ControlMessage, cfg.ControlBuffer),
	}
	if p.archiver == nil {
		p.archiver = archive.Noop{}
	}
	if p.metrics == nil {
		p.metrics = metrics.New(false, nil)
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	p.log = p.log.With("module", "poller")
	return p
}

// Submit queues msg without blocking. When the queue is full the oldest
// message is dropped; only the latest message matters at the next tick.
func (p *Poller) Submit(msg ControlMessage) {
	for {
		select {
		case p.control <- msg:
			return
		default:
		}
		select {
		case <-p.control:
		default:
		}
	}
}

// Start runs the loop on a new goroutine until Stop is called or ctx ends.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return nil
}

// Stop asks the loop to exit and waits for it. A batch in progress is
// finished first.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done

	p.mu.Lock()
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
}

// Run loops until ctx is cancelled. Cancellation is only observed between
// ticks and while idle; a running batch or sweep always completes.
func (p *Poller) Run(ctx context.Context) {
	p.setRunning(true)
	defer p.setRunning(false)

	p.log.Info(ctx, "poller started",
		"page_size", p.cfg.PageSize,
		"cycle_interval", p.cfg.CycleInterval.String(),
		"refresh_ttl", p.cfg.RefreshTTL.String())

	for ctx.Err() == nil {
		p.tick(ctx)
		if !p.idle(ctx, p.cfg.CycleInterval) {
			break
		}
	}
	p.log.Info(context.WithoutCancel(ctx), "poller stopped")
}

func (p *Poller) tick(ctx context.Context) {
	work := context.WithoutCancel(ctx)

	p.applyControl(work)

	ready, err := p.credentials.IsReady(work)
	paused := p.credentials.Paused()
	p.metrics.SetPaused(paused)
	p.update(func(s *Status) {
		s.Ready, s.Paused = ready, paused
		s.Cycles++
	})
	if err != nil {
		p.recordError(work, "credential check failed", err)
		return
	}
	if !ready {
		p.log.Debug(work, "credential not ready, idling", "paused", paused)
		return
	}

	p.guard(work, "batch", func() error {
		res, err := p.PollOnce(work)
		p.metrics.ObserveBatch(res.Created, res.Changed, res.Unchanged, res.Aborted, res.Duration)
		if stored, cerr := p.cursor.Stored(work); cerr == nil {
			p.metrics.SetCursor(stored)
		}
		p.update(func(s *Status) { s.LastBatch = &res })
		p.log.Info(work, "batch finished",
			"created", res.Created, "changed", res.Changed, "unchanged", res.Unchanged,
			"pages", res.Pages, "cursor", res.CursorAfter, "aborted", res.Aborted, "reason", res.Reason)
		return err
	})

	if p.cfg.RefreshTTL <= 0 || p.credentials.Paused() {
		return
	}
	p.guard(work, "sweep", func() error {
		res, err := p.RefreshStale(work)
		p.metrics.ObserveSweep(res.Refreshed, res.Duration)
		p.update(func(s *Status) { s.LastSweep = &res })
		if res.Candidates > 0 {
			p.log.Info(work, "sweep finished",
				"candidates", res.Candidates, "refreshed", res.Refreshed, "stopped", res.Stopped, "reason", res.Reason)
		}
		return err
	})
}

// applyControl drains the queue and applies only the newest message.
func (p *Poller) applyControl(ctx context.Context) {
	var latest ControlMessage
	for drained := false; !drained; {
		select {
		case m := <-p.control:
			latest = m
		default:
			drained = true
		}
	}

	switch m := latest.(type) {
	case nil:
	case ControlSetCredential:
		changed, err := p.credentials.Save(ctx, m.credential())
		if err != nil {
			p.recordError(ctx, "failed to save credential", err)
			return
		}
		p.log.Info(ctx, "credential set", "changed", changed)
	case ControlClearCredential:
		if err := p.credentials.Clear(ctx); err != nil {
			p.recordError(ctx, "failed to clear credential", err)
			return
		}
		p.log.Info(ctx, "credential cleared")
	}
}

// guard runs fn, logging its error or panic instead of ending the loop.
func (p *Poller) guard(ctx context.Context, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			p.recordError(ctx, name+" panicked", fmt.Errorf("%v", r))
		}
	}()
	if err := fn(); err != nil {
		p.recordError(ctx, name+" failed", err)
	}
}

func (p *Poller) recordError(ctx context.Context, msg string, err error) {
	p.log.Error(ctx, msg, "error", err)
	at := p.now()
	p.update(func(s *Status) {
		s.LastError = fmt.Sprintf("%s: %v", msg, err)
		s.LastErrorAt = &at
	})
}

// idle waits d and reports false if ctx ended first.
func (p *Poller) idle(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// sleep paces requests inside a unit of work.
func (p *Poller) sleep(ctx context.Context, d time.Duration) {
	p.idle(ctx, d)
}

func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.status
	return s
}

func (p *Poller) update(fn func(s *Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.status)
}

func (p *Poller) setRunning(v bool) {
	p.update(func(s *Status) { s.Running = v })
}
