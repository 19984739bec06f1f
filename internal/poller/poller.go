// Package poller runs the poll-validate-notify loop.
//
// Every cycle asks the review API for statuses changed since the checkpoint,
// turns each new status into a verdict message and delivers it. The checkpoint
// only advances once every message of the batch reached the primary channel,
// so a failed delivery is retried on the next cycle. Statuses already
// delivered for a homework are not sent again. A record that cannot be turned
// into a verdict is skipped and reported as a failure.
//
// A failed cycle is reported to the chat as well, but only when its message
// differs from the last reported one; a successful cycle clears that memory.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cexll/homework-bot/internal/checkpoint"
	"github.com/cexll/homework-bot/internal/history"
	"github.com/cexll/homework-bot/internal/notifier"
	"github.com/cexll/homework-bot/internal/practicum"
	"github.com/cexll/homework-bot/internal/verdict"
)

// FailurePrefix starts every error report sent to the chat.
const FailurePrefix = "Сбой в работе программы: "

// APIClient fetches validated API answers.
type APIClient interface {
	GetAPIAnswer(ctx context.Context, fromDate int64) (*practicum.Answer, error)
}

// Deliverer sends a message to the configured channels.
type Deliverer interface {
	Deliver(ctx context.Context, text string) notifier.Delivery
}

// Config controls the loop.
type Config struct {
	Interval time.Duration
	// InitialFromDate is used when the store has no checkpoint; zero means now.
	InitialFromDate int64
}

// Snapshot is a point-in-time view of the poller state.
type Snapshot struct {
	Checkpoint    int64             `json:"checkpoint"`
	Interval      string            `json:"interval"`
	Cycles        int               `json:"cycles"`
	Sent          int               `json:"sent"`
	LastPollAt    *time.Time        `json:"last_poll_at,omitempty"`
	LastSuccessAt *time.Time        `json:"last_success_at,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
	Statuses      map[string]string `json:"statuses"`
}

// Poller polls the review API and notifies about status changes.
type Poller struct {
	client    APIClient
	deliverer Deliverer
	store     checkpoint.Store
	catalog   *verdict.Catalog
	history   *history.Store
	logger    *zap.Logger
	cfg       Config

	now   func() time.Time
	newID func() string

	mu            sync.RWMutex
	loaded        bool
	checkpoint    int64
	lastReported  string
	lastStatuses  map[string]string
	cycles        int
	sent          int
	lastPollAt    time.Time
	lastSuccessAt time.Time
	lastError     string
}

// New creates a poller. history may be nil.
func New(client APIClient, deliverer Deliverer, store checkpoint.Store, catalog *verdict.Catalog, hist *history.Store, logger *zap.Logger, cfg Config) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = verdict.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 600 * time.Second
	}
	return &Poller{
		client:       client,
		deliverer:    deliverer,
		store:        store,
		catalog:      catalog,
		history:      hist,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
		newID:        uuid.NewString,
		lastStatuses: make(map[string]string),
	}
}

// Run loads the checkpoint and polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.init(ctx); err != nil {
		return err
	}

	p.logger.Info("poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int64("from_date", p.Checkpoint()))

	for {
		_ = p.Cycle(ctx)

		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("poller stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce loads the checkpoint and runs a single cycle.
func (p *Poller) RunOnce(ctx context.Context) error {
	return p.Cycle(ctx)
}

func (p *Poller) init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}

	value, ok, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	switch {
	case ok:
		p.checkpoint = value
	case p.cfg.InitialFromDate > 0:
		p.checkpoint = p.cfg.InitialFromDate
	default:
		p.checkpoint = p.now().Unix()
	}
	p.loaded = true
	return nil
}

// Cycle runs one poll-validate-notify pass, loading the checkpoint first if
// needed. Failures are reported to the chat (deduplicated) and returned.
func (p *Poller) Cycle(ctx context.Context) error {
	if err := p.init(ctx); err != nil {
		return err
	}
	log := p.logger.With(zap.String("cycle_id", p.newID()))

	p.mu.Lock()
	p.cycles++
	p.lastPollAt = p.now()
	p.mu.Unlock()

	err := p.poll(ctx, log)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		p.reportFailure(ctx, log, err)
		return err
	}

	p.mu.Lock()
	p.lastReported = ""
	p.lastError = ""
	p.lastSuccessAt = p.now()
	p.mu.Unlock()
	return nil
}

func (p *Poller) poll(ctx context.Context, log *zap.Logger) error {
	fromDate := p.Checkpoint()

	answer, err := p.client.GetAPIAnswer(ctx, fromDate)
	if err != nil {
		return err
	}

	if len(answer.Homeworks) == 0 {
		log.Debug("no new homework statuses", zap.Int64("from_date", fromDate))
	}

	allDelivered := true
	// Broken records are reported but never hold back valid ones.
	var invalid []error
	// The API lists the most recent homework first.
	for i := len(answer.Homeworks) - 1; i >= 0; i-- {
		hw := answer.Homeworks[i]

		message, err := practicum.ParseStatus(hw, p.catalog)
		if err != nil {
			log.Warn("skipping homework", zap.String("homework", hw.HomeworkName), zap.Error(err))
			invalid = append(invalid, err)
			continue
		}

		if p.alreadyDelivered(hw) {
			log.Debug("status already delivered",
				zap.String("homework", hw.HomeworkName),
				zap.String("status", hw.Status))
			continue
		}

		d := p.deliverer.Deliver(ctx, message)
		p.record(history.KindStatus, hw, message, d)
		if !d.OK() {
			allDelivered = false
			continue
		}

		p.mu.Lock()
		p.lastStatuses[hw.HomeworkName] = hw.Status
		p.sent++
		p.mu.Unlock()

		log.Info("homework status sent",
			zap.String("homework", hw.HomeworkName),
			zap.String("status", hw.Status))
	}

	if !allDelivered {
		log.Warn("checkpoint kept until every status is delivered", zap.Int64("from_date", fromDate))
	} else {
		p.advance(ctx, log, answer.CurrentDate)
	}
	return errors.Join(invalid...)
}

func (p *Poller) alreadyDelivered(hw practicum.Homework) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status, ok := p.lastStatuses[hw.HomeworkName]
	return ok && status == hw.Status
}

func (p *Poller) advance(ctx context.Context, log *zap.Logger, next int64) {
	p.mu.Lock()
	p.checkpoint = next
	p.mu.Unlock()

	if err := p.store.Save(ctx, next); err != nil {
		log.Error("failed to persist checkpoint", zap.Int64("from_date", next), zap.Error(err))
		return
	}
	log.Debug("checkpoint advanced", zap.Int64("from_date", next))
}

func (p *Poller) reportFailure(ctx context.Context, log *zap.Logger, err error) {
	message := FailurePrefix + err.Error()
	log.Error(message, zap.Error(err))

	p.mu.Lock()
	p.lastError = err.Error()
	duplicate := message == p.lastReported
	p.mu.Unlock()

	if duplicate {
		log.Debug("failure already reported")
		return
	}

	d := p.deliverer.Deliver(ctx, message)
	p.record(history.KindError, practicum.Homework{}, message, d)
	if d.OK() {
		p.mu.Lock()
		p.lastReported = message
		p.mu.Unlock()
	}
}

func (p *Poller) record(kind history.Kind, hw practicum.Homework, text string, d notifier.Delivery) {
	if p.history == nil {
		return
	}
	n := &history.Notification{
		ID:        p.newID(),
		Kind:      kind,
		Homework:  hw.HomeworkName,
		Status:    hw.Status,
		Text:      text,
		Delivered: d.Delivered,
		CreatedAt: p.now(),
	}
	if len(d.Failed) > 0 {
		n.Failed = make(map[string]string, len(d.Failed))
		for name, err := range d.Failed {
			n.Failed[name] = err.Error()
		}
	}
	p.history.Add(n)
}

// Checkpoint returns the from_date of the next poll.
func (p *Poller) Checkpoint() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.checkpoint
}

// Snapshot returns the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		Checkpoint: p.checkpoint,
		Interval:   p.cfg.Interval.String(),
		Cycles:     p.cycles,
		Sent:       p.sent,
		LastError:  p.lastError,
		Statuses:   make(map[string]string, len(p.lastStatuses)),
	}
	if !p.lastPollAt.IsZero() {
		t := p.lastPollAt
		s.LastPollAt = &t
	}
	if !p.lastSuccessAt.IsZero() {
		t := p.lastSuccessAt
		s.LastSuccessAt = &t
	}
	for name, status := range p.lastStatuses {
		s.Statuses[name] = status
	}
	return s
}
