package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"
)

// Message is a rendered email body.
type Message struct {
	Subject string
	HTML    string
}

// Mail is what the transport receives.
type Mail struct {
	To      []string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

type Renderer interface {
	Render(j Job, l *loan.Loan) (Message, error)
}

// Recorder receives delivery outcomes; metrics.Collectors implements it.
type Recorder interface {
	Notification(event loan.Event, audience ledger.Audience, outcome string)
	QueueDepth(n int)
	Dropped()
}

const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

type nopRecorder struct{}

func (nopRecorder) Notification(loan.Event, ledger.Audience, string) {}
func (nopRecorder) QueueDepth(int)                                   {}
func (nopRecorder) Dropped()                                         {}

// Dispatcher sends notification batches on a bounded worker pool. Each job is
// tried once; only successful jobs reach the ledger.
type Dispatcher struct {
	mailer   Mailer
	renderer Renderer
	store    *LedgerStore
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	workers int
	queue   chan Batch

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func WithWorkers(workers, queueSize int) DispatcherOption {
	return func(d *Dispatcher) {
		if workers > 0 {
			d.workers = workers
		}
		if queueSize > 0 {
			d.queue = make(chan Batch, queueSize)
		}
	}
}

func NewDispatcher(mailer Mailer, renderer Renderer, store *LedgerStore, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		mailer:   mailer,
		renderer: renderer,
		store:    store,
		logger:   logger.With("component", "dispatcher"),
		recorder: nopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
		workers:  4,
		queue:    make(chan Batch, 256),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. They drain the queue until Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	ctx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
	d.running = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

// Stop waits for queued batches to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

// Enqueue hands the batch to the pool without blocking. A full queue drops
// the batch; its recipients stay sent:false in the ledger for a later re-run.
func (d *Dispatcher) Enqueue(b Batch) bool {
	if len(b.Jobs) == 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		d.logger.Warn("dispatcher not running, batch dropped", "loan_id", b.LoanID, "event", b.Slot.Event)
		d.recorder.Dropped()
		return false
	}
	select {
	case d.queue <- b:
		d.recorder.QueueDepth(len(d.queue))
		return true
	default:
		d.logger.Warn("dispatch queue full, batch dropped", "loan_id", b.LoanID, "event", b.Slot.Event, "jobs", len(b.Jobs))
		d.recorder.Dropped()
		return false
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for b := range d.queue {
		d.recorder.QueueDepth(len(d.queue))
		if _, err := d.Deliver(ctx, b); err != nil {
			d.logger.Error("ledger update failed", "loan_id", b.LoanID, "event", b.Slot.Event, "ref", b.Slot.Ref, "error", err)
		}
	}
}

// Send runs every job of the batch and returns receipts for the recipients of
// the jobs that succeeded. A failing job never stops the others.
func (d *Dispatcher) Send(ctx context.Context, b Batch) []ledger.Entry {
	var receipts []ledger.Entry
	for _, j := range b.Jobs {
		if err := d.sendJob(ctx, j, b.Loan); err != nil {
			d.recorder.Notification(j.Slot.Event, j.Audience, OutcomeFailed)
			d.logger.Warn("notification send failed",
				"loan_id", b.LoanID, "event", j.Slot.Event, "ref", j.Slot.Ref, "audience", j.Audience, "error", err)
			continue
		}
		d.recorder.Notification(j.Slot.Event, j.Audience, OutcomeSent)
		at := d.now()
		for _, rc := range j.Recipients {
			receipts = append(receipts, ledger.Entry{Audience: j.Audience, Key: rc.Key, Role: rc.Role, Email: rc.Email, SentAt: at})
		}
	}
	return receipts
}

func (d *Dispatcher) sendJob(ctx context.Context, j Job, l *loan.Loan) error {
	msg, err := d.renderer.Render(j, l)
	if err != nil {
		return &failure.DeliveryError{Audience: string(j.Audience), Err: err}
	}
	to := Emails(j.Recipients)
	if len(to) == 0 {
		return &failure.DeliveryError{Audience: string(j.Audience), Err: errors.New("no recipients")}
	}
	if err := d.mailer.Send(ctx, Mail{To: to, Subject: msg.Subject, HTML: msg.HTML}); err != nil {
		return &failure.DeliveryError{Audience: string(j.Audience), Err: err}
	}
	return nil
}

// Deliver sends the batch and persists the resulting receipts with a single
// ledger write. It reports how many receipts were produced.
func (d *Dispatcher) Deliver(ctx context.Context, b Batch) (int, error) {
	receipts := d.Send(ctx, b)
	if len(receipts) == 0 || d.store == nil {
		return len(receipts), nil
	}
	return len(receipts), d.store.MergeReceipts(ctx, b.LoanID, b.Slot, receipts)
}
