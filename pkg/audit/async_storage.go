package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// AsyncOptions configures AsyncWriter. Zero values get defaults.
type AsyncOptions struct {
	BufferSize     int
	BatchSize      int
	BatchTimeout   time.Duration
	StorageTimeout time.Duration
	// Retries is how many times a failed batch is retried with backoff
	// before it is dropped and logged.
	Retries uint64
	Logger  *slog.Logger
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 100 * time.Millisecond
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// AsyncWriter queues events and writes them in batches from one goroutine,
// so request handlers never wait on the audit table. When the queue is full
// Store writes synchronously instead of dropping the event.
type AsyncWriter struct {
	storage Storage
	opts    AsyncOptions

	queue chan Event
	mu    sync.RWMutex
	done  bool
	quit  chan struct{}
	wg    sync.WaitGroup
}

// NewAsyncWriter starts the writer. Close flushes and stops it.
func NewAsyncWriter(storage Storage, opts AsyncOptions) *AsyncWriter {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	opts = opts.withDefaults()

	aw := &AsyncWriter{
		storage: storage,
		opts:    opts,
		queue:   make(chan Event, opts.BufferSize),
		quit:    make(chan struct{}),
	}
	aw.wg.Add(1)
	go aw.run()
	return aw
}

func (aw *AsyncWriter) Store(ctx context.Context, events ...Event) error {
	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.done {
		return ErrStorageNotAvailable
	}

	for i, e := range events {
		select {
		case aw.queue <- e:
		default:
			return aw.storage.Store(ctx, events[i:]...)
		}
	}
	return nil
}

// Query reads from the underlying storage. Events still queued are not visible.
func (aw *AsyncWriter) Query(ctx context.Context, criteria Criteria) ([]Event, error) {
	return aw.storage.Query(ctx, criteria)
}

func (aw *AsyncWriter) run() {
	defer aw.wg.Done()

	batch := make([]Event, 0, aw.opts.BatchSize)
	ticker := time.NewTicker(aw.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			aw.write(batch)
			batch = make([]Event, 0, aw.opts.BatchSize)
		}
	}

	for {
		select {
		case e := <-aw.queue:
			batch = append(batch, e)
			if len(batch) >= aw.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-aw.quit:
			for {
				select {
				case e := <-aw.queue:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

// write is detached from request contexts; a cancelled request must not
// lose the events of its neighbours.
func (aw *AsyncWriter) write(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), aw.opts.StorageTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(aw.opts.Retries, retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(aw.storage.Store(ctx, batch...))
	})
	if err != nil {
		aw.opts.Logger.ErrorContext(ctx, "audit events dropped",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
}

// Close rejects new events and waits for queued ones to be written or for
// ctx to expire.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.mu.Lock()
	if !aw.done {
		aw.done = true
		close(aw.quit)
	}
	aw.mu.Unlock()

	flushed := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrStorageNotAvailable, ctx.Err())
	}
}
