// Package sender delivers outbound Telegram calls off the update goroutine.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/cupbot/core/logger"
	"github.com/m3rciful/cupbot/core/telegram/netutil"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull means the chat's shard has no free slot; callers usually
	// fall back to a synchronous call.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the total capacity split evenly between shards.
	QueueSize int
	// Workers is the number of shards; each shard runs one goroutine.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize < o.Workers {
		o.QueueSize = 64 * o.Workers
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	chatID   int64
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs(extra ...slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, 0, 3+len(extra))
	attrs = append(attrs, slog.String("action", j.action))
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if j.chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", j.chatID))
	}
	return append(attrs, extra...)
}

// Dispatcher runs outbound calls on a fixed set of shards. A chat is pinned
// to one shard, so its messages go out in enqueue order while different
// chats proceed in parallel.
type Dispatcher struct {
	opts    Options
	shards  []chan job
	mu      sync.RWMutex
	closed  bool
	workers errgroup.Group
	errs    atomic.Uint64
}

// NewDispatcher starts the shard workers; zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, shards: make([]chan job, opts.Workers)}
	for i := range d.shards {
		i := i
		jobs := make(chan job, opts.QueueSize/opts.Workers)
		d.shards[i] = jobs
		d.workers.Go(func() error {
			for j := range jobs {
				d.deliver(i, j)
			}
			return nil
		})
	}
	return d
}

func (d *Dispatcher) shard(chatID int64) chan job {
	n := chatID % int64(len(d.shards))
	if n < 0 {
		n = -n
	}
	return d.shards[n]
}

// Enqueue schedules run on the shard owning chatID. run may be called more
// than once when the error is transient.
func (d *Dispatcher) Enqueue(ctx context.Context, chatID int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.shard(chatID) <- job{ctx: ctx, chatID: chatID, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until the queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
	}
	d.mu.Unlock()
	_ = d.workers.Wait()
}

func (d *Dispatcher) deliver(shard int, j job) {
	// The update context is usually done by now; keep only its values.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(j.ctx, "tg.sender", "send.start", j.attrs(slog.Int("shard", shard))...)

	attempts, err := d.attempt(ctx, j)
	elapsed := slog.Duration("elapsed", time.Since(start))
	if err != nil {
		d.errs.Add(1)
		logger.Error(j.ctx, "tg.sender", "send.fail", j.attrs(
			slog.String("err", redactToken(err.Error())),
			slog.String("error_kind", classifyError(err)),
			slog.Int("attempts", attempts),
			elapsed,
		)...)
		return
	}
	if attempts > 1 {
		logger.Info(j.ctx, "tg.sender", "send.retry.success", j.attrs(slog.Int("attempts", attempts), elapsed)...)
		return
	}
	logger.Debug(j.ctx, "tg.sender", "send.success", j.attrs(elapsed)...)
}

// attempt runs the job until it succeeds, fails permanently, runs out of
// retries or hits the deadline. It returns the number of calls made.
func (d *Dispatcher) attempt(ctx context.Context, j job) (int, error) {
	limit := d.opts.MaxRetries + 1
	for n := 1; ; n++ {
		err := j.run()
		if err == nil || n == limit || !netutil.ShouldRetry(err) {
			return n, err
		}

		delay := d.opts.RetryBackoff * time.Duration(n)
		if after, ok := netutil.RetryAfter(err); ok && after > delay {
			delay = after
		}
		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff", j.attrs(
			slog.Int("attempts", n),
			slog.Duration("backoff", delay),
			slog.String("error_kind", classifyError(err)),
		)...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, ctx.Err()
		case <-timer.C:
		}
	}
}
