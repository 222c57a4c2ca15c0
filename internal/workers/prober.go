package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
)

// Pinger probes server reachability. Satisfied by adapter.RemoteStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectivitySink receives the prober's verdicts. Satisfied by
// *netmon.Monitor, which debounces offline transitions before notifying
// subscribers.
type ConnectivitySink interface {
	SetOnline(online bool)
}

// Prober periodically pings the sync server and feeds the result into the
// network monitor. A single failed ping is not taken at face value: the
// probe is retried a few times with fibonacci backoff before the device is
// reported offline, so one dropped packet does not flap connectivity.
type Prober struct {
	remote   Pinger
	sink     ConnectivitySink
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logger.Logger
}

// NewProber creates a connectivity prober. interval defaults to 15 seconds
// when zero or negative.
func NewProber(remote Pinger, sink ConnectivitySink, interval time.Duration, logger *logger.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{
		remote:   remote,
		sink:     sink,
		interval: interval,
		logger:   logger,
	}
}

// Run implements [Worker]. It probes once immediately, then keeps probing on
// the interval until Stop is called.
func (p *Prober) Run() {
	p.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		p.probe(ctx)

		t := time.NewTicker(p.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				p.probe(ctx)
			}
		}
	}()
}

// Stop halts the probing goroutine and waits for it to exit. Safe to call
// when the prober is not running.
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Prober) probe(ctx context.Context) {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.remote.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		p.logger.Debug().
			Err(err).
			Str("func", "*Prober.probe").
			Msg("server unreachable")
		p.sink.SetOnline(false)
		return
	}

	p.sink.SetOnline(true)
}
