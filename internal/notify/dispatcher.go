package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("notification dispatcher stopped")
)

// Dispatcher is the in-process transport: Notify enqueues into a bounded
// buffer and a single goroutine feeds the handler.
type Dispatcher struct {
	queue   chan Intent
	handler Handler
	log     *zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
	cancel  context.CancelFunc
}

func NewDispatcher(buffer int, handler Handler, log *zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		queue:   make(chan Intent, buffer),
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
}

func (d *Dispatcher) Notify(_ context.Context, in Intent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go func() {
		defer close(d.done)
		for {
			select {
			case in, ok := <-d.queue:
				if !ok {
					return
				}
				d.handle(cctx, in)
			case <-cctx.Done():
				d.drain()
				return
			}
		}
	}()
	d.log.Info().Int("buffer", cap(d.queue)).Msg("notification dispatcher started")
}

// drain delivers what was already accepted before shutdown.
func (d *Dispatcher) drain() {
	for {
		select {
		case in := <-d.queue:
			d.handle(context.Background(), in)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, in Intent) {
	if err := d.handler(ctx, in); err != nil {
		d.log.Warn().
			Err(err).
			Str("intent_id", in.ID).
			Str("kind", string(in.Kind)).
			Str("registration_id", in.RegistrationID).
			Msg("notification delivery failed")
	}
}

func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		<-d.done
	}
	d.log.Info().Msg("notification dispatcher stopped")
}
