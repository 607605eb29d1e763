package consumerWorker

import (
	"context"

	"github.com/rs/zerolog"

	"picnichub/internal/notify"
)

// Consumer is the part of rabbit.Client the reader needs.
type Consumer interface {
	Consume(handler func([]byte) error) error
}

type Reader struct {
	RMQ     Consumer
	deliver notify.Handler
	log     *zerolog.Logger
	done    chan struct{}
	cancel  context.CancelFunc
	ctx     context.Context
}

func NewReader(rmq Consumer, deliver notify.Handler, log *zerolog.Logger) *Reader {
	return &Reader{
		RMQ:     rmq,
		deliver: deliver,
		log:     log,
		done:    make(chan struct{}),
		ctx:     context.Background(),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.ctx = cctx

	r.log.Info().Msg("notification reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(r.handle); err != nil {
			r.log.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		r.log.Info().Msg("notification reader stopped by context")
	}()
}

// handle returns an error only for failures worth a redelivery. Payloads
// that cannot be decoded are logged and dropped.
func (r *Reader) handle(body []byte) error {
	in, err := notify.Decode(body)
	if err != nil {
		r.log.Error().Err(err).Msgf("dropping undecodable notification: %s", string(body))
		return nil
	}

	log := r.log.With().
		Str("intent_id", in.ID).
		Str("kind", string(in.Kind)).
		Str("registration_id", in.RegistrationID).
		Logger()

	if err := r.deliver(r.ctx, in); err != nil {
		log.Warn().Err(err).Msg("failed to deliver notification")
		return err
	}

	log.Info().Str("recipient", in.Recipient).Msg("notification delivered")
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
