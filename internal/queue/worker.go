package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
)

// ErrDeliveriesClosed is returned by Run when the broker closes the
// consumer while the context is still live.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Processor runs one analysis. Abandon is called when a job is dropped
// after its last attempt failed, so the analysis can be closed out.
type Processor interface {
	Process(ctx context.Context, analysisID uuid.UUID) error
	Abandon(ctx context.Context, job Job, cause error)
}

// DeliverySource starts consuming messages.
type DeliverySource interface {
	Deliveries(prefetch int) (<-chan amqp.Delivery, error)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Worker consumes jobs with a fixed number of goroutines.
type Worker struct {
	source      DeliverySource
	processor   Processor
	concurrency int
}

// NewWorker returns a worker pool of the given size (at least one).
func NewWorker(source DeliverySource, processor Processor, concurrency int) *Worker {
	return &Worker{source: source, processor: processor, concurrency: max(1, concurrency)}
}

// Run consumes until ctx is cancelled or the broker closes the consumer.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.source.Deliveries(w.concurrency)
	if err != nil {
		return err
	}

	log.Info().Int("workers", w.concurrency).Msg("starting worker pool")
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		id := i + 1
		g.Go(func() error {
			return w.loop(gctx, id, msgs)
		})
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, id int, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			w.handle(ctx, id, d)
		}
	}
}

// handle acks a processed job. Undecodable and permanently failed jobs are
// dropped; other failures are requeued once and abandoned on the second.
// Jobs interrupted by shutdown are always requeued.
func (w *Worker) handle(ctx context.Context, id int, d amqp.Delivery) {
	job, err := DecodeJob(d.Body)
	if err != nil {
		log.Error().Err(err).Int("worker", id).Msg("dropping malformed job")
		w.nack(d, false)
		return
	}

	logger := log.With().Int("worker", id).Str("analysis_id", job.AnalysisID.String()).Logger()
	logger.Info().Msg("processing analysis")

	if err := w.processor.Process(ctx, job.AnalysisID); err != nil {
		requeue := !IsPermanent(err) && (!d.Redelivered || ctx.Err() != nil)
		logger.Error().Err(err).Bool("requeue", requeue).Msg("analysis job failed")
		if !requeue && !IsPermanent(err) {
			w.processor.Abandon(ctx, job, err)
		}
		w.nack(d, requeue)
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Error().Err(err).Msg("failed to ack job")
	}
}

func (w *Worker) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		log.Error().Err(err).Uint64("tag", d.DeliveryTag).Msg("failed to nack job")
	}
}
