package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecord struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
	done    chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{done: make(chan struct{}, 100)}
}

func (a *fakeAcknowledger) record(r ackRecord) error {
	a.mu.Lock()
	a.records = append(a.records, r)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	return a.record(ackRecord{tag: tag, ack: true})
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	return a.record(ackRecord{tag: tag, requeue: requeue})
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.record(ackRecord{tag: tag, requeue: requeue})
}

func (a *fakeAcknowledger) wait(t *testing.T, n int) []ackRecord {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d acknowledgements", n)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ackRecord(nil), a.records...)
}

type fakeSource struct {
	msgs     chan amqp.Delivery
	prefetch int
	err      error
}

func (s *fakeSource) Deliveries(prefetch int) (<-chan amqp.Delivery, error) {
	s.prefetch = prefetch
	return s.msgs, s.err
}

type fakeProcessor struct {
	mu        sync.Mutex
	errs      map[uuid.UUID]error
	seen      []uuid.UUID
	abandoned []uuid.UUID
}

func (p *fakeProcessor) Abandon(_ context.Context, job Job, _ error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abandoned = append(p.abandoned, job.AnalysisID)
}

func (p *fakeProcessor) Process(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, id)
	return p.errs[id]
}

func delivery(ack amqp.Acknowledger, tag uint64, body []byte, redelivered bool) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body, Redelivered: redelivered}
}

func jobBody(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	body, err := json.Marshal(Job{AnalysisID: id})
	require.NoError(t, err)
	return body
}

func TestWorker_AcksAndNacks(t *testing.T) {
	ok, transient, permanent, retried := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	processor := &fakeProcessor{errs: map[uuid.UUID]error{
		transient: errors.New("database unavailable"),
		permanent: Permanent(errors.New("analysis not found")),
		retried:   errors.New("database unavailable"),
	}}

	ack := newFakeAcknowledger()
	source := &fakeSource{msgs: make(chan amqp.Delivery, 5)}
	source.msgs <- delivery(ack, 1, jobBody(t, ok), false)
	source.msgs <- delivery(ack, 2, jobBody(t, transient), false)
	source.msgs <- delivery(ack, 3, jobBody(t, permanent), false)
	source.msgs <- delivery(ack, 4, jobBody(t, retried), true)
	source.msgs <- delivery(ack, 5, []byte("garbage"), false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(source, processor, 2).Run(ctx) }()

	records := ack.wait(t, 5)
	cancel()
	require.NoError(t, <-done)

	byTag := make(map[uint64]ackRecord)
	for _, r := range records {
		byTag[r.tag] = r
	}
	assert.True(t, byTag[1].ack, "success is acked")
	assert.Equal(t, ackRecord{tag: 2, requeue: true}, byTag[2], "first transient failure is requeued")
	assert.Equal(t, ackRecord{tag: 3}, byTag[3], "permanent failure is dropped")
	assert.Equal(t, ackRecord{tag: 4}, byTag[4], "redelivered failure is dropped")
	assert.Equal(t, ackRecord{tag: 5}, byTag[5], "malformed job is dropped")

	assert.Equal(t, 2, source.prefetch)
	assert.Len(t, processor.seen, 4)
	assert.Equal(t, []uuid.UUID{retried}, processor.abandoned, "only the exhausted job is abandoned")
}

func TestWorker_ClosedDeliveries(t *testing.T) {
	source := &fakeSource{msgs: make(chan amqp.Delivery)}
	close(source.msgs)

	err := NewWorker(source, &fakeProcessor{}, 1).Run(context.Background())
	assert.ErrorIs(t, err, ErrDeliveriesClosed)
}

func TestWorker_SourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("channel not open")}

	err := NewWorker(source, &fakeProcessor{}, 3).Run(context.Background())
	assert.ErrorContains(t, err, "channel not open")
}

func TestNewWorker_MinimumConcurrency(t *testing.T) {
	w := NewWorker(&fakeSource{}, &fakeProcessor{}, 0)
	assert.Equal(t, 1, w.concurrency)
}
