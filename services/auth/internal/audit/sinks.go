package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type KafkaSink struct {
	Producer EventPublisher
	Topic    string
}

func (k KafkaSink) Record(ctx context.Context, e Event) error {
	return k.Producer.PublishEvent(ctx, k.Topic, e.Key(), e)
}

type DocumentIndexer interface {
	Index(ctx context.Context, id string, doc any) error
}

type ESSink struct {
	Indexer DocumentIndexer
}

func (s ESSink) Record(ctx context.Context, e Event) error {
	return s.Indexer.Index(ctx, e.ID, e)
}

// Async hands events to a background goroutine so slow brokers do not add
// latency to requests. Events are dropped when the buffer is full.
type Async struct {
	next    Sink
	log     *slog.Logger
	ch      chan Event
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

func NewAsync(next Sink, buffer int, log *slog.Logger) *Async {
	a := &Async{
		next:    next,
		log:     log,
		ch:      make(chan Event, buffer),
		timeout: 5 * time.Second,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) run() {
	defer a.wg.Done()
	for e := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Record(ctx, e); err != nil {
			a.log.Error("audit_publish_failed", "event", string(e.Type), "event_id", e.ID, "error", err)
		}
		cancel()
	}
}

func (a *Async) Record(_ context.Context, e Event) error {
	select {
	case a.ch <- e:
	default:
		a.log.Warn("audit_event_dropped", "event", string(e.Type), "event_id", e.ID)
	}
	return nil
}

// Close drains buffered events and stops the worker. Record must not be
// called after Close.
func (a *Async) Close() {
	a.once.Do(func() {
		close(a.ch)
		a.wg.Wait()
	})
}
