package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
)

// BroadcastServer fans messages from a single source channel out to any
// number of subscribers. Slow subscribers are skipped after a short
// timeout so one stalled consumer cannot hold back a live feed.
type BroadcastServer[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	Close()
}

const listenerTimeout = 50 * time.Millisecond

type broadcastServer[T any] struct {
	name           string
	feedKey        string
	source         <-chan T
	listeners      []chan T
	addListener    chan chan T
	removeListener chan (<-chan T)
	ctx            context.Context
	cancel         context.CancelFunc
	numRcv         int
	numSnd         int
	numSkip        int
}

type Option[T any] func(*broadcastServer[T])

// WithTelemetry tags the server's metrics with a feed key.
func WithTelemetry[T any](feedKey string) Option[T] {
	return func(b *broadcastServer[T]) {
		b.feedKey = feedKey
	}
}

func NewBroadcastServer[T any](
	name string,
	source <-chan T,
	opts ...Option[T],
) BroadcastServer[T] {
	ctx, cancel := context.WithCancel(context.Background())
	b := &broadcastServer[T]{
		name:           name,
		feedKey:        name,
		source:         source,
		addListener:    make(chan chan T),
		removeListener: make(chan (<-chan T)),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.setupMetrics()
	go b.serve()
	return b
}

func (b *broadcastServer[T]) Subscribe() <-chan T {
	ch := make(chan T)
	b.addListener <- ch
	return ch
}

func (b *broadcastServer[T]) CancelSubscription(ch <-chan T) {
	b.removeListener <- ch
}

func (b *broadcastServer[T]) Close() {
	log.Debug("closing broadcast server",
		log.String("name", b.name),
		log.Int("rcv", b.numRcv), log.Int("snd", b.numSnd), log.Int("skip", b.numSkip))
	b.cancel()
}

func (b *broadcastServer[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("csm.broadcast.%s", b.name))
	register := func(metricName, desc string, valueProvider func() int64) {
		if _, err := meter.Int64ObservableGauge(
			metricName,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(valueProvider(),
					metric.WithAttributes(
						attribute.String("name", b.name),
						attribute.String("feed", b.feedKey),
					),
				)
				return nil
			})); err != nil {
			log.Error("failed to register metric",
				log.String("metric", metricName),
				log.ErrorField(err))
		}
	}
	register("csm.broadcast.rcv", "Number of received messages",
		func() int64 { return int64(b.numRcv) })
	register("csm.broadcast.snd", "Number of sent messages",
		func() int64 { return int64(b.numSnd) })
	register("csm.broadcast.skip", "Number of skipped messages",
		func() int64 { return int64(b.numSkip) })
	register("csm.broadcast.listener", "Number of listeners",
		func() int64 { return int64(len(b.listeners)) })
}

//nolint:gocognit // single serve loop
func (b *broadcastServer[T]) serve() {
	defer func() {
		for _, listener := range b.listeners {
			if listener != nil {
				close(listener)
			}
		}
	}()
	m := sync.Mutex{}
	for {
		select {
		case <-b.ctx.Done():
			return
		case ch := <-b.addListener:
			b.listeners = append(b.listeners, ch)
		case ch := <-b.removeListener:
			m.Lock()
			for i, listener := range b.listeners {
				if listener == ch {
					b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
					close(listener)
					break
				}
			}
			m.Unlock()
		case msg := <-b.source:
			m.Lock()
			b.numRcv++
			for _, listener := range b.listeners {
				select {
				case listener <- msg:
					b.numSnd++
				case <-time.After(listenerTimeout):
					b.numSkip++
				}
			}
			m.Unlock()
		}
	}
}
