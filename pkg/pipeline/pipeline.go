// Package pipeline runs inbound message handling on a fixed set of
// workers. Work is pinned to a worker by session id, so everything
// belonging to one session executes in arrival order.
package pipeline

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/utils"
)

const defaultQueueSize = 256

type Task func()

type ShardedExecutor struct {
	queues  []chan Task
	wg      sync.WaitGroup
	l       *log.Logger
	dropped metric.Int64Counter
}

type Option func(*ShardedExecutor)

func WithLogger(arg *log.Logger) Option {
	return func(e *ShardedExecutor) {
		e.l = arg
	}
}

func NewShardedExecutor(workers int, opts ...Option) *ShardedExecutor {
	if workers <= 0 {
		workers = 1
	}
	ret := &ShardedExecutor{
		queues: make([]chan Task, workers),
		l:      log.Default().Named("pipeline"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	meter := otel.GetMeterProvider().Meter("csm.pipeline")
	if counter, err := meter.Int64Counter("csm.pipeline.dropped",
		metric.WithDescription("Number of tasks dropped on full queues"),
		metric.WithUnit("{count}")); err == nil {
		ret.dropped = counter
	}
	for i := range ret.queues {
		ret.queues[i] = make(chan Task, defaultQueueSize)
		ret.wg.Add(1)
		go ret.work(i)
	}
	return ret
}

// Submit queues a task on the worker owning the session. When that
// worker's queue is full the task is dropped; live feeds favor
// recency over completeness.
func (e *ShardedExecutor) Submit(sessionID string, task Task) {
	shard := utils.SessionShard(sessionID, len(e.queues))
	select {
	case e.queues[shard] <- task:
	default:
		if e.dropped != nil {
			e.dropped.Add(context.Background(), 1)
		}
		e.l.Warn("worker queue full, dropping task",
			log.String("sessionId", sessionID),
			log.Int("shard", shard))
	}
}

// Shutdown stops accepting work and waits for queued tasks to drain.
func (e *ShardedExecutor) Shutdown() {
	for i := range e.queues {
		close(e.queues[i])
	}
	e.wg.Wait()
}

func (e *ShardedExecutor) work(shard int) {
	defer e.wg.Done()
	for task := range e.queues[shard] {
		e.run(shard, task)
	}
}

func (e *ShardedExecutor) run(shard int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			e.l.Error("task panicked",
				log.Int("shard", shard),
				log.Any("panic", r))
		}
	}()
	task()
}
