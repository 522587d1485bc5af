package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"telegram-ai-proxy/internal/domain"
	"telegram-ai-proxy/internal/infra/metrics"
)

type Task func(ctx context.Context) error

var ErrPoolStopped = errors.New("worker pool stopped")

// Pool runs tasks on a fixed set of shards. Tasks submitted with the same key
// always land on the same shard and run one at a time in submission order;
// different keys spread across shards and run in parallel.
type Pool struct {
	wg     sync.WaitGroup
	shards []chan Task
	quit   chan struct{}
	stop   sync.Once
	log    *zerolog.Logger
}

func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 4
	}
	shards := make([]chan Task, workers)
	for i := range shards {
		shards[i] = make(chan Task, queueSize)
	}
	l := logger.With().Str("component", "worker").Logger()
	return &Pool{shards: shards, quit: make(chan struct{}), log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for i, jobs := range p.shards {
		p.wg.Add(1)
		go func(id int, jobs <-chan Task) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-jobs:
					p.run(ctx, id, task)
				}
			}
		}(i, jobs)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("shard", id).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Int("shard", id).Err(err).Msg("task error")
	}
}

// Stop signals the shards to exit and waits for running tasks to return.
// Queued tasks that have not started are dropped.
func (p *Pool) Stop() {
	p.stop.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Submit queues task on the shard owning key. A full shard rejects the task
// with domain.ErrQueueFull instead of blocking the caller.
func (p *Pool) Submit(key int64, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}
	shard := p.shardFor(key)
	select {
	case p.shards[shard] <- task:
		return nil
	default:
		metrics.IncUpdateDropped()
		return fmt.Errorf("%w: shard %d", domain.ErrQueueFull, shard)
	}
}

func (p *Pool) shardFor(key int64) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	h := fnv.New32a()
	_, _ = h.Write(b[:])
	return int(h.Sum32() % uint32(len(p.shards)))
}
