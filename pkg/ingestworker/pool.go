package ingestworker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job is one asynchronous ingestion. Invocations are independent and
// stateless, so jobs carry no ordering key: any idle worker may take any job.
type Job struct {
	MessageID string
	Handler   func(ctx context.Context)
}

// PoolStats is the live metrics snapshot exposed by the monitoring endpoint.
type PoolStats struct {
	NumWorkers      int   `json:"num_workers"`
	QueueSize       int   `json:"queue_size"`
	QueueDepth      int   `json:"queue_depth"`
	ActiveWorkers   int   `json:"active_workers"`
	TotalDispatched int64 `json:"total_dispatched"`
	TotalProcessed  int64 `json:"total_processed"`
	TotalDropped    int64 `json:"total_dropped"`
}

// Pool runs ingestions on a bounded set of workers so one slow remote fetch
// cannot stall the rest.
type Pool struct {
	numWorkers int
	queue      chan Job
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    atomic.Bool

	active          atomic.Int32
	totalDispatched atomic.Int64
	totalProcessed  atomic.Int64
	totalDropped    atomic.Int64
}

func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 10
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		numWorkers: numWorkers,
		queue:      make(chan Job, queueSize),
	}
}

// Start launches the workers. They exit when ctx is canceled or Stop runs.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	logrus.Infof("[WORKER] Ingestion pool started (workers=%d queue=%d)", p.numWorkers, cap(p.queue))
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.active.Add(1)
			job.Handler(ctx)
			p.active.Add(-1)
			p.totalProcessed.Add(1)
			logrus.Debugf("[WORKER] Worker %d finished ingestion for message %s", id, job.MessageID)
		}
	}
}

// TryDispatch enqueues a job without blocking. Returns false when the pool
// is stopped or the queue is saturated; admission control belongs to the
// caller, so a full queue drops the job rather than applying backpressure.
func (p *Pool) TryDispatch(job Job) bool {
	if p.stopped.Load() {
		return false
	}
	select {
	case p.queue <- job:
		p.totalDispatched.Add(1)
		return true
	default:
		p.totalDropped.Add(1)
		logrus.Warnf("[WORKER] Queue full, dropping ingestion for message %s", job.MessageID)
		return false
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		close(p.queue)
		p.wg.Wait()
		logrus.Info("[WORKER] Ingestion pool stopped")
	})
}

func (p *Pool) Stats() PoolStats {
	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       cap(p.queue),
		QueueDepth:      len(p.queue),
		ActiveWorkers:   int(p.active.Load()),
		TotalDispatched: p.totalDispatched.Load(),
		TotalProcessed:  p.totalProcessed.Load(),
		TotalDropped:    p.totalDropped.Load(),
	}
}
