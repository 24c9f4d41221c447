package sandbox

import (
	"sync"

	"github.com/rs/zerolog/log"

	"cpplab-engine/internal/monitor"
)

// AdmissionQueue bounds the number of concurrent executions. Admission is
// non-blocking: when every slot is taken the request is rejected immediately
// so the caller can return a backpressure response instead of queuing.
type AdmissionQueue struct {
	sem     chan struct{}
	metrics *monitor.Metrics
}

// Permit is a held execution slot. Release returns it; releasing twice is safe.
type Permit struct {
	queue *AdmissionQueue
	once  sync.Once
}

// NewAdmissionQueue builds a queue with the given slot count. metrics may be nil.
func NewAdmissionQueue(slots int, metrics *monitor.Metrics) *AdmissionQueue {
	if slots < 1 {
		slots = 1
	}
	return &AdmissionQueue{
		sem:     make(chan struct{}, slots),
		metrics: metrics,
	}
}

// Enter tries to claim a slot. It never blocks; a saturated queue returns
// ErrQueueSaturated.
func (q *AdmissionQueue) Enter(execID string) (*Permit, error) {
	select {
	case q.sem <- struct{}{}:
		if q.metrics != nil {
			q.metrics.ActiveExecutions.Inc()
		}
		return &Permit{queue: q}, nil
	default:
		if q.metrics != nil {
			q.metrics.AdmissionRejections.Inc()
		}
		log.Warn().Str("exec_id", execID).Msg("admission rejected, queue saturated")
		return nil, wrapErr(execID, "admission", ErrQueueSaturated)
	}
}

// Release returns the slot to the queue.
func (p *Permit) Release() {
	p.once.Do(func() {
		<-p.queue.sem
		if p.queue.metrics != nil {
			p.queue.metrics.ActiveExecutions.Dec()
		}
	})
}

// InUse returns the number of currently held slots.
func (q *AdmissionQueue) InUse() int {
	return len(q.sem)
}

// Capacity returns the total slot count.
func (q *AdmissionQueue) Capacity() int {
	return cap(q.sem)
}
