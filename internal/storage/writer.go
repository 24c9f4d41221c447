package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Sink receives execution stats. *Store satisfies it.
type Sink interface {
	InsertStat(ctx context.Context, stat *ExecutionStat) error
}

const (
	writeRetries  = 3
	retryBaseWait = 100 * time.Millisecond
	writeTimeout  = 5 * time.Second
)

// StatsWriter decouples the request path from the database. Records go into
// a bounded buffer and a background goroutine flushes them; when the buffer
// is full the record is dropped and counted, never blocking an execution.
//
// The data channel is never closed. Close signals the done channel instead,
// so a Record racing with Close can at worst be ignored, never panic.
type StatsWriter struct {
	sink      Sink
	ch        chan *ExecutionStat
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Int64
	closeOnce sync.Once
}

// NewStatsWriter starts the background flusher.
func NewStatsWriter(sink Sink, buffer int) *StatsWriter {
	if buffer < 1 {
		buffer = 256
	}
	w := &StatsWriter{
		sink: sink,
		ch:   make(chan *ExecutionStat, buffer),
		done: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Record enqueues a stat without blocking. A full buffer drops the record;
// after Close the record is silently discarded.
func (w *StatsWriter) Record(stat *ExecutionStat) {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.ch <- stat:
	default:
		n := w.dropped.Add(1)
		if n%100 == 1 {
			log.Warn().Int64("dropped", n).Msg("stats buffer full, dropping records")
		}
	}
}

// Dropped returns the number of records lost to a full buffer.
func (w *StatsWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close stops intake, drains the buffer, and waits for the flusher.
func (w *StatsWriter) Close() {
	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *StatsWriter) loop() {
	defer w.wg.Done()
	for {
		select {
		case stat := <-w.ch:
			w.write(stat)
		case <-w.done:
			for {
				select {
				case stat := <-w.ch:
					w.write(stat)
				default:
					return
				}
			}
		}
	}
}

// write retries transient failures with exponential backoff, then gives up.
// Statistics are best-effort; a lost row is logged, not propagated.
func (w *StatsWriter) write(stat *ExecutionStat) {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBaseWait << (attempt - 1))
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err = w.sink.InsertStat(ctx, stat)
		cancel()
		if err == nil {
			return
		}
	}
	log.Error().
		Str("exec_id", stat.ID).
		Err(err).
		Msg("stat write failed after retries")
}
