// File: supervisor/threadpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadPool is the T-thread-workers-per-process piece of spec §5: "the
// worker may optionally host T thread workers that handle CPU work
// dequeued from a shared in-worker queue; all socket I/O stays on the
// multiplexer thread." Adapted from internal/concurrency/executor.go's
// eapache/queue-backed task queue. That original spins a bare select/
// default loop directly against queue.Queue, which is not safe for
// concurrent access without external locking (eapache/queue documents
// itself as a plain ring buffer, not an MPMC queue) — here the queue is
// guarded by a mutex and workers block on a condition variable instead of
// busy-spinning.

package supervisor

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrThreadPoolClosed is returned by Submit after Close.
var ErrThreadPoolClosed = errors.New("supervisor: thread pool closed")

// Task is one unit of CPU work dequeued by a thread worker: JSON parsing,
// message routing, or anything else spec §5 says may move off the
// multiplexer thread.
type Task func()

// ThreadPool drains a single shared queue with N worker goroutines. A
// WorkerThreads value of 0 in Config means no ThreadPool is started at
// all and handlers run all CPU work inline, per spec §5.
type ThreadPool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	q      *queue.Queue
	closed bool
	wg     sync.WaitGroup
}

// NewThreadPool starts n worker goroutines draining a shared task queue.
func NewThreadPool(n int) *ThreadPool {
	tp := &ThreadPool{q: queue.New()}
	tp.cond = sync.NewCond(&tp.mu)
	for i := 0; i < n; i++ {
		tp.wg.Add(1)
		go tp.run()
	}
	return tp
}

// Submit enqueues task for a worker to run. It returns ErrThreadPoolClosed
// once Close has been called.
func (tp *ThreadPool) Submit(task Task) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.closed {
		return ErrThreadPoolClosed
	}
	tp.q.Add(task)
	tp.cond.Signal()
	return nil
}

func (tp *ThreadPool) run() {
	defer tp.wg.Done()
	for {
		tp.mu.Lock()
		for tp.q.Length() == 0 && !tp.closed {
			tp.cond.Wait()
		}
		if tp.q.Length() == 0 && tp.closed {
			tp.mu.Unlock()
			return
		}
		task := tp.q.Peek().(Task)
		tp.q.Remove()
		tp.mu.Unlock()

		task()
	}
}

// Close stops accepting new work and waits for queued tasks to drain.
func (tp *ThreadPool) Close() {
	tp.mu.Lock()
	tp.closed = true
	tp.cond.Broadcast()
	tp.mu.Unlock()
	tp.wg.Wait()
}
