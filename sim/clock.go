// sim/clock.go
package sim

import (
	"container/heap"
	"math"

	"github.com/sirupsen/logrus"
)

// Callback is one unit of scheduled work. It receives the virtual time at
// which it fires. A non-nil error halts the run (see Run).
type Callback func(now float64) error

// Token identifies a scheduled item for cancellation. Tokens are never reused
// within one clock instance.
type Token int64

// scheduledItem is one pending unit of work. Owned exclusively by the clock;
// external code only touches it through Schedule and Cancel.
type scheduledItem struct {
	due   float64
	seq   int64 // tie-break: first scheduled, first run
	cb    Callback
	index int // position in the heap, maintained by workQueue
}

// workQueue implements heap.Interface ordered by (due, seq).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-PriorityQueue
type workQueue []*scheduledItem

func (wq workQueue) Len() int { return len(wq) }

func (wq workQueue) Less(i, j int) bool {
	if wq[i].due != wq[j].due {
		return wq[i].due < wq[j].due
	}
	return wq[i].seq < wq[j].seq
}

func (wq workQueue) Swap(i, j int) {
	wq[i], wq[j] = wq[j], wq[i]
	wq[i].index = i
	wq[j].index = j
}

func (wq *workQueue) Push(x any) {
	item := x.(*scheduledItem)
	item.index = len(*wq)
	*wq = append(*wq, item)
}

func (wq *workQueue) Pop() any {
	old := *wq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*wq = old[0 : n-1]
	return item
}

// SimulationClock owns virtual time and the time-ordered work queue. It is
// the only place where execution order is decided: items run in ascending
// (due, seq) order regardless of which producer scheduled them.
//
// The clock never sleeps and never consults wall-clock time. One instance is
// created per run and passed explicitly to the runner and generators; there
// is no process-wide clock.
//
// Not safe for concurrent use. The whole simulation is single-threaded by
// design.
type SimulationClock struct {
	now     float64
	nextSeq int64
	queue   workQueue
	pending map[Token]*scheduledItem
}

// NewSimulationClock creates a clock at virtual time zero with an empty queue.
func NewSimulationClock() *SimulationClock {
	return &SimulationClock{
		queue:   make(workQueue, 0),
		pending: make(map[Token]*scheduledItem),
	}
}

// Now returns the current virtual time in seconds.
func (c *SimulationClock) Now() float64 { return c.now }

// Len returns the number of pending scheduled items.
func (c *SimulationClock) Len() int { return len(c.queue) }

// Schedule registers cb to fire at virtual time due. The due time must be a
// finite non-negative number; anything else is rejected with
// *InvalidScheduleError and leaves clock state untouched.
//
// Scheduling at or before the current time is accepted: the item becomes due
// on the next processing step. It never executes synchronously inside the
// Schedule call, which keeps reentrant scheduling from growing the stack and
// keeps ordering predictable.
func (c *SimulationClock) Schedule(due float64, cb Callback) (Token, error) {
	if math.IsNaN(due) || math.IsInf(due, 0) || due < 0 {
		return 0, &InvalidScheduleError{Due: due}
	}
	item := &scheduledItem{
		due: due,
		seq: c.nextSeq,
		cb:  cb,
	}
	c.nextSeq++
	heap.Push(&c.queue, item)
	token := Token(item.seq)
	c.pending[token] = item
	return token, nil
}

// Cancel removes a not-yet-processed item. It is idempotent: cancelling an
// already-processed or unknown token is a no-op.
func (c *SimulationClock) Cancel(token Token) {
	item, ok := c.pending[token]
	if !ok {
		return
	}
	delete(c.pending, token)
	heap.Remove(&c.queue, item.index)
}

// Run drains the queue in (due, seq) order, advancing virtual time to each
// item's due time before invoking its callback. The queue is live, not
// snapshotted: items scheduled by a callback are visible to later iterations
// of the same Run.
//
// Time never moves backwards; an item scheduled in the past fires at the
// current time.
//
// Run terminates only when the queue is empty. A callback returning an error
// is treated as a programming error in scheduling logic and halts the run
// immediately; the clock never swallows errors from direct callbacks.
func (c *SimulationClock) Run() error {
	for c.queue.Len() > 0 {
		item := heap.Pop(&c.queue).(*scheduledItem)
		delete(c.pending, Token(item.seq))
		if item.due > c.now {
			c.now = item.due
		}
		logrus.Debugf("[t %.3f] firing item seq=%d due=%.3f", c.now, item.seq, item.due)
		if err := item.cb(c.now); err != nil {
			logrus.Errorf("[t %.3f] run halted: callback seq=%d failed: %v", c.now, item.seq, err)
			return err
		}
	}
	logrus.Debugf("[t %.3f] queue empty, run complete", c.now)
	return nil
}
