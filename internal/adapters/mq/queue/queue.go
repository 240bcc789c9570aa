// Package queue holds admitted analysis requests until the orchestrator
// dispatches them.
//
// Requests leave in priority order (critical first) and in arrival order
// within a priority. At most one request per event type is queued at a time.
package queue

import (
	"container/heap"
	"sync"

	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/metrics"
)

const defaultMaxDepth = 32

// Drop reasons reported to metrics.
const (
	DropDuplicate = "duplicate"
	DropOverflow  = "overflow"
	DropShutdown  = "shutdown"
)

type item struct {
	req   model.AnalysisRequest
	seq   uint64
	index int
}

type items []*item

func (h items) Len() int { return len(h) }

func (h items) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority > h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h items) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *items) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *items) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// PriorityQueue is a bounded, concurrency-safe priority queue of requests.
type PriorityQueue struct {
	mu       sync.Mutex
	heap     items
	types    map[model.EventKind]struct{}
	seq      uint64
	maxDepth int
	closed   bool
}

// NewPriorityQueue creates an empty queue.
func NewPriorityQueue(opts ...Option) *PriorityQueue {
	q := &PriorityQueue{
		types:    make(map[model.EventKind]struct{}),
		maxDepth: defaultMaxDepth,
	}
	for _, opt := range opts {
		opt(q)
	}
	metrics.UpdateQueueDepth(0)
	return q
}

// Push adds a request. When the queue is over its depth afterwards, the
// lowest priority, oldest entry is evicted and returned.
func (q *PriorityQueue) Push(req model.AnalysisRequest) (*model.AnalysisRequest, error) { //nolint:gocritic // hugeParam: requests are queued by value
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}
	if _, ok := q.types[req.EventType]; ok {
		metrics.RecordQueueDropped(DropDuplicate)
		return nil, ErrDuplicate
	}

	q.seq++
	heap.Push(&q.heap, &item{req: req, seq: q.seq})
	q.types[req.EventType] = struct{}{}

	var evicted *model.AnalysisRequest
	if len(q.heap) > q.maxDepth {
		victim := q.heap[q.victimLocked()]
		heap.Remove(&q.heap, victim.index)
		delete(q.types, victim.req.EventType)
		evicted = &victim.req
		metrics.RecordQueueDropped(DropOverflow)
	}
	metrics.UpdateQueueDepth(len(q.heap))
	return evicted, nil
}

// victimLocked returns the index of the lowest priority, oldest entry.
func (q *PriorityQueue) victimLocked() int {
	v := 0
	for i, it := range q.heap {
		w := q.heap[v]
		if it.req.Priority < w.req.Priority || (it.req.Priority == w.req.Priority && it.seq < w.seq) {
			v = i
		}
	}
	return v
}

// Pop removes and returns the head.
func (q *PriorityQueue) Pop() (model.AnalysisRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return model.AnalysisRequest{}, false
	}
	it := heap.Pop(&q.heap).(*item)
	delete(q.types, it.req.EventType)
	metrics.UpdateQueueDepth(len(q.heap))
	return it.req, true
}

// Peek returns the head without removing it.
func (q *PriorityQueue) Peek() (model.AnalysisRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return model.AnalysisRequest{}, false
	}
	return q.heap[0].req, true
}

// Len returns the number of queued requests.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Contains reports whether a request of kind is queued.
func (q *PriorityQueue) Contains(kind model.EventKind) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.types[kind]
	return ok
}

// Close stops the queue and returns the discarded requests in dispatch order.
// Closing twice returns nothing.
func (q *PriorityQueue) Close() []model.AnalysisRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	out := make([]model.AnalysisRequest, 0, len(q.heap))
	for len(q.heap) > 0 {
		out = append(out, heap.Pop(&q.heap).(*item).req)
	}
	clear(q.types)
	for range out {
		metrics.RecordQueueDropped(DropShutdown)
	}
	metrics.UpdateQueueDepth(0)
	return out
}

// IsClosed returns true if the queue has been closed.
func (q *PriorityQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
