package queue

// Option applies a configuration option to the PriorityQueue.
type Option func(*PriorityQueue)

// WithMaxDepth bounds the number of queued requests.
func WithMaxDepth(depth int) Option {
	return func(q *PriorityQueue) {
		if depth > 0 {
			q.maxDepth = depth
		}
	}
}
