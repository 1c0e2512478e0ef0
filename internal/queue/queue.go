package queue

import (
	"sync"
)

// Queue hands out control indexes in document order and remembers which
// control signatures were already processed this run
type Queue struct {
	indexes []int
	seen    map[string]bool
	mu      sync.Mutex
}

// New creates a queue holding the indexes 0..n-1
func New(n int) *Queue {
	q := &Queue{
		indexes: make([]int, 0, n),
		seen:    make(map[string]bool),
	}
	for i := 0; i < n; i++ {
		q.indexes = append(q.indexes, i)
	}
	return q
}

// Next returns the next index to process
func (q *Queue) Next() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.indexes) == 0 {
		return 0, false
	}

	index := q.indexes[0]
	q.indexes = q.indexes[1:]
	return index, true
}

// MarkSeen records a signature. It returns false when the signature was
// already recorded, meaning the control was handled under another index.
func (q *Queue) MarkSeen(signature string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.seen[signature] {
		return false
	}
	q.seen[signature] = true
	return true
}

// SeenCount returns the number of distinct signatures processed
func (q *Queue) SeenCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}
