package command

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Queue is a mutex-guarded FIFO of completed command lines. The input
// goroutine is the only producer and the scheduler tick the only consumer,
// but the queue is safe for any number of either.
type Queue struct {
	mu   sync.Mutex
	data []string
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a line to the queue.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data = append(q.data, line)
}

// TryNext pops the oldest line without blocking. The bool is false when
// the queue is empty.
func (q *Queue) TryNext() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return "", false
	}
	line := q.data[0]
	q.data = q.data[1:]
	return line, true
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// ReadLines feeds non-empty lines from r into the queue until EOF or a
// read error. Run it in its own goroutine; it never touches the store.
func ReadLines(r io.Reader, q *Queue) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		q.Push(line)
	}
}
