package streamhub

import (
	"context"
	"sync"
	"time"
)

// queueDepth bounds each subscriber's FIFO. Overflow drops the oldest
// non-terminal event; a terminal event is always appended.
const queueDepth = 256

// pollInterval is how often Subscribe re-checks its queue for new events
// when it finds nothing queued.
const pollInterval = 100 * time.Millisecond

// JobSnapshot is whatever the caller considers "current job state" —
// Subscribe emits one immediately on attach.
type JobSnapshot func() (Event, bool)

// Hub fans events for many jobs out to many subscribers. One mutex guards
// the whole registry; queue operations under the lock are short appends
// and swaps, so a flat lock beats per-job locking here.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string][]*subscriberQueue
}

type subscriberQueue struct {
	events []Event
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[string][]*subscriberQueue)}
}

// Publish appends a copy of event to every queue registered under its job
// id. Queues with no room for a non-terminal event drop their oldest
// entry first; a terminal event is always appended regardless of depth.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, q := range h.subscribers[event.JobID()] {
		q.push(event)
	}
}

func (q *subscriberQueue) push(event Event) {
	if len(q.events) >= queueDepth && !isTerminalEvent(event) {
		for i, e := range q.events {
			if !isTerminalEvent(e) {
				q.events = append(q.events[:i], q.events[i+1:]...)
				break
			}
		}
	}

	q.events = append(q.events, event)
}

// Subscribe registers a queue for jobID, emits an initial snapshot, then
// streams queued events on the returned channel until a terminal event is
// seen, the job disappears, or ctx is canceled. The channel is always
// closed before Subscribe's goroutine exits, and the queue is always
// deregistered — both on every exit path.
func (h *Hub) Subscribe(ctx context.Context, jobID string, snapshot JobSnapshot) <-chan Event {
	out := make(chan Event, 1)

	q := &subscriberQueue{}
	h.register(jobID, q)

	go func() {
		defer close(out)
		defer h.deregister(jobID, q)

		if initial, ok := snapshot(); ok {
			if !sendEvent(ctx, out, initial) {
				return
			}

			if isTerminalEvent(initial) {
				return
			}
		} else {
			sendEvent(ctx, out, NewError(jobID, "Job not found"))
			return
		}

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if h.drain(ctx, q, out) {
					return
				}
			}
		}
	}()

	return out
}

// drain flushes every event currently queued for q to out, returning true
// once a terminal event has been sent (the caller should stop looping).
func (h *Hub) drain(ctx context.Context, q *subscriberQueue, out chan<- Event) bool {
	h.mu.Lock()
	pending := q.events
	q.events = nil
	h.mu.Unlock()

	for _, e := range pending {
		if !sendEvent(ctx, out, e) {
			return true
		}

		if isTerminalEvent(e) {
			return true
		}
	}

	return false
}

func sendEvent(ctx context.Context, out chan<- Event, e Event) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) register(jobID string, q *subscriberQueue) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subscribers[jobID] = append(h.subscribers[jobID], q)
}

func (h *Hub) deregister(jobID string, q *subscriberQueue) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.subscribers[jobID]
	for i, s := range list {
		if s == q {
			h.subscribers[jobID] = append(list[:i], list[i+1:]...)
			break
		}
	}

	if len(h.subscribers[jobID]) == 0 {
		delete(h.subscribers, jobID)
	}
}

// SubscriberCount reports how many live subscribers a job currently has;
// used by tests to check that a finished job's queues have all been
// deregistered.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers[jobID])
}
