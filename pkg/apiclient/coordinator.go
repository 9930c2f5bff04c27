package apiclient

import "sync"

// RefreshResult is the outcome of a token refresh handed to waiting requests.
type RefreshResult struct {
	Token string
	Err   error
	// Position is the 1-based place of the waiter in the queue, which is
	// also the order results are delivered in.
	Position int
}

// Coordinator ensures at most one token refresh is in flight. Requests that
// hit a 401 while a refresh is running wait for its outcome instead of
// starting their own.
type Coordinator struct {
	mu         sync.Mutex
	refreshing bool
	queue      []chan RefreshResult
}

// Acquire reports whether the caller now owns the refresh. Callers that do
// not own it receive a channel that yields the owner's result exactly once.
func (c *Coordinator) Acquire() (bool, <-chan RefreshResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.refreshing {
		c.refreshing = true
		return true, nil
	}
	ch := make(chan RefreshResult, 1)
	c.queue = append(c.queue, ch)
	return false, ch
}

// Release ends the refresh and delivers the outcome to every waiter in the
// order they were queued. The coordinator is idle when Release returns.
func (c *Coordinator) Release(token string, err error) {
	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.refreshing = false
	c.mu.Unlock()

	for i, ch := range queue {
		// buffered, never blocks
		ch <- RefreshResult{Token: token, Err: err, Position: i + 1}
	}
}

// Refreshing reports whether a refresh is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Waiting returns the number of queued requests.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
