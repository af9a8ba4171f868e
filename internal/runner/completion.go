package runner

import "sync"

// ending identifies which event finished an execution.
type ending int

const (
	endExited ending = iota
	endTimedOut
	endCanceled
)

func (e ending) String() string {
	switch e {
	case endTimedOut:
		return "timeout"
	case endCanceled:
		return "canceled"
	default:
		return "exited"
	}
}

// completion is a one-shot result cell. The first resolve wins; every later
// call is a no-op and reports false.
type completion struct {
	once   sync.Once
	done   chan struct{}
	ending ending
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

func (c *completion) resolve(e ending) bool {
	won := false
	c.once.Do(func() {
		c.ending = e
		won = true
		close(c.done)
	})
	return won
}

func (c *completion) wait() ending {
	<-c.done
	return c.ending
}
