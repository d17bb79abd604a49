package fetchttp

import "sync"

// DefaultAbortReason is the reason recorded by AbortController.Abort.
const DefaultAbortReason = "AbortError"

// AbortSignal is a cancellation flag shared by pointer. It moves from
// not-aborted to aborted at most once; the reason recorded by the first
// abort is permanent.
//
// All methods are safe for concurrent use.
type AbortSignal struct {
	mu        sync.Mutex
	aborted   bool
	reason    string
	hasReason bool
	done      chan struct{}
}

func NewAbortSignal() *AbortSignal {
	return &AbortSignal{done: make(chan struct{})}
}

// AbortedSignal returns a signal that is already aborted. The first reason,
// if any, is recorded.
func AbortedSignal(reason ...string) *AbortSignal {
	s := NewAbortSignal()
	if len(reason) > 0 {
		s.doAbort(reason[0], true)
	} else {
		s.doAbort("", false)
	}
	return s
}

func (s *AbortSignal) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Reason returns the abort reason. ok is false when the signal is not
// aborted or was aborted without one.
func (s *AbortSignal) Reason() (reason string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason, s.hasReason
}

// Done returns a channel that is closed once the signal aborts.
func (s *AbortSignal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initDone()
	return s.done
}

func (s *AbortSignal) doAbort(reason string, hasReason bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return
	}
	s.aborted = true
	s.reason = reason
	s.hasReason = hasReason
	s.initDone()
	close(s.done)
}

func (s *AbortSignal) initDone() {
	if s.done == nil {
		s.done = make(chan struct{})
	}
}

// AbortController owns one AbortSignal and is the only way to abort it
// after creation.
type AbortController struct {
	signal *AbortSignal
}

func NewAbortController() *AbortController {
	return &AbortController{signal: NewAbortSignal()}
}

func (c *AbortController) Signal() *AbortSignal {
	return c.signal
}

// Abort aborts the signal with DefaultAbortReason unless it is already
// aborted.
func (c *AbortController) Abort() {
	c.signal.doAbort(DefaultAbortReason, true)
}

func (c *AbortController) AbortWithReason(reason string) {
	c.signal.doAbort(reason, true)
}
