package agentloop

import "sync/atomic"

// Interrupt is the cooperative cancellation signal for one session. A
// surrounding UI or CLI layer sets it asynchronously; the loop only
// polls it, at the top of each iteration and before each action. An
// action already dispatched runs to completion before the signal is
// honored.
type Interrupt struct {
	flag atomic.Bool
}

// NewInterrupt creates an unraised interrupt signal.
func NewInterrupt() *Interrupt { return &Interrupt{} }

// Trigger raises the signal. Safe to call from any goroutine.
func (i *Interrupt) Trigger() { i.flag.Store(true) }

// Interrupted reports whether the signal is raised.
func (i *Interrupt) Interrupted() bool { return i.flag.Load() }

// Reset lowers the signal so the session can be driven again.
func (i *Interrupt) Reset() { i.flag.Store(false) }
