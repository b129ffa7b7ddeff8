package singleflight

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// Group manages a set of in-flight calls to prevent duplicate work.
// The slot for a key is released as soon as its call returns, before any
// waiter observes the result, so a later call always starts fresh.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

// call represents an active function call.
type call struct {
	done    chan struct{}
	val     interface{}
	err     error
	waiters int
}

// New creates a new singleflight Group.
func New() *Group {
	return &Group{
		m: make(map[string]*call),
	}
}

// PanicError is returned to every caller when fn panics. The panic does not
// propagate past the group.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("singleflight: call panicked: %v\n\n%s", p.Value, p.Stack)
}

// Do executes and returns the results of the given function, making sure that
// only one execution is in-flight for a given key at a time. If a duplicate
// comes in, the duplicate caller waits for the original to complete and
// receives the same results. shared reports whether the caller joined an
// existing call rather than starting it.
//
// fn runs on its own goroutine and always runs to completion. Any caller,
// including the one that started the call, stops waiting when its ctx is done
// and returns ctx.Err(). A caller whose ctx is already done never starts a call.
func (g *Group) Do(ctx context.Context, key string, fn func() (interface{}, error)) (v interface{}, err error, shared bool) {
	g.mu.Lock()
	var c *call
	c, shared = g.m[key]
	if shared {
		c.waiters++
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		g.mu.Unlock()
		return nil, ctxErr, false
	} else {
		c = &call{done: make(chan struct{})}
		g.m[key] = c
		go g.run(key, c, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		return c.val, c.err, shared
	case <-ctx.Done():
		return nil, ctx.Err(), shared
	}
}

func (g *Group) run(key string, c *call, fn func() (interface{}, error)) {
	normalReturn := false
	defer func() {
		if !normalReturn {
			if r := recover(); r != nil {
				c.val, c.err = nil, &PanicError{Value: r, Stack: debug.Stack()}
			} else {
				c.val, c.err = nil, errGoexit
			}
		}
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()

	c.val, c.err = fn()
	normalReturn = true
}

var errGoexit = errors.New("singleflight: call exited without returning")

// InFlight reports whether a call for key is currently running.
func (g *Group) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

// Waiters returns the number of callers currently sharing the call for key.
func (g *Group) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.m[key]; ok {
		return c.waiters
	}
	return 0
}
