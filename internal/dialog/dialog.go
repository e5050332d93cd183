// Package dialog tracks which create, update, delete or view dialog of an
// entity is open and which row it is about.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is the open dialog, None when all are closed.
type State string

const (
	None   State = ""
	Create State = "create"
	Update State = "update"
	Delete State = "delete"
	View   State = "view"
)

func (s State) String() string {
	if s == None {
		return "none"
	}
	return string(s)
}

// ErrNothingOpen is returned by Submit when no dialog is open.
var ErrNothingOpen = errors.New("no dialog is open")

// Controller holds the dialog state of one entity. At most one dialog is
// open at a time; opening another replaces it.
type Controller[T any] struct {
	mu      sync.Mutex
	state   State
	current *T
}

// Open shows dialog s about row, which may be nil for Create. Opening None
// is the same as Close.
func (c *Controller[T]) Open(s State, row *T) error {
	switch s {
	case None:
		c.Close()
		return nil
	case Create, Update, Delete, View:
	default:
		return fmt.Errorf("unknown dialog %q", string(s))
	}
	if s != Create && row == nil {
		return fmt.Errorf("%s dialog needs a row", s)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.current = row
	return nil
}

// Close hides any open dialog and forgets the current row.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = None
	c.current = nil
}

// State returns the open dialog and its row.
func (c *Controller[T]) State() (State, *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.current
}

// IsOpen reports whether dialog s is the open one.
func (c *Controller[T]) IsOpen(s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s != None && c.state == s
}

// Submit runs fn for the open dialog and its row. The dialog closes when fn
// succeeds and stays open with the same row when it fails.
func (c *Controller[T]) Submit(ctx context.Context, fn func(ctx context.Context, s State, row *T) error) error {
	s, row := c.State()
	if s == None {
		return ErrNothingOpen
	}
	if err := fn(ctx, s, row); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Another dialog may have been opened while fn ran.
	if c.state == s && c.current == row {
		c.state = None
		c.current = nil
	}
	return nil
}
