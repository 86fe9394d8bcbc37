package silo

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for silo operations.
var (
	ErrNotCallable           = errors.New("modifier is not callable")
	ErrSubscriberNotCallable = errors.New("subscriber is not callable")
	ErrRunInProgress         = errors.New("run in progress")
	ErrKindMismatch          = errors.New("kind mismatch")
	ErrChildNotFound         = errors.New("child node not found")
	ErrNodeNotFound          = errors.New("node not found")
	ErrNotScope              = errors.New("parent is not a scope")
	ErrModifierKind          = errors.New("wrong modifier kind")
	ErrEmptyName             = errors.New("name is empty")
	ErrDuplicateName         = errors.New("node name already in use")
	ErrTaskPanic             = errors.New("task panicked")
	ErrClosed                = errors.New("silo closed")
)

// TaskError reports a queued task that failed while a node's runner was
// draining. The task has already left the queue; tasks queued behind it are
// still pending and run on the next trigger.
type TaskError struct {
	Node     string
	Modifier string
	TaskID   uuid.UUID
	Err      error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s) failed on node %s: %v", e.TaskID, e.Modifier, e.Node, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *TaskError) Unwrap() error {
	return e.Err
}
