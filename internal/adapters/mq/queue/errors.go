package queue

import "errors"

// ErrClosed is returned by Put once the queue is closed.
var ErrClosed = errors.New("queue closed")
