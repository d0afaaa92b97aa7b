package session

import "errors"

// ErrNoTransport is returned when a segment arrives for a session with no
// attached event channel. Results are pushed, not polled, so intake without
// a live transport would process work nobody can observe.
var ErrNoTransport = errors.New("no transport attached to session")

// ErrNoSuchSession is returned by control operations for unknown sessions.
var ErrNoSuchSession = errors.New("no such session")
