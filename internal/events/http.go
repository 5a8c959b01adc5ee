package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted once the request id of an incoming request is known.
type HTTPStart struct {
	RequestID string
	Request   *http.Request
}

// HTTPFinish is emitted after the handler wrote its response. Status is the
// code written, 200 when the handler never set one.
type HTTPFinish struct {
	RequestID string
	Request   *http.Request
	Status    int
	Duration  time.Duration
}
