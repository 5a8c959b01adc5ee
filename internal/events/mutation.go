package events

import "time"

// MutationStart is emitted before a mutation field is bound and invoked.
type MutationStart struct {
	Mutation string
	Async    bool
}

// MutationFinish is emitted once a mutation reaches a terminal state.
// ValidationErrors counts errors reported by validation; Err is set when the
// invocation faulted.
type MutationFinish struct {
	Mutation         string
	State            string
	ValidationErrors int
	Err              error
	Duration         time.Duration
}
