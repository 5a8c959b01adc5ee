package events

import "time"

// GraphQLStart is emitted before an operation of a request is executed. A
// batched request emits one per operation, all sharing RequestID.
type GraphQLStart struct {
	RequestID     string
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after the operation completed. Errors holds the
// response errors in order, one per failed field or validation failure.
type GraphQLFinish struct {
	RequestID     string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}
