package mutation

import (
	"errors"
	"reflect"
	"runtime/debug"
)

// Awaitable is the result of an asynchronous mutation. Await blocks until
// the value is available.
type Awaitable interface {
	Await() (any, error)
}

// Future is an Awaitable carrying a value of type T.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in a new goroutine. A panic in fn completes the future with
// the panic value as its error.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = panicCause(r, debug.Stack())
			}
		}()
		f.val, f.err = fn()
	}()
	return f
}

// Completed returns a future that is already resolved.
func Completed[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)
	return f
}

// Get waits for the future and returns its typed value.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

func (f *Future[T]) Await() (any, error) {
	v, err := f.Get()
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ValueType reports T. It is safe on a nil receiver.
func (*Future[T]) ValueType() reflect.Type { return reflect.TypeFor[T]() }

// call invokes the target with args and returns a future for its result.
// Synchronous results come back already completed. A panic is reported as a
// *TargetInvocationError.
func (f *Field) call(args []reflect.Value) (fut Awaitable) {
	defer func() {
		if r := recover(); r != nil {
			fut = Completed[any](nil, &TargetInvocationError{
				Mutation: f.Name,
				Cause:    panicCause(r, debug.Stack()),
			})
		}
	}()
	out := f.fn.Call(args)

	var err error
	if f.shape == shapeError || f.shape == shapeValueError {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	switch f.shape {
	case shapeNone, shapeError:
		if err != nil {
			return Completed[any](nil, err)
		}
		return Completed[any](true, nil)
	}
	if err != nil {
		return Completed[any](nil, err)
	}
	if !f.Async {
		return Completed(out[0].Interface(), nil)
	}
	if out[0].Kind() == reflect.Interface || out[0].Kind() == reflect.Pointer {
		if out[0].IsNil() {
			return Completed[any](nil, nil)
		}
	}
	return out[0].Interface().(Awaitable)
}

// unwrapInvocation strips the TargetInvocationError tag so callers see the
// cause the target raised.
func unwrapInvocation(err error) error {
	var tie *TargetInvocationError
	if errors.As(err, &tie) {
		return tie.Cause
	}
	return err
}
