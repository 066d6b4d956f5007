package state

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var errStopped = errors.New("dispatcher stopped")

// Dispatch Dispatches the function to run on the main thread without waiting for it to complete
func (e *Env) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	e.DispatchChannel <- fun
}

// DispatchWait Dispatches the function to run on the main thread and wait for it to complete.
// Errors returned by fun are handed back to the caller and do not stop the main loop.
func (e *Env) DispatchWait(fun func(*State) (any, error)) (res any, err error) {
	ret := make(chan Pair[any, error], 1)
	var running atomic.Bool
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errStopped
		}
	}()
	select {
	case e.DispatchChannel <- func(s *State) error {
		running.Store(true)
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return nil
	}:
	case <-e.Context.Done():
		return nil, context.Cause(e.Context)
	}
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		// fun may cancel the context itself
		if running.Load() {
			res := <-ret
			return res.V1, res.V2
		}
		return nil, context.Cause(e.Context)
	}
}
