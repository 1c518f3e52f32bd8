package zephyr

// Handler is the terminal step of a middleware chain: the route handler, or
// the pipeline's routing step for the global chain.
type Handler func(*Context) error

// Next advances the middleware chain by exactly one step. Calling it a
// second time from the same frame fails with ErrNextCalledTwice.
type Next func() error

// Middleware surrounds the rest of the chain. It may run code before and
// after next, skip next entirely to short-circuit, or recover errors coming
// back from downstream.
type Middleware func(ctx *Context, next Next) error

// Execute runs the middleware list in insertion order and then the terminal
// handler. Each frame is dispatched at most once: the chain records which
// indices have run and refuses re-entry, so a middleware that awaits next
// twice fails deterministically instead of re-running its downstream.
// Errors unwind through the enclosing frames to the caller.
func Execute(ctx *Context, mws []Middleware, terminal Handler) error {
	entered := make([]bool, len(mws)+1)

	var dispatch func(i int) error
	dispatch = func(i int) error {
		if entered[i] {
			return ErrNextCalledTwice
		}
		entered[i] = true

		if i == len(mws) {
			if terminal == nil {
				return nil
			}
			return terminal(ctx)
		}
		return mws[i](ctx, func() error { return dispatch(i + 1) })
	}

	return dispatch(0)
}
