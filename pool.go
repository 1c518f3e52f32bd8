package zephyr

import "net/http"

// DefaultContextPoolSize bounds the number of recycled Context instances.
const DefaultContextPoolSize = 50

// contextPool recycles Context instances across requests. Unlike sync.Pool
// it is explicitly bounded: when the pool is full a released context is
// simply dropped for the garbage collector.
type contextPool struct {
	free chan *Context
}

func newContextPool(size int) *contextPool {
	if size <= 0 {
		size = DefaultContextPoolSize
	}
	return &contextPool{free: make(chan *Context, size)}
}

// acquire returns a reset context bound to the given request.
func (p *contextPool) acquire(w *responseWriter, r *http.Request) *Context {
	var c *Context
	select {
	case c = <-p.free:
	default:
		c = &Context{}
	}
	c.reset(w, r)
	return c
}

// release returns the context to the pool after scrubbing it. A released
// context must not be referenced again; its state is wiped here precisely so
// that nothing from one request can leak into a later one.
func (p *contextPool) release(c *Context) {
	c.reset(nil, nil)
	select {
	case p.free <- c:
	default:
		// Pool full, let the GC take it.
	}
}
