package router

import (
	"net/http"
)

// Chain is a handler and the middlewares wrapping it.
type Chain struct {
	handler     http.Handler
	middlewares []func(http.Handler) http.Handler
}

// Chains maps route patterns to their chains.
type Chains map[string]*Chain

// NewChain panics on a nil handler.
func NewChain(h http.Handler) *Chain {
	if h == nil {
		panic("chain handler cannot be nil")
	}
	return &Chain{handler: h}
}

// WithMiddleware appends middlewares to the chain. The first middleware
// added is the outermost one:
//
//	NewChain(h).WithMiddleware(log, block).WithMiddleware(auth)
//
// runs log, block, auth, then h.
func (c *Chain) WithMiddleware(middlewares ...func(http.Handler) http.Handler) *Chain {
	c.middlewares = append(c.middlewares, middlewares...)
	return c
}

// WithMiddlewareChain appends a shared middleware stack.
func (c *Chain) WithMiddlewareChain(middlewares []func(http.Handler) http.Handler) *Chain {
	return c.WithMiddleware(middlewares...)
}

// Handler wraps the handler with the middlewares.
func (c *Chain) Handler() http.Handler {
	h := c.handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}
