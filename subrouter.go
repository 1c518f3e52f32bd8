package zephyr

import (
	"net/http"
	"strings"
)

// Router is a mountable group of routes. Routes and middleware collected on
// it are inert until Mount attaches them to an App under a prefix; the
// group's middleware then wraps every mounted route.
type Router struct {
	middleware []Middleware
	routes     []groupRoute
}

type groupRoute struct {
	method     string
	pattern    string
	handler    Handler
	middleware []Middleware
}

// NewRouter creates an empty route group.
func NewRouter() *Router {
	return &Router{}
}

// Use appends middleware that will wrap every route in the group.
func (g *Router) Use(mw ...Middleware) *Router {
	g.middleware = append(g.middleware, mw...)
	return g
}

// Handle records a route for an arbitrary method.
func (g *Router) Handle(method, pattern string, h Handler, mw ...Middleware) *Router {
	g.routes = append(g.routes, groupRoute{
		method:     method,
		pattern:    pattern,
		handler:    h,
		middleware: mw,
	})
	return g
}

// Get records a GET route.
func (g *Router) Get(pattern string, h Handler, mw ...Middleware) *Router {
	return g.Handle(http.MethodGet, pattern, h, mw...)
}

// Post records a POST route.
func (g *Router) Post(pattern string, h Handler, mw ...Middleware) *Router {
	return g.Handle(http.MethodPost, pattern, h, mw...)
}

// Put records a PUT route.
func (g *Router) Put(pattern string, h Handler, mw ...Middleware) *Router {
	return g.Handle(http.MethodPut, pattern, h, mw...)
}

// Delete records a DELETE route.
func (g *Router) Delete(pattern string, h Handler, mw ...Middleware) *Router {
	return g.Handle(http.MethodDelete, pattern, h, mw...)
}

// Patch records a PATCH route.
func (g *Router) Patch(pattern string, h Handler, mw ...Middleware) *Router {
	return g.Handle(http.MethodPatch, pattern, h, mw...)
}

// Mount registers every route of the group on the App with the group's
// pattern joined under prefix. Group middleware runs before the route's own.
func (a *App) Mount(prefix string, g *Router) *App {
	for _, rt := range g.routes {
		mw := make([]Middleware, 0, len(g.middleware)+len(rt.middleware))
		mw = append(mw, g.middleware...)
		mw = append(mw, rt.middleware...)
		a.Handle(rt.method, joinPattern(prefix, rt.pattern), rt.handler, mw...)
	}
	return a
}

func joinPattern(prefix, pattern string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if pattern == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return prefix + pattern
}
