package server

import (
	"net/http"
	"strings"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [http.ServeMux] internally for routing, with "METHOD /path" patterns so
// unmatched methods get a 405 from the mux itself.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the router's global stack, applied in the order it's added.
//
// Global middleware wraps the mux, so it also sees requests no route matches (CORS preflights, 404s).
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method and path, wrapped with the route-level middleware mw.
func (r *BasicRouter) Handle(method, path string, handler http.Handler, mw ...Middleware) {
	r.mux.Handle(strings.ToUpper(method)+" "+path, chain(handler, mw))
}

// Register adds every route returned by [Handler.Routes].
func (r *BasicRouter) Register(handlers ...Handler) {
	for _, h := range handlers {
		for _, route := range h.Routes() {
			r.Handle(route.Method, route.Path, route.Handler, route.Middleware...)
		}
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Apply(r.mux).ServeHTTP(w, req)
}

// Apply wraps a handler with all registered global middleware.
//
// The first middleware added is the outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	return chain(handler, r.middlewares)
}

func chain(handler http.Handler, mw []Middleware) http.Handler {
	wrapped := handler
	for i := len(mw) - 1; i >= 0; i-- {
		wrapped = mw[i](wrapped)
	}
	return wrapped
}
