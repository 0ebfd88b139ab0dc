package httprouter

import (
	"net/http"

	"github.com/caasmo/farmgate/router"
	jshttprouter "github.com/julienschmidt/httprouter"
)

// Router is the httprouter implementation of router.Router.
type Router struct {
	rt *jshttprouter.Router
}

var (
	_ router.Router      = (*Router)(nil)
	_ router.ParamGetter = (*Router)(nil)
)

// New creates a router answering unknown paths with notFound and wrong
// methods with methodNotAllowed. Nil handlers keep the httprouter defaults.
func New(notFound, methodNotAllowed http.Handler) *Router {
	rt := jshttprouter.New()
	if notFound != nil {
		rt.NotFound = notFound
	}
	if methodNotAllowed != nil {
		rt.MethodNotAllowed = methodNotAllowed
	}
	return &Router{rt: rt}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.rt.ServeHTTP(w, req)
}

func (r *Router) Handle(pattern string, handler http.Handler) {
	method, path := router.SplitPattern(pattern)
	r.rt.Handler(method, path, handler)
}

func (r *Router) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	r.Handle(pattern, http.HandlerFunc(handler))
}

func (r *Router) Register(chains router.Chains) {
	for pattern, chain := range chains {
		r.Handle(pattern, chain.Handler())
	}
}

// Param returns the value of the named path parameter, or "".
func (r *Router) Param(req *http.Request, name string) string {
	return jshttprouter.ParamsFromContext(req.Context()).ByName(name)
}
