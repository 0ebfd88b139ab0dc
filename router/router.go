package router

import (
	"net/http"
	"strings"
)

// Router registers handlers under patterns of the form "METHOD /path".
// Path parameters use the :name syntax.
type Router interface {
	http.Handler
	Handle(pattern string, handler http.Handler)
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
	// Register adds every chain under its pattern.
	Register(chains Chains)
}

// ParamGetter reads a named path parameter of the matched route.
type ParamGetter interface {
	Param(r *http.Request, name string) string
}

// SplitPattern separates the method from the path of a pattern. A
// pattern without method defaults to GET.
func SplitPattern(pattern string) (method, path string) {
	method, path, found := strings.Cut(strings.TrimSpace(pattern), " ")
	if !found {
		return http.MethodGet, method
	}
	return strings.ToUpper(method), strings.TrimSpace(path)
}
