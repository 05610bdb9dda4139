package routerhelper

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// RouteGroup registers handlers on a router under a common path prefix.
type RouteGroup struct {
	r      *httprouter.Router
	prefix string
}

func NewRouteGroup(r *httprouter.Router, prefix string) *RouteGroup {
	return &RouteGroup{r: r, prefix: prefix}
}

func (g *RouteGroup) Group(path string) *RouteGroup {
	return NewRouteGroup(g.r, g.prefix+path)
}

func (g *RouteGroup) Handle(method, path string, h httprouter.Handle) {
	g.r.Handle(method, g.prefix+path, h)
}

func (g *RouteGroup) GET(path string, h httprouter.Handle) {
	g.Handle(http.MethodGet, path, h)
}

func (g *RouteGroup) POST(path string, h httprouter.Handle) {
	g.Handle(http.MethodPost, path, h)
}
