// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package router assembles the cache API: route patterns on an [http.ServeMux]
and the middleware every request passes through before reaching them.
*/
package router

import (
	"net/http"

	"codeberg.org/b2bsite/i18ncache/server/middleware"
)

// Router is the service's root handler.
type Router struct {
	*http.ServeMux

	middlewares []middleware.Middleware
}

// NewRouter returns a router with no routes or middleware.
func NewRouter() *Router {
	return &Router{
		ServeMux: http.NewServeMux(),
	}
}

// Use appends m to the chain. Middleware runs in the order it was added,
// outermost first.
func (router *Router) Use(m middleware.Middleware) {
	router.middlewares = append(router.middlewares, m)
}

// serve runs middleware i, handing it the rest of the chain as next.
// Past the last middleware the mux dispatches to the route.
func (router *Router) serve(i int, w http.ResponseWriter, r *http.Request) {
	if i == len(router.middlewares) {
		router.ServeMux.ServeHTTP(w, r)

		return
	}

	router.middlewares[i](w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.serve(i+1, w, r)
	}))
}

// ServeHTTP implements [http.Handler].
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.serve(0, w, r)
}
