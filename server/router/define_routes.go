// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeberg.org/b2bsite/i18ncache/config"
	"codeberg.org/b2bsite/i18ncache/server/middleware"
	"codeberg.org/b2bsite/i18ncache/server/routes"
)

// DefineRoutes sets up all the routes for the application using our custom Router.
//
// The /metrics route is only registered when gatherer is non-nil.
func (router *Router) DefineRoutes(api *routes.API, gatherer prometheus.Gatherer) {
	// Catalogue routes
	router.HandleFunc("GET /api/messages", middleware.CatchError(api.RequestMessages))
	router.HandleFunc("GET /api/messages/{locale}", middleware.CatchError(api.Messages))

	// Cache inspection routes
	router.HandleFunc("GET /api/cache/health", middleware.CatchError(api.Health))
	router.HandleFunc("GET /api/cache/stats", middleware.CatchError(api.Stats))
	router.HandleFunc("GET /api/cache/debug", middleware.CatchError(api.Debug))
	router.HandleFunc("GET /api/cache/report", middleware.CatchError(api.Report))
	router.HandleFunc("GET /api/cache/export", middleware.CatchError(api.Export))

	// Cache management routes
	router.HandleFunc("POST /api/cache/import", middleware.CatchError(api.Import))
	router.HandleFunc("POST /api/cache/optimize", middleware.CatchError(api.Optimize))
	router.HandleFunc("GET /api/cache/preload", middleware.CatchError(api.PreloadStatus))
	router.HandleFunc("POST /api/cache/preload", middleware.CatchError(api.Preload))
	router.HandleFunc("DELETE /api/cache/preload", middleware.CatchError(api.StopPreload))
	router.HandleFunc("DELETE /api/cache/entries/{key}", middleware.CatchError(api.DeleteEntry))
	router.HandleFunc("DELETE /api/cache", middleware.CatchError(api.Clear))
	router.HandleFunc("DELETE /api/cache/metrics", middleware.CatchError(api.ResetMetrics))
	router.HandleFunc("PATCH /api/cache/config", middleware.CatchError(api.UpdateConfig))
	router.HandleFunc("PATCH /api/cache/preload-config", middleware.CatchError(api.UpdatePreloadConfig))

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if gatherer != nil {
		router.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Unknown routes get the JSON 404 body.
	router.HandleFunc("/", middleware.CatchError(func(w http.ResponseWriter, r *http.Request) error {
		http.NotFound(w, r)

		return nil
	}))

	if config.Global.Development.InDevelopment {
		registerDebugRoutes(router)
	}
}

var flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})

func registerDebugRoutes(router *Router) {
	err := flightRecorder.Start()
	if err != nil {
		panic(err)
	}

	router.HandleFunc("GET /debug/pprof/", pprof.Index)
	router.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	router.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	router.HandleFunc("GET /debug/flight", func(w http.ResponseWriter, r *http.Request) {
		_, _ = flightRecorder.WriteTo(w)
	})
}
