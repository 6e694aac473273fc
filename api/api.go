// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api exposes a read-only HTTP view over the ledger state and
// the event journal. It is operator convenience, not a protocol
// surface: nothing here mutates state.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/horizonledger/horizon/eventdb"
	"github.com/horizonledger/horizon/ledger"
	"github.com/horizonledger/horizon/log"
	"github.com/horizonledger/horizon/metrics"
)

var logger = log.WithContext("pkg", "api")

// Options configures the api router.
type Options struct {
	AllowedOrigins string
	EventsLimit    uint64
	EnableMetrics  bool
}

// New return the api handler.
func New(ldgr *ledger.Ledger, events *eventdb.EventDB, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	newLedgerAPI(ldgr).mount(router)
	if events != nil {
		limit := opts.EventsLimit
		if limit == 0 {
			limit = 1000
		}
		newEventsAPI(events, limit).mount(router)
	}
	if opts.EnableMetrics {
		router.Path("/metrics").Handler(metrics.HTTPHandler())
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	return func(w http.ResponseWriter, req *http.Request) {
		logger.Debug("request", "method", req.Method, "path", req.URL.Path)
		handler.ServeHTTP(w, req)
	}
}
