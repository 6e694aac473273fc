// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/horizonledger/horizon/api/restutil"
	"github.com/horizonledger/horizon/eventdb"
)

type eventsAPI struct {
	db    *eventdb.EventDB
	limit uint64
}

func newEventsAPI(db *eventdb.EventDB, limit uint64) *eventsAPI {
	return &eventsAPI{db: db, limit: limit}
}

func (a *eventsAPI) handleGetEvents(w http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query()
	filter := &eventdb.Filter{
		Name:  query.Get("name"),
		Order: eventdb.ASC,
	}
	if query.Get("order") == string(eventdb.DESC) {
		filter.Order = eventdb.DESC
	}

	from, to, err := parseRange(query.Get("from"), query.Get("to"))
	if err != nil {
		return restutil.BadRequest(err)
	}
	if from != 0 || to != 0 {
		filter.Range = &eventdb.Range{From: from, To: to}
	}

	offset, err := parseUint(query.Get("offset"), 0)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "offset"))
	}
	limit, err := parseUint(query.Get("limit"), a.limit)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "limit"))
	}
	if limit > a.limit {
		return restutil.BadRequest(errors.Errorf("limit exceeds maximum of %d", a.limit))
	}
	filter.Options = &eventdb.Options{Offset: offset, Limit: limit}

	events, err := a.db.Filter(filter)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*eventdb.Event{}
	}
	return restutil.WriteJSON(w, events)
}

func parseRange(fromStr, toStr string) (from, to uint64, err error) {
	if from, err = parseUint(fromStr, 0); err != nil {
		return 0, 0, errors.WithMessage(err, "from")
	}
	if to, err = parseUint(toStr, 0); err != nil {
		return 0, 0, errors.WithMessage(err, "to")
	}
	return from, to, nil
}

func parseUint(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func (a *eventsAPI) mount(router *mux.Router) {
	router.Path("/events").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetEvents))
}
