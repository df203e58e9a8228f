package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stockroomhq/stockroom-backend/api/responses"
	"github.com/stockroomhq/stockroom-backend/api/validators"
	historysvc "github.com/stockroomhq/stockroom-backend/internal/history"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

const (
	defaultHistoryLimit     = 20
	defaultItemHistoryLimit = 50
	maxItemHistoryLimit     = 500
)

// HistoryList serves the audit trail, newest first, with optional
// action/date/item/user filters.
func HistoryList(svc historysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultHistoryLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseHistoryFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), filters, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func HistoryToday(svc historysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}

		result, err := svc.Today(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// HistorySummary returns per-day activity counts for an inclusive date range.
func HistorySummary(svc historysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}

		start, err := validators.ParseQueryDate(r, "startDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryDate(r, "endDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if start == nil || end == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "startDate and endDate are required"))
			return
		}

		summaries, err := svc.Summary(r.Context(), *start, *end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
			"summary":    summaries,
		})
	}
}

// HistoryItem serves the most recent entries for one item.
func HistoryItem(svc historysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}

		itemID, err := validators.ParsePathID(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultItemHistoryLimit, 1, maxItemHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ByItem(r.Context(), itemID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"item_id": itemID,
			"count":   len(entries),
			"entries": entries,
		})
	}
}

func parseHistoryFilters(r *http.Request) (historysvc.ListFilters, error) {
	var filters historysvc.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("actionType")); raw != "" {
		action, err := enums.ParseHistoryAction(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown action type").WithDetails(map[string]any{"field": "actionType"})
		}
		filters.ActionType = &action
	}

	itemID, err := validators.ParseQueryInt64(r, "itemId")
	if err != nil {
		return filters, err
	}
	filters.ItemID = itemID

	userID, err := validators.ParseQueryInt64(r, "userId")
	if err != nil {
		return filters, err
	}
	filters.UserID = userID

	from, err := validators.ParseQueryDate(r, "startDate")
	if err != nil {
		return filters, err
	}
	filters.From = from

	to, err := validators.ParseQueryDate(r, "endDate")
	if err != nil {
		return filters, err
	}
	filters.To = to

	return filters, nil
}
