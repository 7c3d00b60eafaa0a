package handlers

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"printqueue/internal/logger"
	"printqueue/internal/services"
	"printqueue/models"
)

type AdminHandler struct {
	historyService   *services.HistoryService
	analyticsService *services.AnalyticsService
	l                logger.Logger
}

func NewAdminHandler(historyService *services.HistoryService, analyticsService *services.AnalyticsService, l logger.Logger) *AdminHandler {
	return &AdminHandler{
		historyService:   historyService,
		analyticsService: analyticsService,
		l:                l,
	}
}

// GetAnalytics - Aggregates over history completed between start and end
func (h *AdminHandler) GetAnalytics(e *core.RequestEvent) error {
	q := e.Request.URL.Query()
	r := models.DateRange{Start: q.Get("start"), End: q.Get("end")}
	if r.Start == "" || r.End == "" {
		return apis.NewBadRequestError("start and end dates are required", nil)
	}

	analytics, err := h.analyticsService.Analytics(e.Request.Context(), r)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, analytics)
}

// GetHistory - Filtered history with a summary
func (h *AdminHandler) GetHistory(e *core.RequestEvent) error {
	q := e.Request.URL.Query()

	f := services.HistoryFilter{
		Search:    q.Get("search"),
		Range:     services.HistoryRange(q.Get("range")),
		SortField: q.Get("sort"),
		Ascending: strings.EqualFold(q.Get("order"), "asc"),
	}
	if !f.Range.Valid() {
		return apis.NewBadRequestError("Unknown range", nil)
	}
	if !services.ValidHistorySortField(f.SortField) {
		return apis.NewBadRequestError("Unknown sort field", nil)
	}
	if d := q.Get("desk"); d != "" {
		desk, err := models.ParseDesk(d)
		if err != nil {
			return apis.NewBadRequestError("Unknown desk", nil)
		}
		f.Desk = desk
	}

	records, summary, err := h.historyService.List(e.Request.Context(), f)
	if err != nil {
		h.l.Errorf(e.Request.Context(), "handlers.AdminHandler.GetHistory: %v", err)
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"records": records,
		"summary": summary,
	})
}

// UpdateHistory - Correct a history record
func (h *AdminHandler) UpdateHistory(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	var patch services.HistoryPatch
	if err := e.BindBody(&patch); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	record, err := h.historyService.Update(e.Request.Context(), id, patch)
	if err != nil {
		return apiError(err)
	}
	h.l.Infof(e.Request.Context(), "history: %s corrected by %s", id, e.Auth.Id)
	return e.JSON(http.StatusOK, record)
}

type deleteHistoryRequest struct {
	IDs []string `json:"ids"`
}

func (r deleteHistoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Each(validation.Required)),
	)
}

// DeleteHistory - Remove history records in bulk
func (h *AdminHandler) DeleteHistory(e *core.RequestEvent) error {
	var req deleteHistoryRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := req.Validate(); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	deleted, err := h.historyService.DeleteMany(e.Request.Context(), req.IDs)
	if err != nil && deleted == 0 {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"deleted": deleted,
		"failed":  len(req.IDs) - deleted,
	})
}
