package handlers

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"printqueue/internal/services"
	"printqueue/models"
)

type QueueHandler struct {
	queueService *services.QueueService
	tracker      OperationTracker
	displayLimit int
}

func NewQueueHandler(queueService *services.QueueService, tracker OperationTracker, displayLimit int) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		tracker:      trackerOrNop(tracker),
		displayLimit: displayLimit,
	}
}

type enqueueRequest struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

func (r enqueueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.StudentID, validation.Required, validation.Length(1, 50)),
	)
}

// Enqueue - Join the queue from the kiosk
func (h *QueueHandler) Enqueue(e *core.RequestEvent) (err error) {
	defer func(started time.Time) {
		h.tracker.TrackQueueOperation(string(services.EventJoined), started, err)
	}(time.Now())

	var req enqueueRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := req.Validate(); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	entry, err := h.queueService.Enqueue(e.Request.Context(), req.Name, req.StudentID)
	if err != nil {
		return apiError(err)
	}

	view := h.queueService.View()
	return e.JSON(http.StatusCreated, map[string]any{
		"entry":         entry,
		"position":      view.Position(entry.ID),
		"estimatedWait": view.EstimatedWait,
	})
}

// GetDisplay - State for the TV screen
func (h *QueueHandler) GetDisplay(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, h.queueService.View().Display(h.displayLimit))
}

// GetStats - Live queue counters
func (h *QueueHandler) GetStats(e *core.RequestEvent) error {
	view := h.queueService.View()
	return e.JSON(http.StatusOK, map[string]any{
		"stats":         view.Stats,
		"estimatedWait": view.EstimatedWait,
	})
}

// GetWaiting - Waiting entries for the desk screens
func (h *QueueHandler) GetWaiting(e *core.RequestEvent) error {
	waiting := h.queueService.WaitingQueue()
	return e.JSON(http.StatusOK, map[string]any{
		"waiting": waiting,
		"count":   len(waiting),
	})
}

// ListEntries - Admin queue table
func (h *QueueHandler) ListEntries(e *core.RequestEvent) error {
	q := e.Request.URL.Query()

	f := services.QueueListFilter{Search: q.Get("search")}
	if s := q.Get("status"); s != "" {
		st, err := models.ParseStatus(s)
		if err != nil {
			return apis.NewBadRequestError("Unknown status", nil)
		}
		f.Status = st
	}
	if d := q.Get("desk"); d != "" {
		desk, err := models.ParseDesk(d)
		if err != nil {
			return apis.NewBadRequestError("Unknown desk", nil)
		}
		f.Desk = desk
	}

	entries := h.queueService.ListEntries(f)
	return e.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// DeleteEntry - Remove an entry whatever its status
func (h *QueueHandler) DeleteEntry(e *core.RequestEvent) (err error) {
	defer func(started time.Time) {
		h.tracker.TrackQueueOperation(string(services.EventRemoved), started, err)
	}(time.Now())

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Entry ID required", nil)
	}
	if !h.queueService.DeleteFromQueue(e.Request.Context(), id) {
		return apis.NewBadRequestError("Failed to remove queue entry", nil)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Queue entry removed", "id": id})
}
