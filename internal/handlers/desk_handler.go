package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"printqueue/internal/services"
	"printqueue/internal/status"
	"printqueue/models"
)

// DeskHandler serves the desk operator actions.
type DeskHandler struct {
	queueService *services.QueueService
	tracker      OperationTracker
}

func NewDeskHandler(queueService *services.QueueService, tracker OperationTracker) *DeskHandler {
	return &DeskHandler{queueService: queueService, tracker: trackerOrNop(tracker)}
}

func deskParam(e *core.RequestEvent) (models.Desk, error) {
	desk, err := models.ParseDesk(e.Request.PathValue("desk"))
	if err != nil {
		return models.DeskNone, apis.NewBadRequestError("Unknown desk", nil)
	}
	return desk, nil
}

// CallNext - Complete the current entry at the desk and call the next one
func (h *DeskHandler) CallNext(e *core.RequestEvent) (err error) {
	defer func(started time.Time) {
		h.tracker.TrackQueueOperation(string(services.EventCalled), started, err)
	}(time.Now())

	desk, err := deskParam(e)
	if err != nil {
		return err
	}

	res, err := h.queueService.CallNextForDesk(e.Request.Context(), desk)
	if err != nil {
		return apiError(err)
	}
	if res.Completed == nil && res.Called == nil {
		return apiError(status.ErrNothingWaiting)
	}

	message := "Called next in queue"
	if res.Called == nil {
		message = "Completed, no one else in queue"
	}
	return e.JSON(http.StatusOK, map[string]any{
		"message":   message,
		"desk":      desk,
		"completed": res.Completed,
		"called":    res.Called,
	})
}

// Complete - Finish the entry served at the desk
func (h *DeskHandler) Complete(e *core.RequestEvent) (err error) {
	defer func(started time.Time) {
		h.tracker.TrackQueueOperation(string(services.EventCompleted), started, err)
	}(time.Now())

	desk, err := deskParam(e)
	if err != nil {
		return err
	}

	entry, err := h.queueService.CompleteServingForDesk(e.Request.Context(), desk)
	if err != nil {
		return apiError(err)
	}
	if entry == nil {
		return apiError(status.ErrNothingServing)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"message":   "Job completed",
		"desk":      desk,
		"completed": entry,
	})
}

// ResetQueue - Clear the live queue and restart numbering
func (h *DeskHandler) ResetQueue(e *core.RequestEvent) (err error) {
	defer func(started time.Time) {
		h.tracker.TrackQueueOperation(string(services.EventReset), started, err)
	}(time.Now())

	if !h.queueService.ResetQueue(e.Request.Context()) {
		return apis.NewInternalServerError("Failed to reset queue", nil)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Queue reset"})
}
