package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"studycycle/backend/internal/engine"
	apperrors "studycycle/backend/internal/errors"
	"studycycle/backend/internal/middleware"
	"studycycle/backend/internal/service"
)

type CycleHandler struct {
	cycleService *service.CycleService
}

type cycleCommand func(ctx context.Context, userID string) (*engine.View, *apperrors.APIError)

func NewCycleHandler(cycleService *service.CycleService) *CycleHandler {
	return &CycleHandler{cycleService: cycleService}
}

func (h *CycleHandler) GetState(c *gin.Context) {
	h.command(c, h.cycleService.State)
}

func (h *CycleHandler) GetPlan(c *gin.Context) {
	plan, apiErr := h.cycleService.Plan(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *CycleHandler) Start(c *gin.Context)        { h.command(c, h.cycleService.Start) }
func (h *CycleHandler) Pause(c *gin.Context)        { h.command(c, h.cycleService.Pause) }
func (h *CycleHandler) Resume(c *gin.Context)       { h.command(c, h.cycleService.Resume) }
func (h *CycleHandler) Advance(c *gin.Context)      { h.command(c, h.cycleService.Advance) }
func (h *CycleHandler) Skip(c *gin.Context)         { h.command(c, h.cycleService.Skip) }
func (h *CycleHandler) Previous(c *gin.Context)     { h.command(c, h.cycleService.Previous) }
func (h *CycleHandler) ResetBlock(c *gin.Context)   { h.command(c, h.cycleService.ResetBlock) }
func (h *CycleHandler) ResetSubject(c *gin.Context) { h.command(c, h.cycleService.ResetSubject) }
func (h *CycleHandler) ResetCycle(c *gin.Context)   { h.command(c, h.cycleService.ResetCycle) }
func (h *CycleHandler) Resync(c *gin.Context)       { h.command(c, h.cycleService.Resync) }

func (h *CycleHandler) RetryRecords(c *gin.Context) {
	requeued, apiErr := h.cycleService.RetryRecords(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": requeued})
}

// Events streams state changes and alarms as server-sent events until the
// client disconnects.
func (h *CycleHandler) Events(c *gin.Context) {
	userID := middleware.UserID(c)
	view, apiErr := h.cycleService.State(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	notifications, cancel, apiErr := h.cycleService.Subscribe(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	defer cancel()

	c.SSEvent(string(engine.NotifyState), engine.Notification{Kind: engine.NotifyState, View: *view})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case n, ok := <-notifications:
			if !ok {
				return false
			}
			c.SSEvent(string(n.Kind), n)
			return true
		}
	})
}

func (h *CycleHandler) command(c *gin.Context, cmd cycleCommand) {
	view, apiErr := cmd(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}
