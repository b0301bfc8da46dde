package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/tokenstore"
	"vltd-dashboard/internal/usecase/tracking"
	"vltd-dashboard/pkg/utils"
)

// MapHandler serves the live-map views of one role.
type MapHandler struct {
	role tokenstore.Role
}

func NewMapHandler(role tokenstore.Role) *MapHandler {
	return &MapHandler{role: role}
}

func (h *MapHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/map")
	{
		group.GET("/locations", h.Locations)
		group.GET("/stream", h.Stream)
		group.GET("/metrics", h.Metrics)
	}
}

func (h *MapHandler) tracker(c *gin.Context) *tracking.Tracker {
	s := currentSession(c)
	if s == nil {
		return nil
	}
	t, err := s.Tracker(h.role)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return nil
	}
	return t
}

// Locations returns the latest snapshot, polling first when nothing has been
// polled yet or ?refresh=true is given.
func (h *MapHandler) Locations(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}

	snap := t.Latest()
	if snap.PolledAt.IsZero() || c.Query("refresh") == "true" {
		var err error
		snap, err = t.Refresh(c.Request.Context())
		if err != nil && len(snap.Locations) == 0 {
			utils.AppErrorResponse(c, err)
			return
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "Locations retrieved successfully", snap)
}

// Stream pushes every poll result as a server-sent "locations" event. Polling
// runs only while at least one stream is open.
func (h *MapHandler) Stream(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}

	updates := make(chan tracking.Snapshot, 1)
	unsubscribe := t.Subscribe(func(snap tracking.Snapshot) {
		// Keep only the newest snapshot for slow readers.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsubscribe()

	if latest := t.Latest(); !latest.PolledAt.IsZero() {
		c.SSEvent("locations", latest)
		c.Writer.Flush()
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap := <-updates:
			c.SSEvent("locations", snap)
			return true
		}
	})
}

func (h *MapHandler) Metrics(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Poll metrics retrieved", gin.H{
		"subscribers": t.Subscribers(),
		"metrics":     t.Metrics(),
	})
}
