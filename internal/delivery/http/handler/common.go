package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/middleware"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/usecase/assignment"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

// currentSession is only nil when a route was registered without RoleMiddleware.
func currentSession(c *gin.Context) *session.Session {
	s := middleware.GetSession(c)
	if s == nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Please log in first")
		c.Abort()
	}
	return s
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pageFromQuery reads ?page=&limit=. ok is false when no page was asked for,
// in which case the full list is walked.
func pageFromQuery(c *gin.Context) (backend.PageRequest, bool, error) {
	rawPage := c.Query("page")
	if rawPage == "" {
		return backend.PageRequest{}, false, nil
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		return backend.PageRequest{}, false, appErrors.Validation("page must be a positive number")
	}
	var limit int
	if rawLimit := c.Query("limit"); rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 || limit > 500 {
			return backend.PageRequest{}, false, appErrors.Validation("limit must be between 1 and 500")
		}
	}
	return backend.PageRequest{Page: page, Limit: limit}, true, nil
}

// parseStatuses reads a comma separated ?status= filter.
func parseStatuses(raw string) ([]device.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []device.Status
	for _, part := range strings.Split(raw, ",") {
		s := device.Status(strings.TrimSpace(part))
		switch s {
		case device.StatusUnassigned, device.StatusAssignedToDistributor, device.StatusAssignedToRFC, device.StatusActivated:
			out = append(out, s)
		case "":
		default:
			return nil, appErrors.Validation("Unknown device status " + string(s))
		}
	}
	return out, nil
}

// deviceView adds the derived assignment status to a device.
type deviceView struct {
	device.Device
	Status      device.Status `json:"status"`
	StatusLabel string        `json:"status_label"`
}

func viewDevices(devices []device.Device) []deviceView {
	out := make([]deviceView, len(devices))
	for i := range devices {
		status := device.AssignmentStatus(&devices[i])
		out[i] = deviceView{Device: devices[i], Status: status, StatusLabel: status.Label()}
	}
	return out
}

type deviceList struct {
	Devices []deviceView `json:"devices"`
	Count   int          `json:"count"`
	Page    int          `json:"page,omitempty"`
	Limit   int          `json:"limit,omitempty"`
}

type deviceSource struct {
	page func(context.Context, backend.PageRequest) ([]device.Device, error)
	all  func(context.Context) ([]device.Device, error)
}

func (src deviceSource) load(c *gin.Context) ([]device.Device, backend.PageRequest, error) {
	p, paged, err := pageFromQuery(c)
	if err != nil {
		return nil, p, err
	}
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		return nil, p, err
	}

	var devices []device.Device
	if paged {
		devices, err = src.page(c.Request.Context(), p)
	} else {
		devices, err = src.all(c.Request.Context())
	}
	if err != nil {
		return nil, p, err
	}
	return assignment.Filter(devices, statuses...), p, nil
}

func listDevicesHandler(source func(*session.Session) deviceSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			return
		}
		devices, p, err := source(s).load(c)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", deviceList{
			Devices: viewDevices(devices),
			Count:   len(devices),
			Page:    p.Page,
			Limit:   p.Limit,
		})
	}
}

func deviceSummaryHandler(all func(*session.Session) func(context.Context) ([]device.Device, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			return
		}
		devices, err := all(s)(c.Request.Context())
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Summary retrieved successfully", assignment.Summarize(devices))
	}
}
