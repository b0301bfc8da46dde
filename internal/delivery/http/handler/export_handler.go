package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/export"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/usecase/assignment"
	"vltd-dashboard/pkg/utils"
)

// tableSource loads one export table for the current session.
type tableSource func(ctx context.Context, c *gin.Context, s *session.Session) (export.Table, error)

// ExportHandler renders list views as CSV or Excel downloads.
type ExportHandler struct {
	now func() time.Time
}

func NewExportHandler() *ExportHandler {
	return &ExportHandler{now: time.Now}
}

func (h *ExportHandler) RegisterManufacturerRoutes(router *gin.RouterGroup) {
	router.GET("/devices/export", h.serve("devices", devicesTable(func(s *session.Session) func(context.Context) ([]device.Device, error) {
		return s.Client.Manufacturer().AllInventory
	})))
	router.GET("/distributors/export", h.serve("distributors", func(ctx context.Context, _ *gin.Context, s *session.Session) (export.Table, error) {
		list, err := s.Client.Manufacturer().ListDistributors(ctx)
		return export.Distributors(list), err
	}))
}

func (h *ExportHandler) RegisterDistributorRoutes(router *gin.RouterGroup) {
	router.GET("/devices/export", h.serve("devices", devicesTable(func(s *session.Session) func(context.Context) ([]device.Device, error) {
		return s.Client.Distributor().AllInventory
	})))
	router.GET("/rfcs/export", h.serve("rfcs", func(ctx context.Context, _ *gin.Context, s *session.Session) (export.Table, error) {
		list, err := s.Client.Distributor().ListRFCs(ctx)
		return export.RFCs(list), err
	}))
}

func (h *ExportHandler) RegisterRFCRoutes(router *gin.RouterGroup) {
	router.GET("/devices/export", h.serve("devices", devicesTable(func(s *session.Session) func(context.Context) ([]device.Device, error) {
		return s.Client.RFC().AllDevices
	})))
}

func (h *ExportHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.GET("/devices/export", h.serve("devices", devicesTable(func(s *session.Session) func(context.Context) ([]device.Device, error) {
		return s.Client.Admin().AllDevices
	})))
	router.GET("/users/export", h.serve("users", func(ctx context.Context, _ *gin.Context, s *session.Session) (export.Table, error) {
		list, err := s.Client.Admin().AllUsers(ctx)
		return export.Users(list), err
	}))
	router.GET("/manufacturers/export", h.serve("manufacturers", func(ctx context.Context, _ *gin.Context, s *session.Session) (export.Table, error) {
		list, err := s.Client.Admin().Manufacturers(ctx)
		return export.Manufacturers(list), err
	}))
	router.GET("/distributors/export", h.serve("distributors", func(ctx context.Context, _ *gin.Context, s *session.Session) (export.Table, error) {
		list, err := s.Client.Admin().ListDistributors(ctx)
		return export.Distributors(list), err
	}))
	router.GET("/rfcs/export", h.serve("rfcs", func(ctx context.Context, _ *gin.Context, s *session.Session) (export.Table, error) {
		list, err := s.Client.Admin().ListRFCs(ctx)
		return export.RFCs(list), err
	}))
}

// devicesTable honours the same ?status= filter as the device list.
func devicesTable(all func(*session.Session) func(context.Context) ([]device.Device, error)) tableSource {
	return func(ctx context.Context, c *gin.Context, s *session.Session) (export.Table, error) {
		statuses, err := parseStatuses(c.Query("status"))
		if err != nil {
			return export.Table{}, err
		}
		devices, err := all(s)(ctx)
		if err != nil {
			return export.Table{}, err
		}
		return export.Devices(assignment.Filter(devices, statuses...)), nil
	}
}

func (h *ExportHandler) serve(base string, load tableSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if s == nil {
			return
		}
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}

		table, err := load(c.Request.Context(), c, s)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, table); err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to build export")
			return
		}

		filename := export.Filename(base, format, h.now())
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}
