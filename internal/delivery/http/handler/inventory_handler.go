package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/usecase/assignment"
	"vltd-dashboard/pkg/utils"
)

// InventoryHandler serves the device lists of the manufacturer, distributor
// and RFC views and the two assignment edges between them.
type InventoryHandler struct {
	assignments *assignment.Service
}

func NewInventoryHandler(assignments *assignment.Service) *InventoryHandler {
	return &InventoryHandler{assignments: assignments}
}

func (h *InventoryHandler) RegisterManufacturerRoutes(router *gin.RouterGroup) {
	source := func(s *session.Session) deviceSource {
		m := s.Client.Manufacturer()
		return deviceSource{page: m.Inventory, all: m.AllInventory}
	}
	router.GET("/devices", listDevicesHandler(source))
	router.GET("/devices/summary", deviceSummaryHandler(func(s *session.Session) func(context.Context) ([]device.Device, error) {
		return s.Client.Manufacturer().AllInventory
	}))
	router.POST("/devices/bulk", h.BulkUpload)
	router.POST("/devices/:imei/certificate", h.GenerateCertificate)
	router.GET("/distributors", h.ListDistributors)
	router.POST("/distributors", h.CreateDistributor)
	router.POST("/distributors/assign", h.AssignToDistributor)
}

func (h *InventoryHandler) RegisterDistributorRoutes(router *gin.RouterGroup) {
	source := func(s *session.Session) deviceSource {
		d := s.Client.Distributor()
		return deviceSource{page: d.Inventory, all: d.AllInventory}
	}
	router.GET("/devices", listDevicesHandler(source))
	router.GET("/devices/summary", deviceSummaryHandler(func(s *session.Session) func(context.Context) ([]device.Device, error) {
		return s.Client.Distributor().AllInventory
	}))
	router.GET("/rfcs", h.ListRFCs)
	router.POST("/rfcs", h.CreateRFC)
	router.POST("/rfcs/assign", h.AssignToRFC)
}

func (h *InventoryHandler) RegisterRFCRoutes(router *gin.RouterGroup) {
	source := func(s *session.Session) deviceSource {
		r := s.Client.RFC()
		return deviceSource{page: r.Devices, all: r.AllDevices}
	}
	router.GET("/devices", listDevicesHandler(source))
	router.GET("/devices/summary", deviceSummaryHandler(func(s *session.Session) func(context.Context) ([]device.Device, error) {
		return s.Client.RFC().AllDevices
	}))
	router.GET("/devices/search", h.SearchRFCDevice)
}

type bulkUploadRequest struct {
	Devices []backend.DeviceInput `json:"devices"`
}

func (h *InventoryHandler) BulkUpload(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req bulkUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.Client.Manufacturer().BulkUpload(c.Request.Context(), req.Devices)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Devices uploaded", result)
}

func (h *InventoryHandler) GenerateCertificate(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	cert, err := s.Client.Manufacturer().GenerateCertificate(c.Request.Context(), utils.NormalizeIMEI(c.Param("imei")))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Certificate generated successfully", cert)
}

func (h *InventoryHandler) ListDistributors(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	distributors, err := s.Client.Manufacturer().ListDistributors(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Distributors retrieved successfully", distributors)
}

func (h *InventoryHandler) CreateDistributor(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req organization.NewEntity
	if !bindJSON(c, &req) {
		return
	}

	created, err := s.Client.Manufacturer().CreateDistributor(c.Request.Context(), sanitizeEntity(req))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Distributor created successfully", created)
}

func (h *InventoryHandler) ListRFCs(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	rfcs, err := s.Client.Distributor().ListRFCs(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "RFCs retrieved successfully", rfcs)
}

func (h *InventoryHandler) CreateRFC(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req organization.NewEntity
	if !bindJSON(c, &req) {
		return
	}

	created, err := s.Client.Distributor().CreateRFC(c.Request.Context(), sanitizeEntity(req))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "RFC created successfully", created)
}

func (h *InventoryHandler) AssignToDistributor(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req backend.AssignRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.assignments.ToDistributor(c.Request.Context(), s.Client.Manufacturer(), req.EntityID, req.IMEIs)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Devices assigned to distributor", result)
}

func (h *InventoryHandler) AssignToRFC(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req backend.AssignRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.assignments.ToRFC(c.Request.Context(), s.Client.Distributor(), req.EntityID, req.IMEIs)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Devices assigned to RFC", result)
}

func (h *InventoryHandler) SearchRFCDevice(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	d, err := s.Client.RFC().SearchDevice(c.Request.Context(), utils.NormalizeIMEI(c.Query("imei")))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", viewDevices([]device.Device{*d})[0])
}

func sanitizeEntity(in organization.NewEntity) organization.NewEntity {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = utils.SanitizeEmail(in.Email)
	in.Phone = utils.SanitizePhone(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	return in
}
