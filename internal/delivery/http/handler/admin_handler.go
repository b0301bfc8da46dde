package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/backend"
	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/usecase/onboarding"
	"vltd-dashboard/pkg/utils"
)

// AdminHandler serves the super-admin tables and the manufacturer approval
// actions.
type AdminHandler struct {
	onboarding *onboarding.Service
}

func NewAdminHandler(onboarding *onboarding.Service) *AdminHandler {
	return &AdminHandler{onboarding: onboarding}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	source := func(s *session.Session) deviceSource {
		a := s.Client.Admin()
		return deviceSource{page: a.Devices, all: a.AllDevices}
	}

	devices := router.Group("/devices")
	{
		devices.GET("", listDevicesHandler(source))
		devices.GET("/summary", deviceSummaryHandler(func(s *session.Session) func(context.Context) ([]device.Device, error) {
			return s.Client.Admin().AllDevices
		}))
		devices.GET("/search", h.SearchDevice)
		devices.POST("", h.CreateDevice)
		devices.PUT("/:id", h.UpdateDevice)
		devices.DELETE("/:id", h.DeleteDevice)
	}

	users := router.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/search", h.FindUserByPhone)
		users.GET("/:id", h.GetUser)
		users.POST("", h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	router.GET("/distributors", h.ListDistributors)
	router.GET("/rfcs", h.ListRFCs)

	manufacturers := router.Group("/manufacturers")
	{
		manufacturers.GET("", h.ListManufacturers)
		manufacturers.GET("/:id", h.ReviewManufacturer)
		manufacturers.POST("/:id/acknowledge", h.AcknowledgeManufacturer)
		manufacturers.POST("/:id/approve", h.ApproveManufacturer)
	}
}

func (h *AdminHandler) SearchDevice(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	d, err := s.Client.Admin().SearchDevice(c.Request.Context(), c.Query("imei"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", viewDevices([]device.Device{*d})[0])
}

func (h *AdminHandler) CreateDevice(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req backend.DeviceInput
	if !bindJSON(c, &req) {
		return
	}

	d, err := s.Client.Admin().CreateDevice(c.Request.Context(), req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Device created successfully", d)
}

func (h *AdminHandler) UpdateDevice(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req backend.DeviceInput
	if !bindJSON(c, &req) {
		return
	}

	d, err := s.Client.Admin().UpdateDevice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device updated successfully", d)
}

func (h *AdminHandler) DeleteDevice(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	if err := s.Client.Admin().DeleteDevice(c.Request.Context(), c.Param("id")); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Device deleted successfully", nil)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	p, paged, err := pageFromQuery(c)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	var users []user.User
	if paged {
		users, err = s.Client.Admin().Users(c.Request.Context(), p)
	} else {
		users, err = s.Client.Admin().AllUsers(c.Request.Context())
	}
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *AdminHandler) FindUserByPhone(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	u, err := s.Client.Admin().FindUserByPhone(c.Request.Context(), c.Query("phone"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "User retrieved successfully", u)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	u, err := s.Client.Admin().GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "User retrieved successfully", u)
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req user.NewUser
	if !bindJSON(c, &req) {
		return
	}

	u, err := s.Client.Admin().CreateUser(c.Request.Context(), req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "User created successfully", u)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req user.Update
	if !bindJSON(c, &req) {
		return
	}

	u, err := s.Client.Admin().UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "User updated successfully", u)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	if err := s.Client.Admin().DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *AdminHandler) ListDistributors(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	distributors, err := s.Client.Admin().ListDistributors(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Distributors retrieved successfully", distributors)
}

func (h *AdminHandler) ListRFCs(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	rfcs, err := s.Client.Admin().ListRFCs(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "RFCs retrieved successfully", rfcs)
}

func (h *AdminHandler) ListManufacturers(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	manufacturers, err := s.Client.Admin().Manufacturers(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Manufacturers retrieved successfully", manufacturers)
}

func (h *AdminHandler) ReviewManufacturer(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	review, err := h.onboarding.Review(c.Request.Context(), s.Client.Admin(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Manufacturer retrieved successfully", review)
}

type acknowledgeRequest struct {
	Password string `json:"password"`
}

func (h *AdminHandler) AcknowledgeManufacturer(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	var req acknowledgeRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.onboarding.Acknowledge(c.Request.Context(), s.Client.Admin(), c.Param("id"), strings.TrimSpace(req.Password))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Manufacturer acknowledged", review)
}

func (h *AdminHandler) ApproveManufacturer(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	review, err := h.onboarding.Approve(c.Request.Context(), s.Client.Admin(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Manufacturer approved", review)
}
