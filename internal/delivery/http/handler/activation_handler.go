package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/middleware"
	"vltd-dashboard/internal/usecase/activation"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

// ActivationHandler exposes the activation dialog. One handler is registered
// per variant, under the RFC and admin route groups.
type ActivationHandler struct {
	variant activation.Variant
}

func NewActivationHandler(variant activation.Variant) *ActivationHandler {
	return &ActivationHandler{variant: variant}
}

func (h *ActivationHandler) RegisterRoutes(router *gin.RouterGroup) {
	activations := router.Group("/activations")
	{
		activations.POST("", h.Open)
		activations.GET("/:id", h.Get)
		activations.POST("/:id/search", h.Search)
		activations.POST("/:id/users/find", h.FindUser)
		activations.POST("/:id/users", h.CreateUser)
		activations.POST("/:id/submit", h.Submit)
		activations.POST("/:id/cancel", h.Cancel)
		activations.GET("/:id/devices", h.Devices)
		activations.DELETE("/:id", h.Close)
	}
}

// workflow resolves :id within the current session. Dialogs of the other
// variant are reported as not found.
func (h *ActivationHandler) workflow(c *gin.Context) *activation.Workflow {
	s := currentSession(c)
	if s == nil {
		return nil
	}
	w, err := s.Activations.Get(c.Param("id"))
	if err == nil && w.Variant() != h.variant {
		err = appErrors.NotFound("DIALOG_NOT_FOUND", "Activation dialog not found", appErrors.ErrNotFound)
	}
	if err != nil {
		utils.AppErrorResponse(c, err)
		return nil
	}
	return w
}

func respondSnapshot(c *gin.Context, snap activation.Snapshot, err error, message string) {
	if err != nil {
		utils.AppErrorResponseWithData(c, err, snap)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, message, snap)
}

func (h *ActivationHandler) Open(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}

	w, err := s.Activations.Open(h.variant)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Activation started", w.Snapshot())
}

func (h *ActivationHandler) Get(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Activation retrieved", w.Snapshot())
}

type searchRequest struct {
	IMEI string `json:"imei"`
}

func (h *ActivationHandler) Search(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}
	var req searchRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, err := w.Search(c.Request.Context(), req.IMEI)
	respondSnapshot(c, snap, err, "Device found")
}

type findUserRequest struct {
	Phone string `json:"phone"`
}

func (h *ActivationHandler) FindUser(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}
	var req findUserRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, err := w.FindUser(c.Request.Context(), utils.SanitizePhone(req.Phone))
	respondSnapshot(c, snap, err, "User found")
}

func (h *ActivationHandler) CreateUser(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}
	var req user.NewUser
	if !bindJSON(c, &req) {
		return
	}

	snap, err := w.CreateUser(c.Request.Context(), req)
	respondSnapshot(c, snap, err, "User created successfully")
}

// Submit takes optional form edits; an empty body resubmits the current form.
func (h *ActivationHandler) Submit(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}

	var edits *activation.VehicleForm
	if c.Request.ContentLength != 0 {
		edits = &activation.VehicleForm{}
		if !bindJSON(c, edits) {
			return
		}
	}

	snap, err := w.Submit(c.Request.Context(), edits)
	respondSnapshot(c, snap, err, snap.Notice)
}

func (h *ActivationHandler) Cancel(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Activation reset", w.Cancel())
}

// Devices returns the device list as refreshed by the last successful submit.
func (h *ActivationHandler) Devices(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", viewDevices(w.Devices()))
}

func (h *ActivationHandler) Close(c *gin.Context) {
	w := h.workflow(c)
	if w == nil {
		return
	}
	middleware.GetSession(c).Activations.Close(w.ID())
	utils.SuccessResponse(c, http.StatusOK, "Activation closed", nil)
}
