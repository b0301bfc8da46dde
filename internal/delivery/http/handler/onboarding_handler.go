package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/session"
	"vltd-dashboard/internal/tokenstore"
	"vltd-dashboard/internal/usecase/onboarding"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

// OnboardingHandler serves the manufacturer document upload flow. Multipart
// form fields are named after the document slot, e.g. "gst_certificate".
type OnboardingHandler struct {
	service  *onboarding.Service
	maxBytes int64
}

func NewOnboardingHandler(service *onboarding.Service, maxBytes int64) *OnboardingHandler {
	if maxBytes <= 0 {
		maxBytes = onboarding.DefaultMaxDocumentSize
	}
	return &OnboardingHandler{service: service, maxBytes: maxBytes}
}

func (h *OnboardingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/onboarding")
	{
		group.GET("/status", h.Status)
		group.GET("/documents", h.CachedDocuments)
		group.POST("/documents", h.Upload)
		group.POST("/documents/retry", h.Retry)
		group.POST("/submit", h.Submit)
	}
}

// manufacturerID is the id of the logged-in manufacturer account, falling
// back to the profile when login did not return one.
func manufacturerID(c *gin.Context, s *session.Session) (string, error) {
	if account, ok := s.Account(tokenstore.RoleManufacturer); ok && account.ID != "" {
		return account.ID, nil
	}
	profile, err := s.Client.Manufacturer().Profile(c.Request.Context())
	if err != nil {
		return "", err
	}
	return profile.ID, nil
}

func (h *OnboardingHandler) Status(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	userID, err := manufacturerID(c, s)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	status, err := h.service.Status(c.Request.Context(), s.Client.Manufacturer(), userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	s.UpdateStatus(tokenstore.RoleManufacturer, status.Status)
	utils.SuccessResponse(c, http.StatusOK, "Onboarding status retrieved", status)
}

func (h *OnboardingHandler) CachedDocuments(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	userID, err := manufacturerID(c, s)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	docs, err := h.service.CachedUploads(c.Request.Context(), userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Uploaded documents retrieved", docs)
}

type uploadResponse struct {
	Results   []onboarding.UploadResult `json:"results"`
	Succeeded int                       `json:"succeeded"`
	Failed    int                       `json:"failed"`
}

func newUploadResponse(results []onboarding.UploadResult) uploadResponse {
	resp := uploadResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp
}

func (h *OnboardingHandler) Upload(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	userID, err := manufacturerID(c, s)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	docs, err := h.readDocuments(c)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if len(docs) == 0 {
		utils.AppErrorResponse(c, appErrors.Validation("Select at least one document to upload"))
		return
	}

	results := h.service.UploadMultipleDocuments(c.Request.Context(), s.Client.Manufacturer(), userID, docs)
	s.SetUploads(results)
	utils.SuccessResponse(c, http.StatusOK, "Documents processed", newUploadResponse(results))
}

// Retry re-sends only the slots that failed in the previous batch of this
// session, using the files attached to this request.
func (h *OnboardingHandler) Retry(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	previous := s.Uploads()
	if len(previous) == 0 {
		utils.AppErrorResponse(c, appErrors.Validation("There is no upload to retry"))
		return
	}
	userID, err := manufacturerID(c, s)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	docs, err := h.readDocuments(c)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	files := make(map[organization.DocumentType]onboarding.Document, len(docs))
	for _, d := range docs {
		files[d.DocumentType] = d
	}

	results := h.service.RetryFailedUploads(c.Request.Context(), s.Client.Manufacturer(), userID, previous, files)
	s.SetUploads(results)
	utils.SuccessResponse(c, http.StatusOK, "Documents processed", newUploadResponse(results))
}

func (h *OnboardingHandler) Submit(c *gin.Context) {
	s := currentSession(c)
	if s == nil {
		return
	}
	userID, err := manufacturerID(c, s)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if err := h.service.Submit(c.Request.Context(), s.Client.Manufacturer(), userID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	s.SetUploads(nil)
	utils.SuccessResponse(c, http.StatusOK, "Documents submitted for review", nil)
}

// readDocuments collects one file per known slot from the multipart form.
func (h *OnboardingHandler) readDocuments(c *gin.Context) ([]onboarding.Document, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, appErrors.Validation("Expected a multipart form upload")
	}

	var docs []onboarding.Document
	for _, docType := range organization.RequiredDocuments {
		headers := form.File[string(docType)]
		if len(headers) == 0 {
			continue
		}
		if len(headers) > 1 {
			return nil, appErrors.Validation(fmt.Sprintf("Attach only one %s file", onboarding.DisplayName(docType)))
		}
		content, err := h.readFile(headers[0])
		if err != nil {
			return nil, err
		}
		docs = append(docs, onboarding.Document{
			DocumentType: docType,
			FileName:     headers[0].Filename,
			Content:      content,
		})
	}
	for field := range form.File {
		if !organization.DocumentType(field).Valid() {
			return nil, appErrors.Validation(fmt.Sprintf("Unknown document type %q", field))
		}
	}
	return docs, nil
}

// readFile reads at most maxBytes+1 so oversized files still fail validation
// without being held in memory in full.
func (h *OnboardingHandler) readFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
	}
	return content, nil
}
