package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
)

// ManufacturerAPI is the manufacturer role's view of the backend.
type ManufacturerAPI struct {
	c *Client
}

const roleManufacturer = tokenstore.RoleManufacturer

func (m *ManufacturerAPI) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	result, err := m.c.login(ctx, roleManufacturer, "/manufacturer/auth/signin", creds)
	if err != nil {
		return nil, err
	}
	markOnboarding(result)
	return result, nil
}

func (m *ManufacturerAPI) Logout() {
	m.c.logout(roleManufacturer)
}

func (m *ManufacturerAPI) Profile(ctx context.Context) (*organization.Manufacturer, error) {
	env, err := m.c.do(ctx, call{role: roleManufacturer, method: http.MethodGet, path: "/manufacturer/profile", expect: []string{"user"}})
	if err != nil {
		return nil, err
	}
	var out organization.Manufacturer
	if ok, err := env.decode("user", &out); err != nil {
		return nil, err
	} else if !ok {
		return nil, appErrors.NotFound("PROFILE_NOT_FOUND", "Manufacturer profile not found", appErrors.ErrNotFound)
	}
	return &out, nil
}

// Inventory returns one page of the manufacturer's devices.
func (m *ManufacturerAPI) Inventory(ctx context.Context, p PageRequest) ([]device.Device, error) {
	return m.c.listDevices(ctx, roleManufacturer, "/manufacturer/inventory", m.c.pageQuery(p))
}

func (m *ManufacturerAPI) AllInventory(ctx context.Context) ([]device.Device, error) {
	return collectAll(ctx, m.c, m.Inventory)
}

func (m *ManufacturerAPI) BulkUpload(ctx context.Context, devices []DeviceInput) (*BulkUploadResult, error) {
	if len(devices) == 0 {
		return nil, appErrors.Validation("Upload file contains no devices")
	}
	env, err := m.c.do(ctx, call{
		role:   roleManufacturer,
		method: http.MethodPost,
		path:   "/manufacturer/inventory/bulk-upload",
		body:   map[string]interface{}{"devices": devices},
	})
	if err != nil {
		return nil, err
	}
	var out BulkUploadResult
	if ok, err := env.decode("result", &out); err != nil {
		return nil, err
	} else if !ok {
		if _, err := env.decode("inserted", &out.Inserted); err != nil {
			return nil, err
		}
		if _, err := env.decode("failed", &out.Failed); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (m *ManufacturerAPI) ListDistributors(ctx context.Context) ([]organization.Distributor, error) {
	return listEntities[organization.Distributor](ctx, m.c, roleManufacturer, "/manufacturer/distributors", "distributors")
}

func (m *ManufacturerAPI) CreateDistributor(ctx context.Context, in organization.NewEntity) (*organization.Distributor, error) {
	var out organization.Distributor
	if err := m.c.create(ctx, roleManufacturer, "/manufacturer/distributors", in, "distributor", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *ManufacturerAPI) AssignToDistributor(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	return m.c.assign(ctx, roleManufacturer, "/manufacturer/distributors/assign", req)
}

func (m *ManufacturerAPI) GenerateCertificate(ctx context.Context, imei string) (*Certificate, error) {
	imei = strings.TrimSpace(imei)
	if imei == "" {
		return nil, appErrors.Validation("IMEI is required")
	}
	env, err := m.c.do(ctx, call{
		role:   roleManufacturer,
		method: http.MethodPost,
		path:   "/manufacturer/generate-certificate/" + url.PathEscape(imei),
		expect: []string{"certificate"},
	})
	if err != nil {
		return nil, err
	}
	out := Certificate{IMEI: imei}
	if ok, err := env.decode("certificate", &out); err != nil {
		return nil, err
	} else if !ok {
		out.CertificateNumber = firstString(env.fields, "certificate_number", "certificateNumber")
	}
	if out.CertificateNumber == "" {
		return nil, &appErrors.AppError{Code: "UNEXPECTED_RESPONSE", Message: "Server did not return a certificate number", Kind: appErrors.KindTransport, Status: env.status}
	}
	return &out, nil
}

// UploadDocument sends one onboarding document as multipart form data.
func (m *ManufacturerAPI) UploadDocument(ctx context.Context, docType organization.DocumentType, filename string, content []byte) (*UploadedDocument, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("documentType", string(docType)); err != nil {
		return nil, fmt.Errorf("writing document type: %w", err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	env, err := m.c.do(ctx, call{
		role:        roleManufacturer,
		method:      http.MethodPost,
		path:        "/manufacturer/documents/upload",
		raw:         &buf,
		contentType: w.FormDataContentType(),
		expect:      []string{"key"},
	})
	if err != nil {
		return nil, err
	}

	out := UploadedDocument{
		DocumentType: docType,
		Key:          firstString(env.fields, "key", "fileKey"),
		URL:          stringField(env.fields, "url"),
	}
	if out.Key == "" {
		return nil, &appErrors.AppError{Code: "UNEXPECTED_RESPONSE", Message: "Server did not return a document key", Kind: appErrors.KindTransport, Status: env.status}
	}
	return &out, nil
}

// SubmitDocuments records the uploaded keys against the manufacturer profile.
func (m *ManufacturerAPI) SubmitDocuments(ctx context.Context, keys map[organization.DocumentType]string) error {
	_, err := m.c.do(ctx, call{
		role:   roleManufacturer,
		method: http.MethodPut,
		path:   "/manufacturer/documents",
		body:   map[string]interface{}{"documents": keys},
	})
	return err
}
