package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vltd-dashboard/internal/domain/device"
	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/domain/user"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(Options{BaseURL: srv.URL, PageSize: 2, MaxPages: 5}, tokenstore.New()), &calls
}

func loggedIn(t *testing.T, c *Client, role tokenstore.Role) {
	t.Helper()
	require.NoError(t, c.Tokens().Set(role, "tok-"+string(role)))
}

func TestLogin_StoresPrefixedToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rfc/signin", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "rfc@example.com", creds.Email)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"token":  "jwt-123",
			"user":   map[string]string{"id": "r1", "name": "RFC One", "role": "rfc"},
		})
	})

	res, err := c.RFC().Login(context.Background(), Credentials{Email: " rfc@example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "r1", res.User.ID)

	token, ok := c.Tokens().Get(tokenstore.RoleRFC)
	require.True(t, ok)
	assert.Equal(t, "Bearer jwt-123", token)

	_, ok = c.Tokens().Get(tokenstore.RoleAdmin)
	assert.False(t, ok, "no cross-role leakage")
}

func TestLogin_FailureCarriesServerMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Invalid password"})
	})

	_, err := c.Admin().Login(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Invalid password", appErrors.Message(err))
	assert.Equal(t, appErrors.KindApplication, appErrors.KindOf(err))
	assert.Empty(t, c.Tokens().Active())
}

func TestLogin_SuccessWithoutTokenFails(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})

	_, err := c.Distributor().Login(context.Background(), Credentials{Email: "d@b.c", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Login failed", appErrors.Message(err))
}

func TestLogin_ManufacturerOnboardingRedirect(t *testing.T) {
	status := "ACKNOWLEDGED"
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manufacturer/auth/signin", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"token":  "m-token",
			"user":   map[string]string{"id": "m1", "role": "manufacturer", "status": status},
		})
	})

	res, err := c.Manufacturer().Login(context.Background(), Credentials{Email: "m@b.c", Password: "x"})
	require.NoError(t, err)
	assert.True(t, res.RequiresOnboarding)

	status = "APPROVED"
	res, err = c.Manufacturer().Login(context.Background(), Credentials{Email: "m@b.c", Password: "x"})
	require.NoError(t, err)
	assert.False(t, res.RequiresOnboarding)
}

func TestLogin_LocalValidation(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.RFC().Login(context.Background(), Credentials{Email: "  ", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestLogout_RemovesOnlyThatRole(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	loggedIn(t, c, tokenstore.RoleRFC)
	loggedIn(t, c, tokenstore.RoleAdmin)

	c.RFC().Logout()

	assert.Equal(t, []tokenstore.Role{tokenstore.RoleAdmin}, c.Tokens().Active())
}

func TestAuthenticatedCall_WithoutTokenMakesNoRequest(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.RFC().Devices(context.Background(), PageRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.KindUnauthenticated, appErrors.KindOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestResponse_NonJSONIsTransportFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "<html>Cannot GET</html>")
	})
	loggedIn(t, c, tokenstore.RoleAdmin)

	_, err := c.Admin().Devices(context.Background(), PageRequest{})
	require.Error(t, err)

	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.KindTransport, appErr.Kind)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Contains(t, appErr.Message, "HTTP 404")
	assert.Contains(t, appErr.Message, "/admin/devices")
}

func TestResponse_MissingSuccessMarker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"unexpected": "shape"})
	})
	loggedIn(t, c, tokenstore.RoleDistributor)

	_, err := c.Distributor().ListRFCs(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.KindTransport, appErrors.KindOf(err))
}

func TestResponse_ApplicationFailureCarriesMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "RFC quota exceeded"})
	})
	loggedIn(t, c, tokenstore.RoleDistributor)

	_, err := c.Distributor().AssignToRFC(context.Background(), AssignRequest{EntityID: "r1", IMEIs: []string{"1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.KindApplication, appErrors.KindOf(err))
	assert.Equal(t, "RFC quota exceeded", appErrors.Message(err))
}

func TestResponse_ExpiredTokenIsUnauthenticated(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-rfc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
	})
	loggedIn(t, c, tokenstore.RoleRFC)

	_, err := c.RFC().Devices(context.Background(), PageRequest{})
	assert.Equal(t, appErrors.KindUnauthenticated, appErrors.KindOf(err))
	assert.Equal(t, "jwt expired", appErrors.Message(err))
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url}, tokenstore.New())
	loggedIn(t, c, tokenstore.RoleAdmin)

	_, err := c.Admin().Manufacturers(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.KindNetwork, appErrors.KindOf(err))
	assert.Equal(t, "Cannot reach server", appErrors.Message(err))
}

func TestListDevices_ArrayPayloadAndPaging(t *testing.T) {
	pages := map[string][]device.Device{
		"1": {{IMEI: "1"}, {IMEI: "2"}},
		"2": {{IMEI: "3"}},
	}
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, pages[r.URL.Query().Get("page")])
	})
	loggedIn(t, c, tokenstore.RoleRFC)

	all, err := c.RFC().AllDevices(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestListAll_StopsAtMaxPages(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "devices": []device.Device{{IMEI: "a"}, {IMEI: "b"}}})
	})
	loggedIn(t, c, tokenstore.RoleManufacturer)

	all, err := c.Manufacturer().AllInventory(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 10)
	assert.Equal(t, int32(5), atomic.LoadInt32(calls))
}

func TestSearchDevice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("imei") {
		case "863789450001001":
			writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "device": map[string]string{"imei": "863789450001001", "rfc_entity_id": "r1"}})
		case "404":
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "No device"})
		case "partial":
			writeJSON(w, http.StatusOK, map[string]interface{}{"devices": []map[string]string{{"imei": "partial-2"}}})
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "device": nil})
		}
	})
	loggedIn(t, c, tokenstore.RoleRFC)
	ctx := context.Background()

	d, err := c.RFC().SearchDevice(ctx, " 863789450001001 ")
	require.NoError(t, err)
	assert.Equal(t, device.StatusAssignedToRFC, device.AssignmentStatus(d))

	for _, imei := range []string{"404", "partial", "000"} {
		_, err = c.RFC().SearchDevice(ctx, imei)
		assert.True(t, IsNotFound(err), imei)
		assert.ErrorIs(t, err, device.ErrDeviceNotFound, imei)
	}

	_, err = c.RFC().SearchDevice(ctx, "   ")
	assert.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
}

func TestFindUserByPhone(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/users/search", r.URL.Path)
		if r.URL.Query().Get("phone") == "9876543210" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"user": map[string]string{"id": "u1", "first_name": "Asha", "phone": "9876543210"}})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
	})
	loggedIn(t, c, tokenstore.RoleAdmin)

	u, err := c.Admin().FindUserByPhone(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = c.Admin().FindUserByPhone(context.Background(), "9000000000")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestCreateUser_ValidatesBeforeRequest(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body user.NewUser
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "asha", body.Username)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"status": "success", "user": map[string]string{"id": "u9", "first_name": body.FirstName}})
	})
	loggedIn(t, c, tokenstore.RoleRFC)

	_, err := c.RFC().CreateUser(context.Background(), user.NewUser{Email: "asha@example.com", Phone: "9876543210"})
	require.Error(t, err)
	assert.Equal(t, "First name is required", appErrors.Message(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))

	u, err := c.RFC().CreateUser(context.Background(), user.NewUser{FirstName: "Asha", Email: "asha@example.com", Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "u9", u.ID)
}

func TestAssignVehicle(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rfc/vehicles/u1", r.URL.Path)
		var v device.Vehicle
		require.NoError(t, json.NewDecoder(r.Body).Decode(&v))
		assert.Equal(t, "863789450001001", v.DeviceIMEI)
		v.ID = "veh-1"
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "vehicle": v})
	})
	loggedIn(t, c, tokenstore.RoleRFC)

	v, err := c.RFC().AssignVehicle(context.Background(), "u1", device.Vehicle{DeviceIMEI: "863789450001001", VehicleNumber: "WB24BG4434"})
	require.NoError(t, err)
	assert.Equal(t, "veh-1", v.ID)
	assert.Equal(t, "WB24BG4434", v.VehicleNumber)
}

func TestUploadDocument_Multipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "pan_card", r.FormValue("documentType"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "pan.pdf", hdr.Filename)
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "key": "docs/m1/pan.pdf"})
	})
	loggedIn(t, c, tokenstore.RoleManufacturer)

	doc, err := c.Manufacturer().UploadDocument(context.Background(), organization.DocPAN, "pan.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "docs/m1/pan.pdf", doc.Key)
}

func TestGenerateCertificate(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manufacturer/generate-certificate/863789450001001", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"status": "success", "certificate_number": "CERT-001"})
	})
	loggedIn(t, c, tokenstore.RoleManufacturer)

	cert, err := c.Manufacturer().GenerateCertificate(context.Background(), "863789450001001")
	require.NoError(t, err)
	assert.Equal(t, "CERT-001", cert.CertificateNumber)
}

func TestWithTokens_IsolatesSessions(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	loggedIn(t, c, tokenstore.RoleRFC)

	other := c.WithTokens(tokenstore.New())
	_, ok := other.Tokens().Get(tokenstore.RoleRFC)
	assert.False(t, ok)
}
