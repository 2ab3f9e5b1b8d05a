package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/audit"
	"github.com/nexfreight/broker/internal/ratelimit"
	"github.com/nexfreight/broker/internal/resilience"
	"github.com/nexfreight/broker/internal/store"
)

func testAPI(t *testing.T) (*API, http.Handler, User) {
	t.Helper()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	admin := User{ID: "u-admin", Email: "admin@nexfreight.test", PasswordHash: hash, Role: RoleAdmin}
	users := NewMemoryUserStore(admin)

	sessions := NewSessionManager([]byte("test-secret"), "nexfreight-test", time.Minute, time.Hour)
	st := store.NewMemoryStore()
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 100, Burst: 100, MaxKeys: 100, CleanupInterval: time.Minute})
	auditLog := audit.New(100, nil, nil)
	breakers := resilience.NewRegistry(resilience.DefaultConfig(), nil)

	a, router := New(Deps{
		Store: st, Sessions: sessions, Users: users, Limiter: limiter,
		Audit: auditLog, Breakers: breakers,
	})
	return a, router, admin
}

func login(t *testing.T, router http.Handler, email, password string) loginResponse {
	t.Helper()
	body, _ := json.Marshal(loginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLoginIssuesStepUpVerifiedSessionWithoutTOTP(t *testing.T) {
	a, router, admin := testAPI(t)
	resp := login(t, router, admin.Email, "correct horse")
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, RoleAdmin, resp.Role)

	claims, err := a.sessions.Validate(resp.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.StepUpVerified)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, router, admin := testAPI(t)
	body, _ := json.Marshal(loginRequest{Email: admin.Email, Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateShipmentRequiresBearerToken(t *testing.T) {
	_, router, _ := testAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/shipments", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateShipmentRejectsSalePriceBelowCost(t *testing.T) {
	_, router, admin := testAPI(t)
	session := login(t, router, admin.Email, "correct horse")

	body, _ := json.Marshal(createShipmentRequest{CarrierID: "c-1", Origin: "MXP", Destination: "FCO", Cost: 100, SalePrice: 50})
	req := httptest.NewRequest(http.MethodPost, "/shipments", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateShipmentSucceedsAndIsReadableByID(t *testing.T) {
	_, router, admin := testAPI(t)
	session := login(t, router, admin.Email, "correct horse")

	body, _ := json.Marshal(createShipmentRequest{CarrierID: "c-1", Origin: "MXP", Destination: "FCO", Cost: 50, SalePrice: 100})
	req := httptest.NewRequest(http.MethodPost, "/shipments", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created shipmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	getReq := httptest.NewRequest(http.MethodGet, "/shipments/"+created.ID, nil)
	getReq.Header.Set("Authorization", "Bearer "+session.AccessToken)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestViewerCannotChangeCarrier(t *testing.T) {
	hash, _ := HashPassword("viewer-pass")
	viewer := User{ID: "u-viewer", Email: "viewer@nexfreight.test", PasswordHash: hash, Role: RoleViewer}

	sessions := NewSessionManager([]byte("test-secret"), "nexfreight-test", time.Minute, time.Hour)
	users := NewMemoryUserStore(viewer)
	st := store.NewMemoryStore()
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 100, Burst: 100, MaxKeys: 100, CleanupInterval: time.Minute})
	auditLog := audit.New(100, nil, nil)
	breakers := resilience.NewRegistry(resilience.DefaultConfig(), nil)
	_, viewerRouter := New(Deps{Store: st, Sessions: sessions, Users: users, Limiter: limiter, Audit: auditLog, Breakers: breakers})

	session := login(t, viewerRouter, viewer.Email, "viewer-pass")

	body, _ := json.Marshal(changeCarrierRequest{ShipmentID: "ship-1", NewCarrierID: "c-2"})
	req := httptest.NewRequest(http.MethodPost, "/command/change_carrier", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec := httptest.NewRecorder()
	viewerRouter.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEmergencyStopRequiresStepUpWhenTOTPEnrolled(t *testing.T) {
	hash, _ := HashPassword("admin-pass")
	admin := User{ID: "u-2fa", Email: "twofa@nexfreight.test", PasswordHash: hash, Role: RoleAdmin, TOTPSecret: "JBSWY3DPEHPK3PXP"}
	users := NewMemoryUserStore(admin)
	sessions := NewSessionManager([]byte("test-secret"), "nexfreight-test", time.Minute, time.Hour)
	st := store.NewMemoryStore()
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 100, Burst: 100, MaxKeys: 100, CleanupInterval: time.Minute})
	auditLog := audit.New(100, nil, nil)
	breakers := resilience.NewRegistry(resilience.DefaultConfig(), nil)
	_, router := New(Deps{Store: st, Sessions: sessions, Users: users, Limiter: limiter, Audit: auditLog, Breakers: breakers})

	// Login without a TOTP code succeeds (password-only) but is not step-up verified.
	body, _ := json.Marshal(loginRequest{Email: admin.Email, Password: "admin-pass"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	stopReq := httptest.NewRequest(http.MethodPost, "/command/emergency_stop", nil)
	stopReq.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	stopRec := httptest.NewRecorder()
	router.ServeHTTP(stopRec, stopReq)
	require.Equal(t, http.StatusForbidden, stopRec.Code)
}

func TestResetBreakerReturnsNotFoundForUnknownDependency(t *testing.T) {
	_, router, admin := testAPI(t)
	session := login(t, router, admin.Email, "correct horse")

	req := httptest.NewRequest(http.MethodPost, "/admin/breakers/does-not-exist/reset", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
