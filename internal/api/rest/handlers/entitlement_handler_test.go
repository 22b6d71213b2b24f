package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/api/rest/middleware"
	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEntitlementService records the last call and returns canned
// results per verb.
type fakeEntitlementService struct {
	lastAction string
	lastDays   int

	snap domain.EntitlementStatus
	err  error
}

func (f *fakeEntitlementService) Status(_ context.Context, _ uuid.UUID) (domain.EntitlementStatus, error) {
	f.lastAction = "status"
	return f.snap, f.err
}

func (f *fakeEntitlementService) Grant(_ context.Context, _ uuid.UUID, days int) (domain.EntitlementStatus, error) {
	f.lastAction = "grant"
	f.lastDays = days
	return f.snap, f.err
}

func (f *fakeEntitlementService) Extend(_ context.Context, _ uuid.UUID, days int) (domain.EntitlementStatus, error) {
	f.lastAction = "extend"
	f.lastDays = days
	return f.snap, f.err
}

func (f *fakeEntitlementService) Revoke(_ context.Context, _ uuid.UUID) (domain.EntitlementStatus, error) {
	f.lastAction = "revoke"
	return f.snap, f.err
}

func quietLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

func adminRouter(svc *fakeEntitlementService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewEntitlementHandler(svc, quietLogger())
	r := gin.New()
	r.PATCH("/admin/accounts/:id", h.AdminPatch)
	r.GET("/entitlement/status", h.Status)
	return r
}

func patchAccount(t *testing.T, r *gin.Engine, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/admin/accounts/"+id, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAdminPatchDispatchesVerb(t *testing.T) {
	expires := time.Now().Add(30 * 24 * time.Hour).UTC()
	svc := &fakeEntitlementService{
		snap: domain.EntitlementStatus{Entitled: true, Tag: "member", ExpiresAt: &expires},
	}
	r := adminRouter(svc)

	w := patchAccount(t, r, uuid.NewString(), gin.H{"action": "grant", "days": 30})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "grant", svc.lastAction)
	assert.Equal(t, 30, svc.lastDays)

	var snap domain.EntitlementStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap.Entitled)
	assert.Equal(t, "member", snap.Tag)
}

func TestAdminPatchRevokeIgnoresDays(t *testing.T) {
	svc := &fakeEntitlementService{}
	r := adminRouter(svc)

	w := patchAccount(t, r, uuid.NewString(), gin.H{"action": "revoke"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "revoke", svc.lastAction)
}

func TestAdminPatchErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown account", domain.ErrNotFound, http.StatusNotFound},
		{"extend without base", domain.ErrNoActiveEntitlement, http.StatusBadRequest},
		{"grant while entitled", domain.ErrAlreadyEntitled, http.StatusBadRequest},
		{"invalid days", domain.ErrInvalidInput, http.StatusBadRequest},
		{"storage failure", domain.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEntitlementService{err: tt.err}
			r := adminRouter(svc)

			w := patchAccount(t, r, uuid.NewString(), gin.H{"action": "extend", "days": 10})
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAdminPatchRejectsBadInput(t *testing.T) {
	svc := &fakeEntitlementService{}
	r := adminRouter(svc)

	w := patchAccount(t, r, "not-a-uuid", gin.H{"action": "grant", "days": 30})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastAction)

	w = patchAccount(t, r, uuid.NewString(), gin.H{"action": "promote"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastAction)

	w = patchAccount(t, r, uuid.NewString(), gin.H{"action": "grant", "days": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastAction)
}

func TestStatusAnonymousReturnsEmptySnapshot(t *testing.T) {
	svc := &fakeEntitlementService{}
	r := adminRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/entitlement/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.lastAction)

	var snap domain.EntitlementStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.False(t, snap.Entitled)
}

func TestStatusUsesCallerIdentity(t *testing.T) {
	svc := &fakeEntitlementService{snap: domain.EntitlementStatus{Entitled: true, Tag: "member"}}

	gin.SetMode(gin.TestMode)
	h := NewEntitlementHandler(svc, quietLogger())
	r := gin.New()
	accountID := uuid.New()
	r.GET("/entitlement/status", func(c *gin.Context) {
		c.Set(string(middleware.ContextAccountIDKey), accountID)
	}, h.Status)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/entitlement/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "status", svc.lastAction)
}
