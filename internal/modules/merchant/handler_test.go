package merchant

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchantpay/internal/domain"
	"merchantpay/internal/pkg/jwt"
	"merchantpay/internal/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	tokens *jwt.Service
}

func newAPI(t *testing.T) (*apiClient, *Service) {
	t.Helper()
	s := newService(t)
	tokens, err := jwt.New("merchant-test-secret-merchant-test-secret", time.Hour)
	require.NoError(t, err)
	engine, err := router.New(router.Options{Verifier: tokens}, NewHandler(s))
	require.NoError(t, err)
	return &apiClient{
		t:      t,
		engine: engine,
		tokens: tokens,
	}, s
}

func (a *apiClient) do(method, path string, as *domain.Identity, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, _, err := a.tokens.GenerateToken(*as)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func TestRoutes_Policies(t *testing.T) {
	api, s := newAPI(t)
	tr := seedTree(t, s, "acme")

	cashier := domain.Identity{
		UserID:     20,
		Role:       domain.RoleCashier,
		TenantID:   domain.Int64Ptr(tr.tenant.ID),
		MerchantID: domain.Int64Ptr(tr.merchant.ID),
		BranchID:   domain.Int64Ptr(tr.branch.ID),
		PosID:      domain.Int64Ptr(tr.pos.ID),
	}
	ta := tenantAdmin(tr)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/merchants", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v1/merchants", &cashier, CreateMerchantRequest{Name: "x"}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/tenants", &ta, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/tenants", &superadmin, nil).Code)

	w := api.do(http.MethodGet, "/api/v1/merchants", &cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Merchants  []domain.Merchant `json:"merchants"`
			Pagination map[string]any    `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data.Merchants, 1)
	assert.Equal(t, float64(1), body.Data.Pagination["total"])
}

func TestRoutes_CreateTenantAndValidation(t *testing.T) {
	api, _ := newAPI(t)

	w := api.do(http.MethodPost, "/api/v1/tenants", &superadmin, CreateTenantRequest{Name: "acme"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodPost, "/api/v1/tenants", &superadmin, CreateTenantRequest{Name: "acme"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/v1/tenants", &superadmin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"required"`)
}

func TestRoutes_BadIDAndNotFound(t *testing.T) {
	api, _ := newAPI(t)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/merchants/abc", &superadmin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/merchants/77", &superadmin, nil).Code)
}
