package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/config"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/ratelimit"
	servicerequestdomain "github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testActorID   = "1001"
	testActorRole = "department_manager"
)

type fakeRequests struct {
	servicerequestdomain.Service

	created     servicerequestdomain.CreateRequest
	listed      servicerequestdomain.ListRequest
	statusReq   servicerequestdomain.ChangeStatusRequest
	err         error
	createCalls int
}

func (f *fakeRequests) Create(ctx context.Context, req servicerequestdomain.CreateRequest) (servicerequestdomain.Request, error) {
	f.createCalls++
	f.created = req
	if f.err != nil {
		return servicerequestdomain.Request{}, f.err
	}
	return servicerequestdomain.Request{
		ID:            snowflake.ID(42),
		RequestNumber: "SR-20250301-0001",
		Status:        servicerequestdomain.StatusNew,
		CustomerID:    req.CustomerID,
		DepartmentID:  req.DepartmentID,
	}, nil
}

func (f *fakeRequests) Get(ctx context.Context, actor actorcontext.Actor, id snowflake.ID) (servicerequestdomain.Request, error) {
	if f.err != nil {
		return servicerequestdomain.Request{}, f.err
	}
	return servicerequestdomain.Request{ID: id}, nil
}

func (f *fakeRequests) List(ctx context.Context, actor actorcontext.Actor, req servicerequestdomain.ListRequest) (servicerequestdomain.ListResponse, error) {
	f.listed = req
	return servicerequestdomain.ListResponse{}, f.err
}

func (f *fakeRequests) ChangeStatus(ctx context.Context, req servicerequestdomain.ChangeStatusRequest) (servicerequestdomain.Request, error) {
	f.statusReq = req
	if f.err != nil {
		return servicerequestdomain.Request{}, f.err
	}
	return servicerequestdomain.Request{ID: req.ID, Status: servicerequestdomain.Status(req.Status)}, nil
}

type fakeSpareParts struct {
	sparepartdomain.Service

	updated  sparepartdomain.UpdateRequest
	released sparepartdomain.ReleaseRequest
	err      error
}

func (f *fakeSpareParts) Update(ctx context.Context, req sparepartdomain.UpdateRequest) (sparepartdomain.SparePart, error) {
	f.updated = req
	if f.err != nil {
		return sparepartdomain.SparePart{}, f.err
	}
	return sparepartdomain.SparePart{ID: req.ID}, nil
}

func (f *fakeSpareParts) AdjustQuantity(ctx context.Context, req sparepartdomain.AdjustQuantityRequest) (sparepartdomain.SparePart, error) {
	return sparepartdomain.SparePart{}, f.err
}

func (f *fakeSpareParts) Release(ctx context.Context, req sparepartdomain.ReleaseRequest) error {
	f.released = req
	return f.err
}

type fakeCustomers struct {
	customerdomain.Service

	created customerdomain.CreateCustomerRequest
	err     error
}

func (f *fakeCustomers) Create(ctx context.Context, req customerdomain.CreateCustomerRequest) (customerdomain.Customer, error) {
	f.created = req
	if f.err != nil {
		return customerdomain.Customer{}, f.err
	}
	return customerdomain.Customer{ID: snowflake.ID(7), Name: req.Name, Phone: req.Phone}, nil
}

type testServerDeps struct {
	requests  *fakeRequests
	parts     *fakeSpareParts
	customers *fakeCustomers
	limiter   *ratelimit.WriteLimiter
}

func newTestServer(t *testing.T, deps testServerDeps) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if deps.requests == nil {
		deps.requests = &fakeRequests{}
	}
	if deps.parts == nil {
		deps.parts = &fakeSpareParts{}
	}
	if deps.customers == nil {
		deps.customers = &fakeCustomers{}
	}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	return NewServer(ServerParams{
		Gin:          engine,
		Cfg:          config.Config{},
		Log:          zaptest.NewLogger(t),
		RequestSvc:   deps.requests,
		SparePartSvc: deps.parts,
		CustomerSvc:  deps.customers,
		Limiter:      deps.limiter,
	})
}

func doRequest(t *testing.T, srv *Server, method, path string, body any, withActor bool) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if withActor {
		req.Header.Set(HeaderActorID, testActorID)
		req.Header.Set(HeaderActorRole, testActorRole)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestActorRequired(t *testing.T) {
	srv := newTestServer(t, testServerDeps{})

	rec := doRequest(t, srv, http.MethodGet, "/api/requests", nil, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set(HeaderActorID, testActorID)
	req.Header.Set(HeaderActorRole, "system")
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set(HeaderActorID, "not-a-number")
	req.Header.Set(HeaderActorRole, testActorRole)
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRequestPassesActorAndBody(t *testing.T) {
	requests := &fakeRequests{}
	srv := newTestServer(t, testServerDeps{requests: requests})

	rec := doRequest(t, srv, http.MethodPost, "/api/requests", map[string]any{
		"customerId":      "11",
		"departmentId":    "22",
		"priority":        "high",
		"warrantyStatus":  "in_warranty",
		"executionMethod": "in_house",
		"description":     "screen flickers",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, snowflake.ID(1001), requests.created.Actor.ID)
	assert.Equal(t, authorization.RoleDepartmentManager, requests.created.Actor.Role)
	assert.Equal(t, snowflake.ID(11), requests.created.CustomerID)
	assert.Equal(t, snowflake.ID(22), requests.created.DepartmentID)
	assert.Equal(t, "screen flickers", requests.created.Description)

	var resp struct {
		Data struct {
			ID            string `json:"id"`
			RequestNumber string `json:"request_number"`
			Status        string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Data.ID)
	assert.Equal(t, "SR-20250301-0001", resp.Data.RequestNumber)
	assert.Equal(t, "NEW", resp.Data.Status)
}

func TestCreateRequestRejectsBadIDs(t *testing.T) {
	requests := &fakeRequests{}
	srv := newTestServer(t, testServerDeps{requests: requests})

	rec := doRequest(t, srv, http.MethodPost, "/api/requests", map[string]any{
		"customerId":   "abc",
		"departmentId": "22",
	}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "customer", payload.Errors[0].Field)
	assert.Equal(t, "invalid_customer", payload.Errors[0].Code)
	assert.Zero(t, requests.createCalls)

	rec = doRequest(t, srv, http.MethodPost, "/api/requests", "not an object", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, requests.createCalls)
}

func TestDomainErrorsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{name: "validation", err: servicerequestdomain.ErrInvalidStatus, status: http.StatusBadRequest, typ: "validation_error"},
		{name: "forbidden", err: authorization.ErrForbidden, status: http.StatusForbidden, typ: "forbidden"},
		{name: "not found", err: servicerequestdomain.ErrNotFound, status: http.StatusNotFound, typ: "not_found"},
		{name: "unauthenticated", err: actorcontext.ErrUnauthenticated, status: http.StatusUnauthorized, typ: "unauthorized"},
		{name: "unexpected", err: assert.AnError, status: http.StatusInternalServerError, typ: "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requests := &fakeRequests{err: tc.err}
			srv := newTestServer(t, testServerDeps{requests: requests})

			rec := doRequest(t, srv, http.MethodPatch, "/api/requests/42/status", map[string]any{
				"status":  "IN_PROGRESS",
				"comment": "starting",
			}, true)
			require.Equal(t, tc.status, rec.Code)
			payload := decodeError(t, rec)
			assert.Equal(t, tc.typ, payload.Type)
			assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
			assert.Equal(t, snowflake.ID(42), requests.statusReq.ID)
			assert.Equal(t, "starting", requests.statusReq.Comment)
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	srv := newTestServer(t, testServerDeps{})

	rec := doRequest(t, srv, http.MethodGet, "/api/requests/xyz", nil, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "id", payload.Errors[0].Field)
}

func TestListRequestsParsesFilters(t *testing.T) {
	requests := &fakeRequests{}
	srv := newTestServer(t, testServerDeps{requests: requests})

	rec := doRequest(t, srv, http.MethodGet, "/api/requests?status=NEW&department_id=5&overdue=true&page_size=10", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "NEW", requests.listed.Status)
	require.NotNil(t, requests.listed.DepartmentID)
	assert.Equal(t, snowflake.ID(5), *requests.listed.DepartmentID)
	require.NotNil(t, requests.listed.Overdue)
	assert.True(t, *requests.listed.Overdue)
	assert.Equal(t, 10, requests.listed.PageSize)
	assert.Nil(t, requests.listed.CustomerID)

	rec = doRequest(t, srv, http.MethodGet, "/api/requests?overdue=maybe", nil, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "overdue", decodeError(t, rec).Errors[0].Field)
}

func TestUpdateSparePartVersionConflict(t *testing.T) {
	parts := &fakeSpareParts{err: sparepartdomain.ErrVersionConflict}
	srv := newTestServer(t, testServerDeps{parts: parts})

	rec := doRequest(t, srv, http.MethodPut, "/api/storage/9", map[string]any{
		"name":            "Capacitor",
		"version":         3,
		"clearDepartment": true,
	}, true)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Type)

	require.NotNil(t, parts.updated.ExpectedVersion)
	assert.Equal(t, int64(3), *parts.updated.ExpectedVersion)
	require.NotNil(t, parts.updated.Name)
	assert.Equal(t, "Capacitor", *parts.updated.Name)
	assert.True(t, parts.updated.ClearDepartment)
	assert.Nil(t, parts.updated.PresentPieces)
}

func TestAdjustQuantityNegativeStock(t *testing.T) {
	parts := &fakeSpareParts{err: sparepartdomain.ErrNegativeStock}
	srv := newTestServer(t, testServerDeps{parts: parts})

	rec := doRequest(t, srv, http.MethodPost, "/api/storage/9/adjust-quantity", map[string]any{
		"adjustment": -50,
		"reason":     "stocktake",
	}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "negative_stock", payload.Errors[0].Code)
	assert.Equal(t, "quantity", payload.Errors[0].Field)
}

func TestDeleteRequestPart(t *testing.T) {
	parts := &fakeSpareParts{}
	srv := newTestServer(t, testServerDeps{parts: parts})

	rec := doRequest(t, srv, http.MethodDelete, "/api/request-parts/77", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, snowflake.ID(77), parts.released.RequestPartID)

	parts.err = sparepartdomain.ErrRequestPartNotFound
	rec = doRequest(t, srv, http.MethodDelete, "/api/request-parts/77", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCustomer(t *testing.T) {
	customers := &fakeCustomers{}
	srv := newTestServer(t, testServerDeps{customers: customers})

	rec := doRequest(t, srv, http.MethodPost, "/api/customers", map[string]any{
		"name":  "  Dana  ",
		"phone": "+62 811 000",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Dana", customers.created.Name)

	customers.err = customerdomain.ErrInvalidPhone
	rec = doRequest(t, srv, http.MethodPost, "/api/customers", map[string]any{"name": "Dana"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "phone", decodeError(t, rec).Errors[0].Field)
}

func TestWriteRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, WriteRate: 0.01, WriteBurst: 1}}
	limiter := ratelimit.NewWriteLimiter(cfg, client, zaptest.NewLogger(t))
	require.NotNil(t, limiter)

	requests := &fakeRequests{}
	srv := newTestServer(t, testServerDeps{requests: requests, limiter: limiter})
	body := map[string]any{"status": "IN_PROGRESS"}

	rec := doRequest(t, srv, http.MethodPatch, "/api/requests/42/status", body, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = doRequest(t, srv, http.MethodPatch, "/api/requests/42/status", body, true)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads are never throttled.
	rec = doRequest(t, srv, http.MethodGet, "/api/requests/42", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	srv := newTestServer(t, testServerDeps{})

	rec := doRequest(t, srv, http.MethodGet, "/nope", nil, false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}
