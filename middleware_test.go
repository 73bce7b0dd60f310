package permkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMiddlewareNewMiddleware tests the middleware constructor
func TestMiddlewareNewMiddleware(t *testing.T) {
	service := &Service{registry: DefaultRegistry(), level: LevelRole}

	// Test with default options
	mw := NewMiddleware(service)
	require.NotNil(t, mw)
	assert.Equal(t, service, mw.service)
	assert.NotNil(t, mw.getUserID)
	assert.NotNil(t, mw.errorHandler)

	// Test with custom options
	customUserID := func(r *http.Request) string { return "custom-user" }
	customErrorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
	}

	mw2 := NewMiddleware(service,
		WithUserIDExtractor(customUserID),
		WithErrorHandler(customErrorHandler),
	)
	req := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "custom-user", mw2.getUserID(req))

	w := httptest.NewRecorder()
	mw2.errorHandler(w, req, nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

// TestMiddlewareDefaultGetUserID tests the default user ID extractor
func TestMiddlewareDefaultGetUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "test-user")
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(ctx)

	assert.Equal(t, "test-user", defaultGetUserID(req))

	req = httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, defaultGetUserID(req))
}

// TestMiddlewareDefaultErrorHandler tests status mapping in the default handler
func TestMiddlewareDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Forbidden error",
			err:            NewError(ErrForbidden, "access denied"),
			expectedStatus: http.StatusForbidden,
			expectedBody:   "Forbidden\n",
		},
		{
			name:           "Unknown capability error",
			err:            NewError(ErrUnknownCapability, "not defined"),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad Request\n",
		},
		{
			name:           "Scope mismatch error",
			err:            NewError(ErrScopeMismatch, "wrong kind"),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Bad Request\n",
		},
		{
			name:           "Generic error",
			err:            NewError(ErrDatabaseError, "database error"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Server Error\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)

			defaultErrorHandler(w, req, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}

// TestMiddlewareTargetExtractors tests the target extractor helpers
func TestMiddlewareTargetExtractors(t *testing.T) {
	t.Run("GlobalTarget", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		scope, err := GlobalTarget()(req)
		assert.NoError(t, err)
		assert.Equal(t, GlobalScope(), scope)
	})

	t.Run("ModuleTarget", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		scope, err := ModuleTarget("posts")(req)
		assert.NoError(t, err)
		assert.Equal(t, ModuleScope("posts"), scope)
	})

	t.Run("ItemTargetFromQuery", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/?id=post_1", nil)
		scope, err := ItemTargetFromQuery("posts", "id")(req)
		assert.NoError(t, err)
		assert.Equal(t, ItemScope("posts", "post_1"), scope)

		// Missing parameter
		req = httptest.NewRequest("GET", "/", nil)
		_, err = ItemTargetFromQuery("posts", "id")(req)
		assert.Error(t, err)
		assert.True(t, IsScopeMismatch(err))
	})

	t.Run("ItemTargetFromParam via context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		//nolint:staticcheck // Using string key like router middlewares do
		req = req.WithContext(context.WithValue(req.Context(), "id", "post_1"))

		scope, err := ItemTargetFromParam("posts", "id")(req)
		assert.NoError(t, err)
		assert.Equal(t, ItemScope("posts", "post_1"), scope)

		// Missing everywhere
		req = httptest.NewRequest("GET", "/", nil)
		_, err = ItemTargetFromParam("posts", "id")(req)
		assert.Error(t, err)
	})

	t.Run("ItemIDFromParam", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		//nolint:staticcheck // Using string key like router middlewares do
		req = req.WithContext(context.WithValue(req.Context(), "userID", "user1"))

		assert.Equal(t, "user1", ItemIDFromParam("userID")(req))

		req = httptest.NewRequest("GET", "/", nil)
		assert.Empty(t, ItemIDFromParam("userID")(req))
	})
}

// TestMiddlewareErrorPaths tests error handling before any lookup happens
func TestMiddlewareErrorPaths(t *testing.T) {
	service := &Service{registry: DefaultRegistry(), level: LevelRole}
	mw := NewMiddleware(service)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	t.Run("RequireCapability without user ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)

		w := httptest.NewRecorder()
		handler := mw.RequireCapability(CapEditSettings, GlobalTarget())(nextHandler)
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("RequireCapability with failing extractor", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithUserID(req.Context(), "user1"))

		w := httptest.NewRecorder()
		failing := func(r *http.Request) (Scope, error) {
			return Scope{}, NewError(ErrScopeMismatch, "no target")
		}
		handler := mw.RequireCapability(CapEditSettings, failing)(nextHandler)
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RequireBrowseModule without user ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)

		w := httptest.NewRecorder()
		handler := mw.RequireBrowseModule("posts")(nextHandler)
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("RequireUserAccess without target ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithUserID(req.Context(), "user1"))

		w := httptest.NewRecorder()
		handler := mw.RequireUserAccess(ItemIDFromParam("userID"))(nextHandler)
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RequireRoleAccess without user ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)

		w := httptest.NewRecorder()
		handler := mw.RequireRoleAccess(ItemIDFromParam("roleID"))(nextHandler)
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("LoadEvaluator without user ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)

		w := httptest.NewRecorder()
		handler := mw.LoadEvaluator()(nextHandler)
		handler.ServeHTTP(w, req)

		// Should continue without evaluator
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// TestMiddlewareInjectAuditContext tests the audit context injection middleware
func TestMiddlewareInjectAuditContext(t *testing.T) {
	service := &Service{registry: DefaultRegistry(), level: LevelRole}
	mw := NewMiddleware(service)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auditCtx := GetAuditContext(r.Context())
		assert.Equal(t, "user1", auditCtx.ActorID)
		assert.Equal(t, "192.168.1.1", auditCtx.IPAddress)
		assert.Equal(t, "test-agent", auditCtx.UserAgent)
		assert.Equal(t, "req-123", auditCtx.RequestID)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithUserID(req.Context(), "user1"))
	req.Header.Set("X-Forwarded-For", "192.168.1.1")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Request-ID", "req-123")

	w := httptest.NewRecorder()
	handler := mw.InjectAuditContext()(nextHandler)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// TestMiddlewareInjectAuditContextFallbacks tests IP source precedence
func TestMiddlewareInjectAuditContextFallbacks(t *testing.T) {
	service := &Service{registry: DefaultRegistry(), level: LevelRole}
	mw := NewMiddleware(service)

	var seen string
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetIPAddress(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.InjectAuditContext()(nextHandler)

	// X-Real-IP when X-Forwarded-For is absent
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.1", seen)

	// RemoteAddr as last resort
	req = httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, req.RemoteAddr, seen)
}
