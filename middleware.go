package permkit

import (
	"net/http"
)

// Middleware provides HTTP middleware for permission checking.
type Middleware struct {
	service      *Service
	getUserID    func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := permkit.NewMiddleware(service,
//	    permkit.WithUserIDExtractor(func(r *http.Request) string {
//	        return r.Context().Value("user_id").(string)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract user ID from request.
func WithUserIDExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUserID(r *http.Request) string {
	return GetUserID(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if IsForbidden(err) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if IsUnknownCapability(err) || IsScopeMismatch(err) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// TargetExtractor extracts the target scope of a request.
type TargetExtractor func(*http.Request) (Scope, error)

// GlobalTarget creates a TargetExtractor that always returns the global scope.
//
// Example:
//
//	mw.RequireCapability(permkit.CapEditSettings, permkit.GlobalTarget())
func GlobalTarget() TargetExtractor {
	return func(r *http.Request) (Scope, error) {
		return GlobalScope(), nil
	}
}

// ModuleTarget creates a TargetExtractor that always returns the same
// module scope. Useful when the route itself identifies the module.
//
// Example:
//
//	// For route /admin/posts
//	mw.RequireCapability(permkit.CapEditModule, permkit.ModuleTarget("posts"))
func ModuleTarget(module string) TargetExtractor {
	return func(r *http.Request) (Scope, error) {
		return ModuleScope(module), nil
	}
}

// ItemTargetFromParam creates a TargetExtractor that reads the item ID from
// URL parameters. Compatible with chi, gorilla/mux, and standard library
// patterns.
//
// Example:
//
//	// For route /admin/posts/{id}
//	mw.RequireCapability(permkit.CapEditItem, permkit.ItemTargetFromParam("posts", "id"))
func ItemTargetFromParam(module, paramName string) TargetExtractor {
	return func(r *http.Request) (Scope, error) {
		// Try chi/go-chi style
		itemID := r.PathValue(paramName)
		if itemID == "" {
			// Try context (set by router middleware)
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					itemID = s
				}
			}
		}
		if itemID == "" {
			return Scope{}, NewError(ErrScopeMismatch, "item ID not found in request").
				WithScope(ModuleScope(module))
		}
		return ItemScope(module, itemID), nil
	}
}

// ItemTargetFromQuery creates a TargetExtractor that reads the item ID from
// query parameters.
//
// Example:
//
//	// For route /admin/posts?id=post_123
//	mw.RequireCapability(permkit.CapEditItem, permkit.ItemTargetFromQuery("posts", "id"))
func ItemTargetFromQuery(module, queryParam string) TargetExtractor {
	return func(r *http.Request) (Scope, error) {
		itemID := r.URL.Query().Get(queryParam)
		if itemID == "" {
			return Scope{}, NewError(ErrScopeMismatch, "item ID not found in query").
				WithScope(ModuleScope(module))
		}
		return ItemScope(module, itemID), nil
	}
}

// RequireCapability creates middleware that requires a capability on the
// extracted target scope.
//
// Example:
//
//	router.With(mw.RequireCapability(permkit.CapEditModule, permkit.ModuleTarget("posts"))).
//	    Post("/admin/posts", createPostHandler)
func (m *Middleware) RequireCapability(capability string, extractor TargetExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			scope, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			evaluator, err := m.service.GetActorEvaluator(ctx, userID)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			if !evaluator.CanScope(capability, scope) {
				m.errorHandler(w, r, NewError(ErrForbidden, "missing required capability").
					WithCapability(capability).
					WithScope(scope).
					WithUser(userID))
				return
			}

			// Add evaluator to context for use in handlers
			ctx = WithEvaluator(ctx, evaluator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBrowseModule creates middleware that requires listing access to a
// module: either module-wide view access or at least one visible item.
//
// Example:
//
//	router.With(mw.RequireBrowseModule("posts")).Get("/admin/posts", listPostsHandler)
func (m *Middleware) RequireBrowseModule(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			evaluator, err := m.service.GetActorEvaluator(ctx, userID)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			if !evaluator.CanBrowseModule(module) {
				m.errorHandler(w, r, NewError(ErrForbidden, "no visible content in module").
					WithScope(ModuleScope(module)).
					WithUser(userID))
				return
			}

			ctx = WithEvaluator(ctx, evaluator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUserAccess creates middleware that guards user management routes:
// the actor must either be the target user or hold user management access
// over a target at their rank or below.
//
// Example:
//
//	router.With(mw.RequireUserAccess(permkit.ItemIDFromParam("userID"))).
//	    Put("/admin/users/{userID}", updateUserHandler)
func (m *Middleware) RequireUserAccess(extractID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actorID := m.getUserID(r)
			if actorID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			targetID := extractID(r)
			if targetID == "" {
				m.errorHandler(w, r, NewError(ErrScopeMismatch, "target user ID not found in request"))
				return
			}

			if err := m.service.AuthorizeUserAccess(ctx, actorID, targetID); err != nil {
				m.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoleAccess creates middleware that guards role management routes:
// the actor must hold role management access and the target role must sit at
// the actor's rank or below.
//
// Example:
//
//	router.With(mw.RequireRoleAccess(permkit.ItemIDFromParam("roleID"))).
//	    Put("/admin/roles/{roleID}", updateRoleHandler)
func (m *Middleware) RequireRoleAccess(extractID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actorID := m.getUserID(r)
			if actorID == "" {
				m.errorHandler(w, r, ErrNoUserID)
				return
			}

			targetID := extractID(r)
			if targetID == "" {
				m.errorHandler(w, r, NewError(ErrScopeMismatch, "target role ID not found in request"))
				return
			}

			if err := m.service.AuthorizeRoleAccess(ctx, actorID, targetID); err != nil {
				m.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ItemIDFromParam returns a function that reads an identifier from URL
// parameters, for use with RequireUserAccess and RequireRoleAccess.
func ItemIDFromParam(paramName string) func(*http.Request) string {
	return func(r *http.Request) string {
		id := r.PathValue(paramName)
		if id == "" {
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					id = s
				}
			}
		}
		return id
	}
}

// LoadEvaluator creates middleware that loads the user's Evaluator into
// context. Use this when you want to do permission checks in the handler
// rather than middleware.
//
// Example:
//
//	router.With(mw.LoadEvaluator()).Get("/admin", dashboardHandler)
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    evaluator := permkit.FromContext(r.Context())
//	    if evaluator.CanModule(permkit.CapEditModule, "posts") {
//	        // Show editing features
//	    }
//	}
func (m *Middleware) LoadEvaluator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := m.getUserID(r)
			if userID == "" {
				// No user, continue without evaluator
				next.ServeHTTP(w, r)
				return
			}

			evaluator, err := m.service.GetActorEvaluator(ctx, userID)
			if err != nil {
				// Log error but continue
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithEvaluator(ctx, evaluator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for use in grant mutations.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Extract IP address
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)

			// Extract User Agent
			ctx = WithUserAgent(ctx, r.UserAgent())

			// Extract Request ID (commonly set by other middleware)
			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			// Set actor ID from user ID if available
			userID := m.getUserID(r)
			if userID != "" {
				ctx = WithActorID(ctx, userID)
				ctx = WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
