package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/service"
	"github.com/smartcheck/gatepass/pkg/auth"
	"github.com/smartcheck/gatepass/pkg/logger"
)

type Handlers struct {
	passService     *service.PassService
	gateService     *service.GateService
	authService     *service.AuthService
	categoryService *service.CategoryService
	jwtSecret       string
}

func New(
	passService *service.PassService,
	gateService *service.GateService,
	authService *service.AuthService,
	categoryService *service.CategoryService,
	jwtSecret string,
) *Handlers {
	return &Handlers{
		passService:     passService,
		gateService:     gateService,
		authService:     authService,
		categoryService: categoryService,
		jwtSecret:       jwtSecret,
	}
}

type ctxKey string

const claimsKey ctxKey = "claims"

// RequireJWT authenticates staff requests and stashes the claims for
// principal resolution. Role checks happen in the service layer.
func (h *Handlers) RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHENTICATED")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", "UNAUTHENTICATED")
			return
		}

		ctx := context.WithValue(r.Context(), logger.ActorIDKey, claims.Sub)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal resolves the authenticated actor. Zero value means the
// request bypassed RequireJWT.
func principal(r *http.Request) service.Principal {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return service.Principal{ID: claims.Sub, Email: claims.Email, Role: claims.Role}
	}
	return service.Principal{}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{"error": message, "code": code})
}

// writeDomainError maps service failures onto HTTP statuses. Anything
// that is not a domain error is a 500 and the message stays generic.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error(), code)
	case domain.KindInvalidState:
		writeError(w, http.StatusConflict, err.Error(), code)
	case domain.KindCredential:
		writeError(w, http.StatusUnauthorized, err.Error(), code)
	case domain.KindSchedule:
		writeError(w, http.StatusUnprocessableEntity, err.Error(), code)
	case domain.KindConfiguration:
		writeError(w, http.StatusBadRequest, err.Error(), code)
	case domain.KindPermission:
		status := http.StatusForbidden
		if code == "RATE_LIMITED" {
			status = http.StatusTooManyRequests
		}
		writeError(w, status, err.Error(), code)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
