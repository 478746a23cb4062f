package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayo6706/swift-remit/internal/api/middleware"
	"github.com/ayo6706/swift-remit/internal/api/problem"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondServiceError maps a core error onto its HTTP status and problem type.
func RespondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := models.ErrorKind(err)
	status, slug := statusForKind(kind)
	d := problem.Details{
		Type:   problem.Type(slug),
		Status: status,
		Detail: models.PublicMessage(err),
		Kind:   kind,
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		d.Errors = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error(op+" failed", zap.Error(err), zap.String("kind", kind))
	}
	problem.WriteDetails(w, r, d)
}

func statusForKind(kind string) (int, string) {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest, "transaction/validation"
	case models.KindAuthorization:
		return http.StatusForbidden, "auth/insufficient-permissions"
	case models.KindNotFound:
		return http.StatusNotFound, "transaction/not-found"
	case models.KindInvalidTransition:
		return http.StatusConflict, "transaction/invalid-transition"
	case models.KindConflictingTransition:
		return http.StatusConflict, "transaction/conflicting-transition"
	case models.KindNotYetVerified:
		return http.StatusConflict, "invoice/not-yet-verified"
	case models.KindSettlementRejected:
		return http.StatusBadGateway, "settlement/rejected"
	case models.KindStoreUnavailable:
		return http.StatusServiceUnavailable, "store/unavailable"
	default:
		return http.StatusInternalServerError, "internal-server-error"
	}
}

func requestActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return models.Actor{}, false
	}
	return actor, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		problem.WriteDetails(w, r, problem.Details{
			Type:   problem.Type("request/invalid-" + name),
			Status: http.StatusBadRequest,
			Detail: "Invalid " + name,
			Kind:   models.KindValidation,
		})
		return uuid.Nil, false
	}
	return id, true
}

func parsePage(w http.ResponseWriter, r *http.Request) (models.Page, bool) {
	page := models.Page{Limit: models.DefaultPageLimit}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-limit", "limit must be a positive integer")
			return page, false
		}
		page.Limit = parsed
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-offset", "offset must be a non-negative integer")
			return page, false
		}
		page.Offset = parsed
	}
	return page.Normalize(), true
}

// listResponse mirrors the paginated envelope used by every list route.
func listResponse[T any](items []T, page models.Page) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{
		"items":  items,
		"limit":  page.Limit,
		"offset": page.Offset,
		"count":  len(items),
	}
}
