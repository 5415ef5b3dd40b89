package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/internal/shared/auth"
	"github.com/radieske/sports-tips-platform/internal/tips-service/dto"
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
)

const maxBody = 1 << 20

var errBadJSON = errors.New("malformed JSON body")

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadJSON
	}
	return nil
}

// statusOf traduz a taxonomia de erros do domínio para HTTP
func statusOf(err error) (int, string) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &verr), errors.Is(err, model.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrAlreadyTracked):
		return http.StatusConflict, "already_tracked"
	case errors.Is(err, model.ErrReactionExists):
		return http.StatusConflict, "reaction_exists"
	case model.IsPolicyViolation(err):
		return http.StatusConflict, "policy_violation"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	resp := dto.ErrorResponse{Error: code, Message: err.Error(), Code: status}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp.Message = "internal server error"
	}
	writeJSON(w, status, resp)
}

func (a *API) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	a.writeError(w, r, err)
}

// principal só é chamado atrás de auth.Require
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// viewerID devolve "" para visitantes anônimos
func viewerID(r *http.Request) string {
	p, _ := auth.FromContext(r.Context())
	return p.UserID
}
