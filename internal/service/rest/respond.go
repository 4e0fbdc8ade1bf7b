package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// errorResponse — единый формат ошибок REST API.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), errorResponse{Error: err.Error()})
}

// errMalformedBody отделяет ошибки разбора JSON от внутренних ошибок.
var errMalformedBody = errors.New("request body is not valid JSON")

// statusFromError отображает доменные ошибки на HTTP-статусы так же,
// как это делала исходная система: not found -> 404, ошибки входных
// данных -> 400, нарушение бизнес-правила -> 409, отказ шлюза -> 402.
func statusFromError(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrUnsupportedMethod),
		errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case domain.IsBusinessRule(err), domain.IsVersionConflict(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentFailed):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}
