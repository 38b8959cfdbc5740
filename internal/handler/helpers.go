package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// invalidBoletoResponse lists every reason a slip was refused.
type invalidBoletoResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
	Invalid []string `json:"invalid"`
	Rules   []string `json:"rules"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var validation *domain.ErrValidation
	var boletoInvalido *domain.ErrBoletoInvalido
	var overflow *domain.ErrFieldOverflow
	var invalidBarcode *domain.ErrInvalidBarcode
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var notRegistered *domain.ErrAdapterNotRegistered

	switch {
	case errors.As(err, &boletoInvalido):
		logger.Debug("boleto invalido", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, invalidBoletoResponse{
			Error:   "boleto inválido",
			Missing: orEmpty(boletoInvalido.Missing),
			Invalid: orEmpty(boletoInvalido.Invalid),
			Rules:   orEmpty(boletoInvalido.Rules),
		})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &overflow):
		logger.Warn("cnab field overflow",
			zap.String("record", overflow.Record),
			zap.String("field", overflow.Field),
			zap.Int("width", overflow.Width),
		)
		writeError(w, http.StatusBadRequest, overflow.Error())
	case errors.As(err, &invalidBarcode):
		logger.Debug("invalid barcode", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, invalidBarcode.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, conflict.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, circuitOpen.Error())
	case errors.As(err, &external):
		logger.Error("external service failure", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "store unavailable")
	case errors.As(err, &notRegistered):
		logger.Error("cnab registry misconfigured", zap.Error(err))
		writeError(w, http.StatusInternalServerError, notRegistered.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
