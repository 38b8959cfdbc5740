package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/pj-cobranca-go/internal/cnab"
	"github.com/boddenberg/pj-cobranca-go/internal/domain"
	"github.com/boddenberg/pj-cobranca-go/internal/service"
	"github.com/boddenberg/pj-cobranca-go/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxRetornoUpload bounds the multipart body of POST /retorno/.
const maxRetornoUpload = 32 << 20

// ============================================================
// Titulos
// ============================================================

func gerarBoletoHandler(svc *service.BoletoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /titulo/{id}/gerar/")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("titulo.id", id))

		result, err := svc.Gerar(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func consultarTituloHandler(svc *service.BoletoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /titulo/{id}/consultar/")
		defer span.End()

		titulo, err := svc.Consultar(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, titulo)
	}
}

func cancelarTituloHandler(svc *service.BoletoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /titulo/{id}/cancelar/")
		defer span.End()

		titulo, err := svc.Cancelar(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("titulo cancelled", zap.String("titulo_id", titulo.ID), zap.String("subject", SubjectFromContext(ctx)))
		writeJSON(w, http.StatusOK, titulo)
	}
}

// ============================================================
// CNAB
// ============================================================

func remessaBorderoHandler(svc *service.RemessaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /bordero/{id}/remessa/")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("bordero.id", id))

		var req domain.RemessaRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := validation.Struct(req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rf, err := svc.GerarBordero(ctx, id, req.Layout)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if incluir, _ := strconv.ParseBool(r.URL.Query().Get("incluir_conteudo")); !incluir {
			rf.Conteudo = ""
		}
		writeJSON(w, http.StatusCreated, rf)
	}
}

// retornoHandler accepts a multipart upload in field "arquivo". The optional
// "layout" field overrides detection; "aplicar=true" settles the titulos.
func retornoHandler(svc *service.RetornoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /retorno/")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxRetornoUpload+1<<20)
		if err := r.ParseMultipartForm(maxRetornoUpload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("arquivo")
		if err != nil {
			writeError(w, http.StatusBadRequest, "arquivo is required")
			return
		}
		defer file.Close()

		var layout cnab.Layout
		if raw := r.FormValue("layout"); raw != "" {
			if layout, err = cnab.ParseLayout(raw); err != nil {
				handleServiceError(w, err, logger)
				return
			}
		}

		result, err := svc.Processar(ctx, file, header.Filename, layout)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if aplicar, _ := strconv.ParseBool(r.FormValue("aplicar")); aplicar {
			result.Aplicados, result.Ignorados, err = svc.Aplicar(ctx, result.Entries)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
		}
		span.SetAttributes(
			attribute.String("bank", result.Banco),
			attribute.Int("entries", len(result.Entries)),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// Stateless boleto tools
// ============================================================

func validarBoletoHandler(svc *service.BoletoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /boletos/validar")
		defer span.End()

		var req domain.BoletoInput
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := svc.Validar(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func decodificarBoletoHandler(svc *service.BoletoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /boletos/decodificar")
		defer span.End()

		var req struct {
			Codigo string `json:"codigo"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if req.Codigo == "" {
			writeError(w, http.StatusBadRequest, "codigo is required")
			return
		}
		writeJSON(w, http.StatusOK, svc.Decodificar(ctx, req.Codigo))
	}
}
