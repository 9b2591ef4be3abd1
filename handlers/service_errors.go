package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/services"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/utils"
)

// HandleServiceError maps domain errors to HTTP responses.
// Internal errors never expose their cause to the caller.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, services.GetErrorMessage(err, ""))

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, services.GetErrorMessage(err, "Invalid request"), details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, services.GetErrorMessage(err, ""))

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, services.GetErrorMessage(err, ""))

	case services.IsExternalError(err):
		logger.Warn("upstream provider error", zap.Error(err))
		writeErr = utils.WriteError(w, http.StatusBadGateway, services.GetErrorMessage(err, "Upstream provider error"), nil)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles errors from request decoding and field checks
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, "Invalid request body", nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
