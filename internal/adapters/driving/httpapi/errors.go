package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
	"github.com/custodia-labs/loom-gateway/internal/logger"
)

// Error types of the envelope.
const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeNotFound       = "not_found_error"
	errTypeUpstream       = "upstream_error"
	errTypeRateLimit      = "rate_limit_error"
	errTypeServer         = "server_error"
)

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func abortWithError(c *gin.Context, status int, errType, code, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: errorBody{
		Message: message,
		Type:    errType,
		Code:    code,
	}})
}

// writeError maps a service error to a status code and envelope.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		abortWithError(c, http.StatusBadRequest, errTypeInvalidRequest, "", domain.ValidationMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		abortWithError(c, http.StatusNotFound, errTypeNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		logger.Error("request %s: %v", requestID(c), err)
		abortWithError(c, http.StatusBadGateway, errTypeUpstream, "embedding_unavailable", err.Error())
	case errors.Is(err, domain.ErrLLMUnavailable):
		logger.Error("request %s: %v", requestID(c), err)
		abortWithError(c, http.StatusBadGateway, errTypeUpstream, "llm_unavailable", err.Error())
	default:
		logger.Error("request %s: %v", requestID(c), err)
		abortWithError(c, http.StatusInternalServerError, errTypeServer, "", err.Error())
	}
}
