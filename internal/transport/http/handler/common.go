package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"researchhub/internal/app"
	"researchhub/internal/transport/http/middleware"
	"researchhub/internal/transport/http/response"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	u, err := strconv.ParseUint(c.Param(key), 10, 64)
	return uint(u), err
}

// parseOptionalUint returns nil for an absent value.
func parseOptionalUint(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	u, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	v := uint(u)
	return &v, nil
}

// writeServiceError maps app sentinel errors onto HTTP responses; anything
// unrecognised is recorded on the context and answered with fallback.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrNotPDF):
		response.Error(c, http.StatusBadRequest, response.CodeNotPDF, "Only PDF files are supported")
	case errors.Is(err, app.ErrEmptyExtraction):
		response.Error(c, http.StatusBadRequest, response.CodeEmptyExtraction, "Could not extract text from PDF")
	case errors.Is(err, app.ErrDownloadFailed):
		response.Error(c, http.StatusBadRequest, response.CodeDownloadFailed, "Could not download PDF from URL")
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, "File exceeds the upload size limit")
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusBadRequest, response.CodeEmailExists, "Email already registered")
	case errors.Is(err, app.ErrQueryRequired):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "Query parameter is required")
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrWorkspaceNotFound):
		response.Error(c, http.StatusNotFound, response.CodeWorkspaceNotFound, "Workspace not found")
	case errors.Is(err, app.ErrInvalidCredential):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "Incorrect email or password")
	case errors.Is(err, app.ErrInactiveUser):
		response.Error(c, http.StatusUnauthorized, response.CodeInactiveUser, "Inactive user")
	case errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
