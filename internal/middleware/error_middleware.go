package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/logger"
	"github.com/yigit/formatrack/internal/pkg/retry"
)

type errorMapping struct {
	targets []error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order, first match wins.
var errorMappings = []errorMapping{
	{
		targets: []error{
			apperrors.ErrEstablishmentNotFound, apperrors.ErrUserNotFound, apperrors.ErrFormationNotFound,
			apperrors.ErrModuleNotFound, apperrors.ErrScheduleNotFound, apperrors.ErrSlotNotFound,
			apperrors.ErrMessageNotFound, apperrors.ErrAssignmentNotFound, apperrors.ErrSubmissionNotFound,
			apperrors.ErrMeetingNotFound, apperrors.ErrVirtualClassNotFound, apperrors.ErrResourceNotFound,
		},
		status: http.StatusNotFound, code: dto.ErrorCodeResourceNotFound, message: "Resource not found",
	},
	{
		targets: []error{apperrors.ErrSlugAlreadyExists, apperrors.ErrEmailAlreadyExists, apperrors.ErrAlreadyEnrolled, apperrors.ErrResourceAlreadyExists},
		status:  http.StatusConflict, code: dto.ErrorCodeResourceAlreadyExists, message: "Resource already exists",
	},
	{
		targets: []error{apperrors.ErrSlotOverlap, apperrors.ErrMessageAlreadySent, apperrors.ErrClaimLost, apperrors.ErrSubmissionGraded, apperrors.ErrPeerNotOnline, apperrors.ErrConflict},
		status:  http.StatusConflict, code: dto.ErrorCodeConflict, message: "Conflict",
	},
	{
		targets: []error{apperrors.ErrAccountDisabled},
		status:  http.StatusForbidden, code: dto.ErrorCodeAccountDisabled, message: "Account is disabled",
	},
	{
		targets: []error{apperrors.ErrPermissionDenied, apperrors.ErrTenantMismatch, apperrors.ErrNotParticipant, apperrors.ErrInvalidAccessCode},
		status:  http.StatusForbidden, code: dto.ErrorCodeForbidden, message: "Permission denied",
	},
	{
		targets: []error{apperrors.ErrTokenExpired},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeExpiredToken, message: "Token expired",
	},
	{
		targets: []error{apperrors.ErrTokenInvalid, apperrors.ErrInvalidFormat},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeInvalidToken, message: "Invalid token",
	},
	{
		targets: []error{apperrors.ErrUnauthenticated},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeUnauthorized, message: "Authentication required",
	},
	{
		targets: []error{apperrors.ErrNoRecipients, apperrors.ErrInvalidRecipientSet},
		status:  http.StatusUnprocessableEntity, code: dto.ErrorCodeResourceInvalid, message: "Recipients could not be resolved",
	},
	{
		targets: []error{apperrors.ErrValidationFailed},
		status:  http.StatusBadRequest, code: dto.ErrorCodeValidationFailed, message: "Validation failed",
	},
	{
		targets: []error{apperrors.ErrBadRequest},
		status:  http.StatusBadRequest, code: dto.ErrorCodeBadRequest, message: "Bad request",
	},
	{
		targets: []error{apperrors.ErrProviderUnavailable},
		status:  http.StatusBadGateway, code: dto.ErrorCodeExternalServiceError, message: "External service unavailable",
	},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		HandleValidationError(c, validationErrs)
		return
	}

	for _, m := range errorMappings {
		if apperrors.Is(err, m.targets[0], m.targets[1:]...) {
			c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(errorDetailFor(err, m.code, m.message)))
			return
		}
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeExternalServiceError, "External service unavailable")
		errorDetail = errorDetail.WithDetails(map[string]interface{}{"attempts": exhausted.Attempts})
		c.AbortWithStatusJSON(http.StatusBadGateway, dto.NewErrorResponse(errorDetail))
		return
	}

	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled API error")
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
}

// errorDetailFor prefers the message and field carried by a CustomError over the generic text
func errorDetailFor(err error, code dto.ErrorCode, fallback string) *dto.ErrorDetail {
	var custom *apperrors.CustomError
	if !errors.As(err, &custom) {
		return dto.NewErrorDetail(code, fallback).WithDetails(err.Error())
	}

	message := custom.Message
	if message == "" {
		message = fallback
	}
	errorDetail := dto.NewErrorDetail(code, message)
	if field, ok := custom.Details["field"].(string); ok {
		errorDetail = errorDetail.WithField(field)
	}
	if custom.Code != "" {
		errorDetail = errorDetail.WithDetails(map[string]interface{}{"reason": custom.Code})
	}
	return errorDetail
}
