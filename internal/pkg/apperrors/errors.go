package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrInvalidFormat   = errors.New("invalid token format")
	ErrAccountDisabled = errors.New("account is disabled")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")
	ErrTenantMismatch   = errors.New("resource belongs to another establishment")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// External providers (email, video rooms)
	ErrProviderUnavailable = errors.New("external provider unavailable")
)

// Establishment and user errors
var (
	ErrEstablishmentNotFound = errors.New("establishment not found")
	ErrSlugAlreadyExists     = errors.New("establishment slug already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
)

// Formation errors
var (
	ErrFormationNotFound = errors.New("formation not found")
	ErrModuleNotFound    = errors.New("formation module not found")
	ErrNotParticipant    = errors.New("user is not a participant of this formation")
	ErrAlreadyEnrolled   = errors.New("user is already enrolled in this formation")
)

// Schedule errors
var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrSlotNotFound     = errors.New("schedule slot not found")
	ErrSlotOverlap      = errors.New("schedule slot overlaps an existing slot")
)

// Messaging errors
var (
	ErrMessageNotFound     = errors.New("message not found")
	ErrNoRecipients        = errors.New("recipient descriptor resolved to no recipients")
	ErrMessageAlreadySent  = errors.New("message has already been dispatched")
	ErrClaimLost           = errors.New("message is no longer claimed by this dispatcher")
	ErrInvalidRecipientSet = errors.New("invalid recipient descriptor")
)

// Assignment errors
var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionGraded   = errors.New("submission has already been graded")
)

// Meeting, virtual class and signaling errors
var (
	ErrMeetingNotFound      = errors.New("meeting not found")
	ErrVirtualClassNotFound = errors.New("virtual class not found")
	ErrInvalidAccessCode    = errors.New("invalid access code")
	ErrPeerNotOnline        = errors.New("peer is not online in this class")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with a field-level message
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
