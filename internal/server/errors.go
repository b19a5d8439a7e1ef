package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	servicerequestdomain "github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: validationErrorMessage(code),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, actorcontext.ErrUnauthenticated),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, sparepartdomain.ErrVersionConflict),
		errors.Is(err, userdomain.ErrAlreadyExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same classification the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return payload.Type, "internal_error"
	}
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isRequestValidationError(err),
		isSparePartValidationError(err),
		isCustomerValidationError(err),
		isUserValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isRequestValidationError(err error) bool {
	switch {
	case errors.Is(err, servicerequestdomain.ErrInvalidID),
		errors.Is(err, servicerequestdomain.ErrInvalidStatus),
		errors.Is(err, servicerequestdomain.ErrInvalidPriority),
		errors.Is(err, servicerequestdomain.ErrInvalidWarranty),
		errors.Is(err, servicerequestdomain.ErrInvalidExecution),
		errors.Is(err, servicerequestdomain.ErrInvalidDescription),
		errors.Is(err, servicerequestdomain.ErrInvalidCustomer),
		errors.Is(err, servicerequestdomain.ErrInvalidDepartment),
		errors.Is(err, servicerequestdomain.ErrInvalidCurrency),
		errors.Is(err, servicerequestdomain.ErrInvalidTechnician),
		errors.Is(err, servicerequestdomain.ErrCloseRequired),
		errors.Is(err, servicerequestdomain.ErrNotCompleted),
		errors.Is(err, servicerequestdomain.ErrInvalidSatisfaction),
		errors.Is(err, servicerequestdomain.ErrInvalidAmount),
		errors.Is(err, servicerequestdomain.ErrInvalidCostType),
		errors.Is(err, servicerequestdomain.ErrQuantityRequired),
		errors.Is(err, servicerequestdomain.ErrCurrencyMismatch),
		errors.Is(err, servicerequestdomain.ErrRequestClosed),
		errors.Is(err, servicerequestdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isSparePartValidationError(err error) bool {
	switch {
	case errors.Is(err, sparepartdomain.ErrInvalidID),
		errors.Is(err, sparepartdomain.ErrInvalidName),
		errors.Is(err, sparepartdomain.ErrInvalidQuantity),
		errors.Is(err, sparepartdomain.ErrInvalidUnitPrice),
		errors.Is(err, sparepartdomain.ErrInvalidCurrency),
		errors.Is(err, sparepartdomain.ErrInvalidAdjustment),
		errors.Is(err, sparepartdomain.ErrReasonRequired),
		errors.Is(err, sparepartdomain.ErrInsufficientStock),
		errors.Is(err, sparepartdomain.ErrNegativeStock),
		errors.Is(err, sparepartdomain.ErrHasReservations),
		errors.Is(err, sparepartdomain.ErrRequestClosed),
		errors.Is(err, sparepartdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isUserValidationError(err error) bool {
	switch {
	case errors.Is(err, userdomain.ErrInvalidName),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrInvalidRole),
		errors.Is(err, userdomain.ErrInvalidDepartment):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidSubject):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, servicerequestdomain.ErrNotFound),
		errors.Is(err, sparepartdomain.ErrNotFound),
		errors.Is(err, sparepartdomain.ErrRequestNotFound),
		errors.Is(err, sparepartdomain.ErrRequestPartNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "insufficient_stock", "negative_stock":
		return "quantity"
	case "reason_required":
		return "reason"
	case "currency_mismatch":
		return "currency"
	case "quantity_required":
		return "quantity"
	case "close_required", "request_not_completed", "request_closed":
		return "status"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "insufficient_stock":
		return "not enough pieces in stock"
	case "negative_stock":
		return "adjustment would make stock negative"
	case "spare_part_has_reservations":
		return "spare part is reserved by requests"
	case "request_closed":
		return "request is closed"
	case "request_not_completed":
		return "request must be completed before closing"
	case "close_required":
		return "use the close endpoint to close a request"
	case "currency_mismatch":
		return "cost currency must match the request currency"
	default:
		return "invalid value"
	}
}
