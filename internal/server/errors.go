package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	contentdomain "github.com/smallbiznis/donora/internal/content/domain"
	nodeselldomain "github.com/smallbiznis/donora/internal/nodesell/domain"
	organizationdomain "github.com/smallbiznis/donora/internal/organization/domain"
	referraldomain "github.com/smallbiznis/donora/internal/referral/domain"
	userdomain "github.com/smallbiznis/donora/internal/user/domain"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	errorTypeInvalidRequest     = "invalid_request_error"
	errorTypeNotFound           = "not_found"
	errorTypeConflict           = "conflict"
	errorTypeRateLimited        = "rate_limited"
	errorTypeServiceUnavailable = "service_unavailable"
	errorTypeAPI                = "api_error"
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
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrOrgRequired        = errors.New("organization_required")
	ErrInvalidActor       = errors.New("invalid_actor")
	ErrRateLimited        = errors.New("rate_limited")
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

// bindError turns a gin binding failure into field errors when the
// validator produced them.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := &ValidationErrors{}
		for _, fe := range fieldErrs {
			out.Errors = append(out.Errors, ValidationError{
				Field:   fe.Field(),
				Code:    fe.Tag(),
				Message: fe.Field() + " failed " + fe.Tag(),
			})
		}
		return out
	}
	return invalidRequestError()
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
			Type:    errorTypeAPI,
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    errorTypeInvalidRequest,
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var specErr *campaigndomain.ValidationError
	if errors.As(err, &specErr) {
		payload := errorPayload{
			Type:    errorTypeInvalidRequest,
			Message: "invalid campaign",
		}
		for _, v := range specErr.Violations {
			payload.Errors = append(payload.Errors, ValidationError{Field: v.Field, Code: v.Code, Message: v.Message})
		}
		return http.StatusBadRequest, payload
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    errorTypeInvalidRequest,
			Message: "validation error",
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
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    errorTypeConflict,
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    errorTypeNotFound,
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    errorTypeRateLimited,
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    errorTypeServiceUnavailable,
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    errorTypeAPI,
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the payload type and a low-cardinality code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return payload.Type, "internal"
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
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrOrgRequired),
		errors.Is(err, ErrInvalidActor),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, campaigndomain.ErrInvalidOrganization),
		errors.Is(err, campaigndomain.ErrInvalidID),
		errors.Is(err, campaigndomain.ErrInvalidStatus),
		errors.Is(err, auditdomain.ErrInvalidOrganization),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	case isOrganizationValidationError(err),
		isUserValidationError(err),
		isContentValidationError(err),
		isNodeSellValidationError(err),
		isReferralValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, campaigndomain.ErrInvalidTransition),
		errors.Is(err, userdomain.ErrDuplicateEmail),
		errors.Is(err, organizationdomain.ErrDuplicateSlug):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, contentdomain.ErrNotFound),
		errors.Is(err, campaigndomain.ErrNotFound),
		errors.Is(err, nodeselldomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isOrganizationValidationError(err error) bool {
	switch {
	case errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, organizationdomain.ErrInvalidTimezone),
		errors.Is(err, organizationdomain.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

func isUserValidationError(err error) bool {
	switch {
	case errors.Is(err, userdomain.ErrInvalidOrganization),
		errors.Is(err, userdomain.ErrInvalidName),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isContentValidationError(err error) bool {
	switch {
	case errors.Is(err, contentdomain.ErrInvalidOrganization),
		errors.Is(err, contentdomain.ErrInvalidTitle),
		errors.Is(err, contentdomain.ErrInvalidBody),
		errors.Is(err, contentdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNodeSellValidationError(err error) bool {
	switch {
	case errors.Is(err, nodeselldomain.ErrInvalidOrganization),
		errors.Is(err, nodeselldomain.ErrInvalidNodeBoss),
		errors.Is(err, nodeselldomain.ErrInvalidNodeShare),
		errors.Is(err, nodeselldomain.ErrInvalidUnits),
		errors.Is(err, nodeselldomain.ErrInvalidPrice),
		errors.Is(err, nodeselldomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isReferralValidationError(err error) bool {
	switch {
	case errors.Is(err, referraldomain.ErrInvalidOrganization),
		errors.Is(err, referraldomain.ErrInvalidFilter),
		errors.Is(err, referraldomain.ErrInvalidNodeSell):
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
	case ErrOrgRequired.Error(), "invalid_organization":
		return "organization"
	case ErrInvalidActor.Error():
		return "actor"
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
	case ErrOrgRequired.Error():
		return "X-Org-ID header is required"
	default:
		return "invalid value"
	}
}
