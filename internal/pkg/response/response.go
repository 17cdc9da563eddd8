package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// ErrorResponse represents a standard error payload returned by the API
type ErrorResponse struct {
	Error string `json:"error" example:"report is no longer pending"`
	Code  string `json:"code,omitempty" example:"PRECONDITION_FAILED"`
}

// SuccessResponse represents a standard success payload
type SuccessResponse struct {
	Status string      `json:"status" example:"success"`
	Data   interface{} `json:"data"`
}

// PaginatedResponse represents a paginated list response
type PaginatedResponse struct {
	Status string      `json:"status" example:"success"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"25"`
	Limit  int         `json:"limit" example:"10"`
	Page   int         `json:"page,omitempty" example:"1"`
}

// Success sends a 200 OK response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Status: "success",
		Data:   data,
	})
}

// Created sends a 201 Created response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Status: "success",
		Data:   data,
	})
}

// Paginated sends a paginated list response
func Paginated(c *gin.Context, data interface{}, total int64, limit, page int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Status: "success",
		Data:   data,
		Total:  total,
		Limit:  limit,
		Page:   page,
	})
}

// Error sends an error response with custom status code and message
func Error(c *gin.Context, statusCode int, message string, errorCode ...string) {
	code := ""
	if len(errorCode) > 0 {
		code = errorCode[0]
	}

	c.JSON(statusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// BadRequest sends a 400 Bad Request error
func BadRequest(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusBadRequest, message, errorCode...)
}

// Unauthorized sends a 401 Unauthorized error
func Unauthorized(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusUnauthorized, message, errorCode...)
}

// Forbidden sends a 403 Forbidden error
func Forbidden(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusForbidden, message, errorCode...)
}

// NotFound sends a 404 Not Found error
func NotFound(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusNotFound, message, errorCode...)
}

// Conflict sends a 409 Conflict error
func Conflict(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusConflict, message, errorCode...)
}

// UnprocessableEntity sends a 422 Unprocessable Entity error
func UnprocessableEntity(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusUnprocessableEntity, message, errorCode...)
}

// InternalServerError sends a 500 Internal Server Error
func InternalServerError(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusInternalServerError, message, errorCode...)
}

// FromError maps an engine error to its HTTP representation using the
// pkg/errors taxonomy. Unknown errors become 500s with a generic message
// so internals never leak to callers.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		UnprocessableEntity(c, err.Error(), "VALIDATION_FAILED")
	case errors.Is(err, errs.ErrPrecondition):
		BadRequest(c, err.Error(), "PRECONDITION_FAILED")
	case errors.Is(err, errs.ErrNotFound):
		NotFound(c, err.Error(), "NOT_FOUND")
	case errors.Is(err, errs.ErrConflict):
		Conflict(c, err.Error(), "CONFLICT")
	case errors.Is(err, errs.ErrUnauthorized):
		Unauthorized(c, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, errs.ErrForbidden):
		Forbidden(c, err.Error(), "FORBIDDEN")
	default:
		InternalServerError(c, "Internal server error", "INTERNAL_ERROR")
	}
}
