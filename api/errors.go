// errors.go - API 错误响应
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ByLCY/posterkit/export"
)

// APIError 是统一的 JSON 错误响应。
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError 创建 400 错误。
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError 创建字段校验失败的 400 错误。
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("字段校验失败: %s", field),
	}
}

// NewExportError 按失败阶段创建 502 错误：快照或序列化属于下游协作方的失败。
func NewExportError(cause error) *APIError {
	code := "EXPORT_FAILED"
	switch {
	case errors.Is(cause, export.ErrSnapshot):
		code = "SNAPSHOT_FAILED"
	case errors.Is(cause, export.ErrSerialize):
		code = "SERIALIZE_FAILED"
	}
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    code,
		Message: "导出失败",
		Details: cause.Error(),
	}
}

// NewInternalError 创建 500 错误。
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// ErrorHandler 替换 echo 默认的错误处理。
// 用法：e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	case errors.Is(err, export.ErrInvalidSource):
		apiErr = NewBadRequestError("海报描述无效", err)
	case errors.Is(err, export.ErrSnapshot), errors.Is(err, export.ErrSerialize):
		apiErr = NewExportError(err)
	default:
		apiErr = NewInternalError("未知错误", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
