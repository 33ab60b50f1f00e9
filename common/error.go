package common

import (
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorCode 业务错误码，随响应返回给客户端
type ErrorCode string

const (
	CodeValidation        ErrorCode = "validation_error"
	CodeMissingTenant     ErrorCode = "missing_tenant"
	CodeNotFound          ErrorCode = "not_found"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeTokenExpired      ErrorCode = "token_expired"
	CodeForbidden         ErrorCode = "forbidden"
	CodeConflict          ErrorCode = "conflict"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeUnavailable       ErrorCode = "service_unavailable"
	CodeInternal          ErrorCode = "internal_error"
	CodeUsernameExists    ErrorCode = "username_exists"
	CodeEmailExists       ErrorCode = "email_exists"
)

// Error 统一错误类型，StatusCode 决定 HTTP 状态码
type Error struct {
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Details    interface{} `json:"details,omitempty"`
	Err        error       `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code ErrorCode, message string, statusCode int, details interface{}) *Error {
	return &Error{Code: code, Message: message, StatusCode: statusCode, Details: details}
}

// ErrDuplicateKey 唯一索引冲突，存储层用它包装驱动错误
var ErrDuplicateKey = errors.New("duplicate key")

func Validation(message string, details interface{}) *Error {
	return NewError(CodeValidation, message, http.StatusBadRequest, details)
}

func MissingTenant() *Error {
	return NewError(CodeMissingTenant, "缺少店铺ID", http.StatusBadRequest, nil)
}

func NotFound(message string) *Error {
	return NewError(CodeNotFound, message, http.StatusNotFound, nil)
}

func Unauthorized(message string) *Error {
	return NewError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func TokenExpired() *Error {
	return NewError(CodeTokenExpired, "认证令牌已过期，请重新登录", http.StatusUnauthorized, nil)
}

func Forbidden(message string) *Error {
	return NewError(CodeForbidden, message, http.StatusForbidden, nil)
}

func Conflict(message string, details interface{}) *Error {
	return NewError(CodeConflict, message, http.StatusConflict, details)
}

func InvalidTransition(from, to string) *Error {
	return NewError(CodeInvalidTransition, fmt.Sprintf("订单状态不允许从 %s 变更为 %s", from, to), http.StatusConflict,
		map[string]string{"from": from, "to": to})
}

func Unavailable(message string, err error) *Error {
	e := NewError(CodeUnavailable, message, http.StatusServiceUnavailable, nil)
	e.Err = err
	return e
}

// Internal 包装未分类错误，原始错误只写日志不返回客户端
func Internal(message string, err error) *Error {
	e := NewError(CodeInternal, message, http.StatusInternalServerError, nil)
	e.Err = err
	return e
}

// As 取出错误链中的 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsDuplicate 同时识别包装后的哨兵错误与驱动原始的 11000 错误
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDuplicateKey) || mongo.IsDuplicateKeyError(err)
}

// FromMongo 把驱动错误翻译为业务错误
func FromMongo(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return NotFound(notFoundMsg)
	case IsDuplicate(err):
		return Conflict("数据已存在", nil)
	}
	if _, ok := As(err); ok {
		return err
	}
	return Internal("数据库操作失败", err)
}
