package service

import "errors"

// 业务层的哨兵错误，由 handler 映射为 HTTP 状态码。
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUserExists         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("inactive user")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrFeatureDisabled    = errors.New("feature is not configured")
)
