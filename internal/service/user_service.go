// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"regenai-go/internal/model"
	"regenai-go/internal/repository"
	"regenai-go/pkg/hash"
	"regenai-go/pkg/log"
	"regenai-go/pkg/token"
)

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(firstName, lastName, email, password string) (*model.User, error)
	Login(email, password string) (accessToken, refreshToken string, err error)
	GetProfile(userID uint) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	IsTokenRevoked(ctx context.Context, tokenString string) bool
	RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	blacklist  repository.TokenBlacklist
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, blacklist repository.TokenBlacklist, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		jwtManager: jwtManager,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(firstName, lastName, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	// 1. 检查邮箱是否已注册
	_, err := s.userRepo.FindByEmail(email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 3. 写入数据库
	newUser := &model.User{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     email,
		Password:  hashedPassword,
		IsActive:  true,
	}
	if err := s.userRepo.Create(newUser); err != nil {
		log.Errorf("[UserService] 创建用户失败, email: %s, error: %v", email, err)
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	log.Infof("[UserService] 用户注册成功, userID: %d", newUser.ID)
	return newUser, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(email, password string) (accessToken, refreshToken string, err error) {
	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.Password) {
		return "", "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", "", ErrInactiveUser
	}

	// 3. 生成 access token 和 refresh token
	return s.issueTokens(user)
}

func (s *userService) issueTokens(user *model.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// GetProfile 根据用户 ID 获取用户详细信息。
func (s *userService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return user, nil
}

// Logout 将 token 加入黑名单，黑名单条目的过期时间为 token 的剩余有效期。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return ErrInvalidToken
	}
	expiration := time.Until(claims.ExpiresAt.Time)
	return s.blacklist.Add(ctx, tokenString, expiration)
}

// IsTokenRevoked 判断 token 是否已登出。黑名单不可用时视为未登出。
func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) bool {
	revoked, err := s.blacklist.Contains(ctx, tokenString)
	if err != nil {
		log.Warnf("[UserService] 查询 token 黑名单失败: %v", err)
		return false
	}
	return revoked
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token。
func (s *userService) RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error) {
	// 1. 验证 refresh token 是否有效
	claims, err := s.jwtManager.VerifyTokenOfType(refreshTokenString, token.TypeRefresh)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	// 2. 检查用户是否存在且可用
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	if !user.IsActive {
		return "", "", ErrInactiveUser
	}

	// 3. 签发新的 token
	return s.issueTokens(user)
}
