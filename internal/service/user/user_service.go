package user

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/crypto"
	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/jwt"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/common/utils"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
)

// UserService 用户服务
type UserService struct {
	db         *gorm.DB
	userRepo   *repository.UserRepository
	jwtManager *jwt.Manager
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB, jwtManager *jwt.Manager) *UserService {
	return &UserService{
		db:         db,
		userRepo:   repository.NewUserRepository(db),
		jwtManager: jwtManager,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Password string  `json:"password" binding:"required,min=6,max=64"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
}

// Register 用户注册
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	if req.Phone != nil && !utils.ValidatePhone(*req.Phone) {
		return nil, errors.ErrPhoneInvalid
	}
	if req.Email != nil && !utils.ValidateEmail(*req.Email) {
		return nil, errors.ErrInvalidParams.WithMessage("无效的邮箱")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrUserExists
	}

	hashed, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	user := &models.User{
		Username:       req.Username,
		Password:       hashed,
		Phone:          req.Phone,
		Email:          req.Email,
		Nickname:       req.Nickname,
		MembershipTier: models.TierBronze,
		Status:         models.UserStatusNormal,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	logger.Info("user registered", logger.UserID(user.ID), logger.String("username", user.Username))
	return user, nil
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult 登录结果
type LoginResult struct {
	User  *models.User   `json:"user"`
	Token *jwt.TokenPair `json:"token"`
}

// Login 用户登录
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPasswordError
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if user.Status == models.UserStatusDisabled {
		return nil, errors.ErrAccountDisabled
	}
	if !crypto.VerifyPassword(req.Password, user.Password) {
		return nil, errors.ErrPasswordError
	}

	role := ""
	if user.IsStaff {
		role = "staff"
	}
	token, err := s.jwtManager.GenerateTokenPair(user.ID, jwt.UserTypeUser, role)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)

	return &LoginResult{User: user, Token: token}, nil
}

// RefreshToken 刷新令牌
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	pair, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return nil, errors.ErrTokenRefreshFail.WithError(err)
	}
	return pair, nil
}

// GetProfile 获取用户信息
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return user, nil
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Language *string `json:"language,omitempty"`
}

// UpdateProfile 更新用户资料
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) error {
	fields := map[string]interface{}{}
	if req.Nickname != nil {
		fields["nickname"] = *req.Nickname
	}
	if req.Avatar != nil {
		fields["avatar"] = *req.Avatar
	}
	if req.Language != nil {
		fields["language"] = *req.Language
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}
