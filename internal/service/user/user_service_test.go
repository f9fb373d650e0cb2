// Package user 用户服务单元测试
package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/jwt"
	"github.com/dumeirei/marketplace-backend/internal/models"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func newUserTestService(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	db := setupUserTestDB(t)
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            "test-secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "marketplace-test",
	})
	return NewUserService(db, jwtManager), db
}

func strPtr(s string) *string { return &s }

func TestUserService_Register(t *testing.T) {
	svc, _ := newUserTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{
		Username: "arjun",
		Password: "secret123",
		Phone:    strPtr("9876543210"),
		Nickname: strPtr("Arjun"),
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.TierBronze, user.MembershipTier)
	assert.Equal(t, int8(models.UserStatusNormal), user.Status)
	// 密码不落明文
	assert.NotEqual(t, "secret123", user.Password)
}

func TestUserService_Register_DuplicateUsername(t *testing.T) {
	svc, _ := newUserTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "arjun", Password: "other456"})
	assert.ErrorIs(t, err, errors.ErrUserExists)
}

func TestUserService_Register_InvalidPhone(t *testing.T) {
	svc, _ := newUserTestService(t)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "arjun",
		Password: "secret123",
		Phone:    strPtr("12345"),
	})
	assert.ErrorIs(t, err, errors.ErrPhoneInvalid)
}

func TestUserService_Login(t *testing.T) {
	svc, db := newUserTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, &LoginRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token.AccessToken)
	assert.NotEmpty(t, result.Token.RefreshToken)
	assert.Equal(t, "arjun", result.User.Username)

	// 登录后记录最近登录时间
	var stored models.User
	require.NoError(t, db.First(&stored, result.User.ID).Error)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	svc, _ := newUserTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{Username: "arjun", Password: "wrong"})
	assert.ErrorIs(t, err, errors.ErrPasswordError)

	// 用户不存在时返回同样的错误，避免暴露账号是否存在
	_, err = svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, errors.ErrPasswordError)
}

func TestUserService_Login_Disabled(t *testing.T) {
	svc, db := newUserTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("status", models.UserStatusDisabled).Error)

	_, err = svc.Login(ctx, &LoginRequest{Username: "arjun", Password: "secret123"})
	assert.ErrorIs(t, err, errors.ErrAccountDisabled)
}

func TestUserService_Login_StaffRole(t *testing.T) {
	svc, db := newUserTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{Username: "ops", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("is_staff", true).Error)

	result, err := svc.Login(ctx, &LoginRequest{Username: "ops", Password: "secret123"})
	require.NoError(t, err)

	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            "test-secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "marketplace-test",
	})
	claims, err := jwtManager.ParseToken(result.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "staff", claims.Role)
}

func TestUserService_RefreshToken(t *testing.T) {
	svc, _ := newUserTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)
	result, err := svc.Login(ctx, &LoginRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)

	pair, err := svc.RefreshToken(ctx, result.Token.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.RefreshToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, errors.ErrTokenRefreshFail)
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, _ := newUserTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{Username: "arjun", Password: "secret123"})
	require.NoError(t, err)

	err = svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{
		Nickname: strPtr("新昵称"),
		Language: strPtr("hi"),
	})
	require.NoError(t, err)

	profile, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Nickname)
	assert.Equal(t, "新昵称", *profile.Nickname)
	assert.Equal(t, "hi", profile.Language)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	svc, _ := newUserTestService(t)

	_, err := svc.GetProfile(context.Background(), 12345)
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}
