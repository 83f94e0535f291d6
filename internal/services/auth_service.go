package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"miningpad/internal/models"
	"miningpad/pkg/apperr"
	"miningpad/pkg/logger"
)

// AuthService handles registration, login and refresh-token lifecycle
type AuthService struct {
	db              *gorm.DB
	walletService   *WalletService
	referralService *ReferralService
	signupBonus     decimal.Decimal
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, walletService *WalletService, referralService *ReferralService, signupBonus decimal.Decimal) *AuthService {
	return &AuthService{
		db:              db,
		walletService:   walletService,
		referralService: referralService,
		signupBonus:     signupBonus,
	}
}

// Register creates a new user with a hashed password and a pre-credited
// wallet, then processes the optional referral code. User and wallet are
// created atomically; referral linking and rewards happen after the commit
// and a failure there does not undo the registration.
func (s *AuthService) Register(username, email, password, referralCode string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperr.ErrEmailTaken
	}
	if err := s.db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, apperr.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "user",
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			// A concurrent registration can slip past the checks above
			// and hit the unique index instead.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		if _, err := s.walletService.CreateWallet(tx, user.ID, s.signupBonus); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if referralCode != "" {
		referral, err := s.referralService.ProcessReferralSignup(user.ID, referralCode)
		if err != nil {
			logger.Warnf("referral processing failed for user %d: %v", user.ID, err)
		} else if referral != nil {
			if err := s.referralService.GiveReferralRewards(referral.ID); err != nil {
				logger.Warnf("referral rewards failed for referral %d: %v", referral.ID, err)
			}
		}
	}

	logger.Infof("New user registered: %s (ID: %d)", email, user.ID)
	return &user, nil
}

// Login verifies credentials and stamps the last login time
func (s *AuthService) Login(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		logger.Warnf("failed to stamp last login for user %d: %v", user.ID, err)
	}

	return &user, nil
}

// IssueRefreshToken creates a DB-backed refresh token valid for 30 days
func (s *AuthService) IssueRefreshToken(userID uint) (*models.RefreshToken, error) {
	token := models.RefreshToken{
		UserID:    userID,
		Token:     strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}

	if err := s.db.Create(&token).Error; err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &token, nil
}

// RotateRefreshToken validates a refresh token, revokes it and issues a new
// one along with the owning user.
func (s *AuthService) RotateRefreshToken(tokenString string) (*models.User, *models.RefreshToken, error) {
	var token models.RefreshToken
	if err := s.db.Where("token = ? AND revoked = ?", tokenString, false).First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperr.ErrInvalidToken
		}
		return nil, nil, err
	}

	if time.Now().After(token.ExpiresAt) {
		return nil, nil, apperr.ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, token.UserID).Error; err != nil {
		return nil, nil, apperr.ErrUserNotFound
	}

	if err := s.db.Model(&token).Update("revoked", true).Error; err != nil {
		return nil, nil, err
	}

	fresh, err := s.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, fresh, nil
}

// RevokeRefreshToken invalidates a refresh token on logout
func (s *AuthService) RevokeRefreshToken(tokenString string) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("token = ?", tokenString).
		Update("revoked", true).Error
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
