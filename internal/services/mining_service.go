package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"miningpad/internal/models"
	"miningpad/pkg/apperr"
	"miningpad/pkg/logger"
)

// MiningService runs timed mining sessions. A session accrues tokens at a
// fixed hourly rate; claiming pays out the accrued amount pro-rata, capped at
// the session duration, into the non-sendable bucket.
type MiningService struct {
	db            *gorm.DB
	walletService *WalletService
	ratePerHour   decimal.Decimal
	sessionHours  int
}

// NewMiningService creates a new MiningService
func NewMiningService(db *gorm.DB, walletService *WalletService, ratePerHour decimal.Decimal, sessionHours int) *MiningService {
	if sessionHours < 1 {
		sessionHours = 24
	}
	return &MiningService{
		db:            db,
		walletService: walletService,
		ratePerHour:   ratePerHour,
		sessionHours:  sessionHours,
	}
}

// StartSession begins a new mining session for the user. Only one active
// session is allowed at a time.
func (s *MiningService) StartSession(userID uint) (*models.MiningSession, error) {
	var active models.MiningSession
	err := s.db.Where("user_id = ? AND status = ?", userID, models.MiningStatusActive).First(&active).Error
	if err == nil {
		return nil, apperr.ErrMiningActive
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now()
	session := models.MiningSession{
		UserID:      userID,
		RatePerHour: s.ratePerHour,
		StartedAt:   now,
		EndsAt:      now.Add(time.Duration(s.sessionHours) * time.Hour),
		Status:      models.MiningStatusActive,
	}

	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}

	logger.Infof("Mining session %d started for user %d", session.ID, userID)
	return &session, nil
}

// GetActiveSession returns the user's active session with the accrued amount
// computed as of now.
func (s *MiningService) GetActiveSession(userID uint) (*models.MiningSession, decimal.Decimal, error) {
	var session models.MiningSession
	err := s.db.Where("user_id = ? AND status = ?", userID, models.MiningStatusActive).First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, decimal.Zero, apperr.ErrSessionNotFound
	}
	if err != nil {
		return nil, decimal.Zero, err
	}

	return &session, s.accrued(&session, time.Now()), nil
}

// accrued computes rate * elapsed hours, capped at the session window
func (s *MiningService) accrued(session *models.MiningSession, at time.Time) decimal.Decimal {
	end := at
	if end.After(session.EndsAt) {
		end = session.EndsAt
	}
	if end.Before(session.StartedAt) {
		return decimal.Zero
	}

	hours := decimal.NewFromFloat(end.Sub(session.StartedAt).Hours())
	return session.RatePerHour.Mul(hours).Round(8)
}

// ClaimSession pays out the active session's accrued amount and closes it.
// The session flip to claimed is conditional on it still being active, so a
// double claim pays only once.
func (s *MiningService) ClaimSession(userID uint) (*models.MiningSession, *models.Transaction, error) {
	session, earned, err := s.GetActiveSession(userID)
	if err != nil {
		return nil, nil, err
	}

	// The status flip and the payout commit together; a failed credit
	// leaves the session active and claimable.
	now := time.Now()
	var transaction *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MiningSession{}).
			Where("id = ? AND status = ?", session.ID, models.MiningStatusActive).
			Updates(map[string]interface{}{
				"status":     models.MiningStatusClaimed,
				"earned":     earned,
				"claimed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAlreadyClaimed
		}

		if !earned.IsPositive() {
			return nil
		}

		var err error
		transaction, err = s.walletService.CreditRewardTx(
			tx,
			userID,
			earned,
			models.TxTypeMining,
			BucketNonSendable,
			"Mining reward",
		)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	session.Status = models.MiningStatusClaimed
	session.Earned = earned
	session.ClaimedAt = &now

	s.walletService.TrackProgress(userID, "mining", "mining")

	logger.Infof("Mining session %d claimed by user %d: %s", session.ID, userID, earned)
	return session, transaction, nil
}
