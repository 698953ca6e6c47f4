package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// TokenRepository stores issued access tokens.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *model.AccessToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindByTokenID(ctx context.Context, tokenID string) (*model.AccessToken, error) {
	var token model.AccessToken
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) Touch(ctx context.Context, token *model.AccessToken, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(token).Update("last_used_at", at).Error; err != nil {
		return fmt.Errorf("touch token: %w", err)
	}
	return nil
}

// Issue stores a new token, first revoking every other token of the user when revokeOthers is set.
func (r *TokenRepository) Issue(ctx context.Context, token *model.AccessToken, revokeOthers bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if revokeOthers {
			if err := tx.Where("user_id = ?", token.UserID).Delete(&model.AccessToken{}).Error; err != nil {
				return fmt.Errorf("revoke user tokens: %w", err)
			}
		}
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		return nil
	})
}

// Rotate revokes oldTokenID and stores next in one transaction. It returns
// gorm.ErrRecordNotFound when oldTokenID was already revoked.
func (r *TokenRepository) Rotate(ctx context.Context, oldTokenID string, next *model.AccessToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("token_id = ?", oldTokenID).Delete(&model.AccessToken{})
		if res.Error != nil {
			return fmt.Errorf("revoke token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		return nil
	})
}

// Delete revokes a single token and reports whether it existed.
func (r *TokenRepository) Delete(ctx context.Context, tokenID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("token_id = ?", tokenID).Delete(&model.AccessToken{})
	if res.Error != nil {
		return false, fmt.Errorf("delete token: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteExpired purges tokens whose expiry is at or before now.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&model.AccessToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *TokenRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.AccessToken{}).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
