package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/domain"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already in use")
	ErrOTPNotConsumed  = errors.New("otp not consumed")
)

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	SetOTP(ctx context.Context, id string, channel domain.OTPChannel, otpHash string, expireAtMs int64) error
	ConsumeVerifyOTP(ctx context.Context, id, otpHash string, nowMs int64) error
	ConsumeResetOTP(ctx context.Context, id, otpHash, newPasswordHash string, nowMs int64) error
	ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.Account], error)
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &GormAccountRepository{db: db} }

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	record(ctx, "find_by_id", err)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&a).Error
	record(ctx, "find_by_email", err)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	account.Email = NormalizeEmail(account.Email)
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil && isUniqueViolation(err) {
		err = ErrEmailTaken
	}
	record(ctx, "create", err)
	return err
}

// SetOTP overwrites whatever code was pending on the channel.
func (r *GormAccountRepository) SetOTP(ctx context.Context, id string, channel domain.OTPChannel, otpHash string, expireAtMs int64) error {
	var updates map[string]any
	switch channel {
	case domain.OTPChannelVerify:
		updates = map[string]any{"verify_otp": otpHash, "verify_otp_expire_at": expireAtMs}
	case domain.OTPChannelReset:
		updates = map[string]any{"reset_otp": otpHash, "reset_otp_expire_at": expireAtMs}
	default:
		return errors.New("unknown otp channel")
	}
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Updates(updates)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrAccountNotFound
	}
	record(ctx, "set_"+string(channel)+"_otp", err)
	return err
}

// ConsumeVerifyOTP marks the account verified and clears the code in one conditional update,
// so at most one caller can succeed per issued code.
func (r *GormAccountRepository) ConsumeVerifyOTP(ctx context.Context, id, otpHash string, nowMs int64) error {
	res := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND verify_otp <> '' AND verify_otp = ? AND verify_otp_expire_at >= ?", id, otpHash, nowMs).
		Updates(map[string]any{
			"is_account_verified":  true,
			"verify_otp":           "",
			"verify_otp_expire_at": 0,
			"updated_at":           time.Now().UTC(),
		})
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrOTPNotConsumed
	}
	record(ctx, "consume_verify_otp", err)
	return err
}

func (r *GormAccountRepository) ConsumeResetOTP(ctx context.Context, id, otpHash, newPasswordHash string, nowMs int64) error {
	res := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND reset_otp <> '' AND reset_otp = ? AND reset_otp_expire_at >= ?", id, otpHash, nowMs).
		Updates(map[string]any{
			"password_hash":       newPasswordHash,
			"reset_otp":           "",
			"reset_otp_expire_at": 0,
			"updated_at":          time.Now().UTC(),
		})
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrOTPNotConsumed
	}
	record(ctx, "consume_reset_otp", err)
	return err
}

func (r *GormAccountRepository) ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.Account], error) {
	req = req.clamped()
	result := PageResult[domain.Account]{Page: req.Page, PageSize: req.PageSize}

	var total int64
	base := r.db.WithContext(ctx).Model(&domain.Account{})
	if err := base.Count(&total).Error; err != nil {
		record(ctx, "list_paged", err)
		return PageResult[domain.Account]{}, err
	}
	result.setTotal(total)
	if err := base.Order("created_at desc").Offset(req.offset()).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
		record(ctx, "list_paged", err)
		return PageResult[domain.Account]{}, err
	}
	record(ctx, "list_paged", nil)
	return result, nil
}

func record(ctx context.Context, op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrAccountNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrOTPNotConsumed):
		outcome = "rejected"
	case errors.Is(err, ErrEmailTaken):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	observability.RecordRepositoryOperation(ctx, "account", op, outcome)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
