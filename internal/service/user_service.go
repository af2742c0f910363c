package service

import (
	"context"
	"errors"

	"github.com/sandeepkv93/otp-auth-service/internal/domain"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/repository"
)

type UserService struct {
	accountRepo repository.AccountRepository
}

func NewUserService(accountRepo repository.AccountRepository) *UserService {
	return &UserService{accountRepo: accountRepo}
}

// GetAccountData returns the profile view of an account. Every call reads the store under its
// own context so a verify-then-read sequence always sees the committed flag.
func (s *UserService) GetAccountData(ctx context.Context, accountID string) (*domain.AccountData, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordUserProfileEvent(ctx, "not_found")
			return nil, newAuthError(ErrNotFound, MsgUserNotFound)
		}
		observability.RecordUserProfileEvent(ctx, "error")
		return nil, internalError(err)
	}
	observability.RecordUserProfileEvent(ctx, "success")
	data := account.Data()
	return &data, nil
}
