package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"teams-service/internal/apperrors"
	"teams-service/internal/domain/models"
	"teams-service/internal/lib/capacity"
	"teams-service/internal/lib/logger/sl"
	"time"
)

// SignupProcessor converts email invitations of a new account.
type SignupProcessor interface {
	ProcessPendingInvitationsOnSignup(ctx context.Context, userID, email string) (int, error)
}

// AccountService mirrors accounts from the identity service into the local
// directory and converts the email invitations waiting for them.
type AccountService struct {
	log    *slog.Logger
	users  UserProvider
	signup SignupProcessor
	now    func() time.Time
}

func NewAccountService(
	log *slog.Logger,
	users UserProvider,
	signup SignupProcessor,
	now func() time.Time) *AccountService {
	return &AccountService{
		log:    log,
		users:  users,
		signup: signup,
		now:    timeOrNow(now),
	}
}

func (s *AccountService) RegisterAccount(ctx context.Context, user models.User) (models.AccountResult, error) {
	const op = "service.account.RegisterAccount"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", user.UserID),
	)

	log.Info("attempting to register account")

	user.UserID = strings.TrimSpace(user.UserID)
	if user.UserID == "" {
		return models.AccountResult{}, fmt.Errorf("%s: %w", op, apperrors.ErrUserIDRequired)
	}

	email, err := NormalizeEmail(user.Email)
	if err != nil {
		return models.AccountResult{}, fmt.Errorf("%s: %w", op, err)
	}
	user.Email = email
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	user.Tier = string(capacity.ParseTier(user.Tier))
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	created, err := s.users.UpsertUser(ctx, user)
	if err != nil {
		log.Error("failed to store account", sl.Err(err))
		return models.AccountResult{}, fmt.Errorf("%s: %w", op, err)
	}

	result := models.AccountResult{UserID: user.UserID, Created: created}
	if !created {
		log.Info("account updated")
	}

	// The sweep also runs for known accounts so that a retried hook picks up
	// invitations a failed first attempt left behind.
	converted, err := s.signup.ProcessPendingInvitationsOnSignup(ctx, user.UserID, user.Email)
	if err != nil {
		log.Error("failed to process pending invitations", sl.Err(err))
		return models.AccountResult{}, fmt.Errorf("%s: %w", op, err)
	}
	result.InvitationsConverted = converted

	log.Info("account registered",
		slog.Bool("created", created),
		slog.Int("invitations_converted", converted))

	return result, nil
}
