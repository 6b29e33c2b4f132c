package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

const walletStatementLimit = 50

type walletService struct {
	wallets   repository.WalletRepository
	providers repository.ProviderRepository
	settings  SettingsService
	notifier  Notifier
}

func NewWalletService(
	wallets repository.WalletRepository,
	providers repository.ProviderRepository,
	settings SettingsService,
	notifier Notifier,
) WalletService {
	return &walletService{wallets: wallets, providers: providers, settings: settings, notifier: notifier}
}

func (s *walletService) Statement(ctx context.Context, owner domain.OwnerType, ownerID string) (int64, []domain.WalletEntry, error) {
	balance, err := s.wallets.Balance(ctx, owner, ownerID)
	if err != nil {
		return 0, nil, fmt.Errorf("wallet statement: %w", err)
	}
	entries, err := s.wallets.ListEntries(ctx, owner, ownerID, walletStatementLimit)
	if err != nil {
		return 0, nil, fmt.Errorf("wallet statement: %w", err)
	}
	return balance, entries, nil
}

func (s *walletService) ConfirmTopUp(ctx context.Context, userID string, amountCents int64, reference string) (int64, error) {
	if amountCents <= 0 || strings.TrimSpace(reference) == "" {
		return 0, fmt.Errorf("confirm topup: positive amount and reference required: %w", domain.ErrInvalidInput)
	}
	if min := int64(s.settings.GetNumber(ctx, SettingMinTopUpCents, 0)); amountCents < min {
		return 0, fmt.Errorf("confirm topup: amount below minimum of %d cents: %w", min, domain.ErrInvalidInput)
	}
	balance, err := s.wallets.ConfirmTopUp(ctx, userID, amountCents, reference)
	if err != nil {
		return 0, fmt.Errorf("confirm topup: %w", err)
	}
	logger.Info("wallet topup confirmed", "user_id", userID, "amount_cents", amountCents, "reference", reference)
	s.notifier.Notify(ctx, domain.RecipientUser, userID, domain.NotificationPayload{
		Title: "Wallet funded",
		Body:  "Your top-up was confirmed.",
		Type:  "wallet_topup",
		Data:  map[string]string{"reference": reference},
	})
	return balance, nil
}

func (s *walletService) RequestPayout(ctx context.Context, providerID string, amountCents int64) (*domain.PayoutRequest, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("request payout: positive amount required: %w", domain.ErrInvalidInput)
	}
	if min := int64(s.settings.GetNumber(ctx, SettingMinPayoutCents, 0)); amountCents < min {
		return nil, fmt.Errorf("request payout: amount below minimum of %d cents: %w", min, domain.ErrInvalidInput)
	}

	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("request payout: %w", err)
	}
	if p.BankName == "" || p.BankAccountNo == "" {
		return nil, fmt.Errorf("request payout: bank details missing: %w", domain.ErrInvalidInput)
	}

	req := &domain.PayoutRequest{
		ProviderID:      providerID,
		AmountCents:     amountCents,
		BankName:        p.BankName,
		BankAccountNo:   p.BankAccountNo,
		BankAccountName: p.BankAccountName,
		BankCode:        p.BankCode,
	}
	if err := s.wallets.RequestPayout(ctx, req); err != nil {
		return nil, err
	}
	logger.Info("payout requested", "provider_id", providerID, "amount_cents", amountCents, "payout_id", req.ID)
	return req, nil
}
