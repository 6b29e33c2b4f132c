package domain

import "time"

type OwnerType string

const (
	OwnerTypeUser     OwnerType = "user"
	OwnerTypeProvider OwnerType = "provider"
)

type EntryDirection string

const (
	DirectionCredit EntryDirection = "credit"
	DirectionDebit  EntryDirection = "debit"
)

type EntryReason string

const (
	ReasonBookingPayment EntryReason = "booking_payment"
	ReasonBookingRefund  EntryReason = "booking_refund"
	ReasonJobPayout      EntryReason = "job_payout"
	ReasonTopUp          EntryReason = "topup"
	ReasonWithdrawal     EntryReason = "withdrawal"
)

// WalletEntry is an immutable record of one balance-affecting event.
// balance_after = balance_before + amount for credits, - amount for debits.
type WalletEntry struct {
	ID                 string         `json:"id"`
	OwnerType          OwnerType      `json:"owner_type"`
	OwnerID            string         `json:"owner_id"`
	Direction          EntryDirection `json:"direction"`
	Reason             EntryReason    `json:"reason"`
	AmountCents        int64          `json:"amount_cents"`
	BalanceBeforeCents int64          `json:"balance_before_cents"`
	BalanceAfterCents  int64          `json:"balance_after_cents"`
	Description        string         `json:"description"`
	Reference          string         `json:"reference,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

type PayoutRequestStatus string

const (
	PayoutRequestPending   PayoutRequestStatus = "pending"
	PayoutRequestProcessed PayoutRequestStatus = "processed"
	PayoutRequestRejected  PayoutRequestStatus = "rejected"
)

// PayoutRequest is a provider's request to withdraw wallet funds to a bank
// account. The wallet debit happens when the request is created.
type PayoutRequest struct {
	ID              string              `json:"id"`
	ProviderID      string              `json:"provider_id"`
	AmountCents     int64               `json:"amount_cents"`
	BankName        string              `json:"bank_name"`
	BankAccountNo   string              `json:"bank_account_no"`
	BankAccountName string              `json:"bank_account_name"`
	BankCode        string              `json:"bank_code"`
	Status          PayoutRequestStatus `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
}
