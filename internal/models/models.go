package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a per-owner, per-currency balance record. Balances are int64
// micros and may never go negative. Accounts are closed by status, never
// deleted.
type Account struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Currency      string    `json:"currency"`
	BalanceMicros int64     `json:"balance_micros"`
	IsMain        bool      `json:"is_main"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Transaction is one immutable signed balance change. Corrections are new
// opposite entries, never edits.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	AccountID    uuid.UUID         `json:"account_id"`
	Type         string            `json:"type"`
	AmountMicros int64             `json:"amount_micros"` // signed
	Currency     string            `json:"currency"`
	FeeMicros    int64             `json:"fee_micros"`
	Status       string            `json:"status"`
	RelatedTxID  *uuid.UUID        `json:"related_transaction_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TransferRequest records a completed or failed internal/p2p movement intent,
// distinct from the ledger entries it produced.
type TransferRequest struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	FromAccountID uuid.UUID  `json:"from_account_id"`
	ToAccountID   uuid.UUID  `json:"to_account_id"`
	Method        string     `json:"method"`
	AmountMicros  int64      `json:"amount_micros"`
	Currency      string     `json:"currency"`
	FeeMicros     int64      `json:"fee_micros"`
	Status        string     `json:"status"`
	DebitTxID     *uuid.UUID `json:"debit_transaction_id,omitempty"`
	CreditTxID    *uuid.UUID `json:"credit_transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// FundingRequest is an asynchronous deposit intent. Creating one never moves
// money; only an external completion event credits the account.
type FundingRequest struct {
	ID           uuid.UUID         `json:"id"`
	AccountID    uuid.UUID         `json:"account_id"`
	Method       string            `json:"method"` // wire, crypto, mobile_money
	AmountMicros int64             `json:"amount_micros"`
	Currency     string            `json:"currency"`
	Reference    string            `json:"reference"` // wire reference, deposit address or USSD code
	Status       string            `json:"status"`
	CreditTxID   *uuid.UUID        `json:"credit_transaction_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// PayoutRequest is an asynchronous withdrawal intent. The debit of
// amount+fee happens at creation; cancellation or rail rejection refunds it.
type PayoutRequest struct {
	ID           uuid.UUID         `json:"id"`
	AccountID    uuid.UUID         `json:"account_id"`
	Method       string            `json:"method"` // bank, mobile_money, crypto
	AmountMicros int64             `json:"amount_micros"`
	Currency     string            `json:"currency"`
	FeeMicros    int64             `json:"fee_micros"`
	Status       string            `json:"status"`
	Destination  map[string]string `json:"destination"` // IBAN/country, phone/provider, address/network
	DebitTxID    *uuid.UUID        `json:"debit_transaction_id,omitempty"`
	GatewayRef   *string           `json:"gateway_ref,omitempty"`
	ETADays      int               `json:"eta_days"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Quote is an ephemeral, time-boxed price commitment. It lives only in the
// quote cache and is re-validated at execution time.
type Quote struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	FromAsset        string          `json:"from_asset"`
	ToAsset          string          `json:"to_asset"`
	FromAmountMicros int64           `json:"from_amount_micros"`
	ToAmountMicros   int64           `json:"to_amount_micros"`
	Rate             decimal.Decimal `json:"rate"`
	FeeMicros        int64           `json:"fee_micros"` // charged in the from asset
	ExpiresAt        time.Time       `json:"expires_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Expired reports whether the quote is past its expiry at the given instant.
func (q Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}
