package domain

const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"

	// Transaction types. Amounts are signed: *_out, withdrawal and payout
	// entries are negative, *_in and deposit entries are positive.
	TxTypeDeposit     = "deposit"
	TxTypeWithdrawal  = "withdrawal"
	TxTypeTransferIn  = "transfer_in"
	TxTypeTransferOut = "transfer_out"
	TxTypeExchangeIn  = "exchange_in"
	TxTypeExchangeOut = "exchange_out"
	TxTypeBuy         = "buy"
	TxTypeSell        = "sell"
	TxTypeSwap        = "swap"
	TxTypeRefund      = "refund"

	TxStatusPending    = "PENDING"
	TxStatusProcessing = "PROCESSING"
	TxStatusCompleted  = "COMPLETED"
	TxStatusFailed     = "FAILED"

	AccountStatusActive = "ACTIVE"
	AccountStatusFrozen = "FROZEN"
	AccountStatusClosed = "CLOSED"

	// Shared lifecycle statuses for transfer/funding/payout requests.
	RequestStatusPending    = "PENDING"
	RequestStatusProcessing = "PROCESSING"
	RequestStatusCompleted  = "COMPLETED"
	RequestStatusCancelled  = "CANCELLED"
	RequestStatusFailed     = "FAILED"

	// Money movement methods carried on request rows.
	MethodInternal    = "internal"
	MethodP2P         = "p2p"
	MethodBank        = "bank"
	MethodMobileMoney = "mobile_money"
	MethodCrypto      = "crypto"
	MethodWire        = "wire"
	MethodExchange    = "exchange"

	// DefaultQuoteBaseMicros is the canonical source amount quoted when the
	// caller supplies neither side of the pair: 100 units of the source asset.
	DefaultQuoteBaseMicros int64 = 100_000_000
)
