package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on top of a pgx connection pool.
//
// Balance mutation is a single conditional UPDATE, so concurrent writers on
// the same account serialize on the row without a separate locking phase.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, currency, balance_micros, is_main, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := s.db.QueryRow(ctx, query,
		account.ID, account.OwnerID, account.Currency, account.BalanceMicros, account.IsMain, account.Status,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Wrap(domain.KindConflict, err, "account already exists for owner %s in %s", account.OwnerID, account.Currency)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, owner_id, currency, balance_micros, is_main, status, created_at, updated_at
		FROM accounts WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&account.ID, &account.OwnerID, &account.Currency, &account.BalanceMicros,
		&account.IsMain, &account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "account %s not found", id)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) GetAccountByOwnerCurrency(ctx context.Context, ownerID uuid.UUID, currency string) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, owner_id, currency, balance_micros, is_main, status, created_at, updated_at
		FROM accounts WHERE owner_id = $1 AND currency = $2`
	err := s.db.QueryRow(ctx, query, ownerID, currency).Scan(
		&account.ID, &account.OwnerID, &account.Currency, &account.BalanceMicros,
		&account.IsMain, &account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "no %s account for owner %s", currency, ownerID)
		}
		return nil, fmt.Errorf("get account by owner/currency: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Account, error) {
	query := `
		SELECT id, owner_id, currency, balance_micros, is_main, status, created_at, updated_at
		FROM accounts WHERE owner_id = $1 ORDER BY created_at`
	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Currency, &a.BalanceMicros, &a.IsMain, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ApplyBalanceDelta atomically adds deltaMicros to the balance, refusing the
// update when the result would be negative or the account is not active.
func (s *PostgresStore) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, deltaMicros int64) (int64, error) {
	var newBalance int64
	query := `
		UPDATE accounts
		SET balance_micros = balance_micros + $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND balance_micros + $1 >= 0
		RETURNING balance_micros`
	err := s.db.QueryRow(ctx, query, deltaMicros, accountID, domain.AccountStatusActive).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("apply balance delta: %w", err)
	}

	// The conditional update matched nothing; work out which precondition failed.
	account, getErr := s.GetAccount(ctx, accountID)
	if getErr != nil {
		return 0, getErr
	}
	if account.Status != domain.AccountStatusActive {
		return 0, domain.E(domain.KindValidation, "account %s is %s", accountID, account.Status)
	}
	return 0, domain.E(domain.KindInsufficientFunds, "balance %d short of %d on account %s", account.BalanceMicros, -deltaMicros, accountID)
}

func (s *PostgresStore) UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2`, status, accountID)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "account %s not found", accountID)
	}
	return nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("encode transaction metadata: %w", err)
	}
	query := `
		INSERT INTO transactions (id, account_id, type, amount_micros, currency, fee_micros, status, related_tx_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at`
	err = s.db.QueryRow(ctx, query,
		tx.ID, tx.AccountID, tx.Type, tx.AmountMicros, tx.Currency, tx.FeeMicros, tx.Status, nullableUUID(tx.RelatedTxID), metadata,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var related uuid.NullUUID
	var metadata []byte
	query := `
		SELECT id, account_id, type, amount_micros, currency, fee_micros, status, related_tx_id, metadata, created_at
		FROM transactions WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&tx.ID, &tx.AccountID, &tx.Type, &tx.AmountMicros, &tx.Currency, &tx.FeeMicros, &tx.Status, &related, &metadata, &tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "transaction %s not found", id)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if related.Valid {
		tx.RelatedTxID = &related.UUID
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return tx, nil
}

// LinkTransactions sets each side's related_tx_id to the other. This is the
// only permitted update besides status on an otherwise append-only table.
func (s *PostgresStore) LinkTransactions(ctx context.Context, a, b uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions SET related_tx_id = CASE id WHEN $1 THEN $2::uuid ELSE $1::uuid END
		WHERE id IN ($1, $2)`, a, b)
	if err != nil {
		return fmt.Errorf("link transactions: %w", err)
	}
	if tag.RowsAffected() != 2 {
		return fmt.Errorf("link transactions affected %d rows", tag.RowsAffected())
	}
	return nil
}

func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "transaction %s not found", id)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, account_id, type, amount_micros, currency, fee_micros, status, related_tx_id, metadata, created_at
		FROM transactions
		WHERE account_id = $1
		  AND ($2 = '' OR type = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	rows, err := s.db.Query(ctx, query, filter.AccountID, filter.Type, filter.Status, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var related uuid.NullUUID
		var metadata []byte
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Type, &tx.AmountMicros, &tx.Currency, &tx.FeeMicros, &tx.Status, &related, &metadata, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if related.Valid {
			tx.RelatedTxID = &related.UUID
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("decode transaction metadata: %w", err)
			}
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateTransferRequest(ctx context.Context, req *models.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests (id, owner_id, from_account_id, to_account_id, method, amount_micros, currency, fee_micros, status, debit_tx_id, credit_tx_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := s.db.QueryRow(ctx, query,
		req.ID, req.OwnerID, req.FromAccountID, req.ToAccountID, req.Method, req.AmountMicros,
		req.Currency, req.FeeMicros, req.Status, nullableUUID(req.DebitTxID), nullableUUID(req.CreditTxID),
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transfer request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransferRequest(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	req := &models.TransferRequest{}
	var debit, credit uuid.NullUUID
	query := `
		SELECT id, owner_id, from_account_id, to_account_id, method, amount_micros, currency, fee_micros, status, debit_tx_id, credit_tx_id, created_at, updated_at
		FROM transfer_requests WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.OwnerID, &req.FromAccountID, &req.ToAccountID, &req.Method, &req.AmountMicros,
		&req.Currency, &req.FeeMicros, &req.Status, &debit, &credit, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "transfer request %s not found", id)
		}
		return nil, fmt.Errorf("get transfer request: %w", err)
	}
	if debit.Valid {
		req.DebitTxID = &debit.UUID
	}
	if credit.Valid {
		req.CreditTxID = &credit.UUID
	}
	return req, nil
}

func (s *PostgresStore) CreateFundingRequest(ctx context.Context, req *models.FundingRequest) error {
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return fmt.Errorf("encode funding metadata: %w", err)
	}
	query := `
		INSERT INTO funding_requests (id, account_id, method, amount_micros, currency, reference, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = s.db.QueryRow(ctx, query,
		req.ID, req.AccountID, req.Method, req.AmountMicros, req.Currency, req.Reference, req.Status, metadata,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create funding request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFundingRequest(ctx context.Context, id uuid.UUID) (*models.FundingRequest, error) {
	req := &models.FundingRequest{}
	var credit uuid.NullUUID
	var metadata []byte
	query := `
		SELECT id, account_id, method, amount_micros, currency, reference, status, credit_tx_id, metadata, created_at, updated_at
		FROM funding_requests WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.AccountID, &req.Method, &req.AmountMicros, &req.Currency, &req.Reference,
		&req.Status, &credit, &metadata, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "funding request %s not found", id)
		}
		return nil, fmt.Errorf("get funding request: %w", err)
	}
	if credit.Valid {
		req.CreditTxID = &credit.UUID
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &req.Metadata); err != nil {
			return nil, fmt.Errorf("decode funding metadata: %w", err)
		}
	}
	return req, nil
}

func (s *PostgresStore) TransitionFundingStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE funding_requests SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition funding status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetFundingCreditTx(ctx context.Context, id uuid.UUID, txID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE funding_requests SET credit_tx_id = $1, updated_at = NOW() WHERE id = $2`, txID, id)
	if err != nil {
		return fmt.Errorf("set funding credit tx: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "funding request %s not found", id)
	}
	return nil
}

func (s *PostgresStore) CreatePayoutRequest(ctx context.Context, req *models.PayoutRequest) error {
	destination, err := json.Marshal(req.Destination)
	if err != nil {
		return fmt.Errorf("encode payout destination: %w", err)
	}
	query := `
		INSERT INTO payout_requests (id, account_id, method, amount_micros, currency, fee_micros, status, destination, debit_tx_id, gateway_ref, eta_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = s.db.QueryRow(ctx, query,
		req.ID, req.AccountID, req.Method, req.AmountMicros, req.Currency, req.FeeMicros,
		req.Status, destination, nullableUUID(req.DebitTxID), req.GatewayRef, req.ETADays,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create payout request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPayoutRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	query := `
		SELECT id, account_id, method, amount_micros, currency, fee_micros, status, destination, debit_tx_id, gateway_ref, eta_days, created_at, updated_at
		FROM payout_requests WHERE id = $1`
	req, err := scanPayout(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "payout request %s not found", id)
		}
		return nil, fmt.Errorf("get payout request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) TransitionPayoutStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payout_requests SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition payout status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetPayoutGatewayRef(ctx context.Context, id uuid.UUID, ref string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE payout_requests SET gateway_ref = $1, updated_at = NOW() WHERE id = $2`, ref, id)
	if err != nil {
		return fmt.Errorf("set payout gateway ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.E(domain.KindNotFound, "payout request %s not found", id)
	}
	return nil
}

// ClaimPendingPayouts atomically flips a batch of pending payouts to
// PROCESSING. SKIP LOCKED keeps concurrent worker instances from claiming
// the same rows.
func (s *PostgresStore) ClaimPendingPayouts(ctx context.Context, limit int) ([]models.PayoutRequest, error) {
	query := `
		WITH claimed AS (
			SELECT id FROM payout_requests
			WHERE status = $1
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		)
		UPDATE payout_requests p
		SET status = $3, updated_at = NOW()
		FROM claimed
		WHERE p.id = claimed.id
		RETURNING p.id, p.account_id, p.method, p.amount_micros, p.currency, p.fee_micros, p.status, p.destination, p.debit_tx_id, p.gateway_ref, p.eta_days, p.created_at, p.updated_at`
	rows, err := s.db.Query(ctx, query, domain.RequestStatusPending, limit, domain.RequestStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("claim pending payouts: %w", err)
	}
	defer rows.Close()

	var out []models.PayoutRequest
	for rows.Next() {
		req, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed payout: %w", err)
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindBalanceDrift(ctx context.Context) ([]BalanceDrift, error) {
	query := `
		SELECT a.id, a.currency, a.balance_micros, COALESCE(SUM(t.amount_micros), 0) AS tx_sum
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		GROUP BY a.id, a.currency, a.balance_micros
		HAVING a.balance_micros <> COALESCE(SUM(t.amount_micros), 0)`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find balance drift: %w", err)
	}
	defer rows.Close()

	var out []BalanceDrift
	for rows.Next() {
		var d BalanceDrift
		if err := rows.Scan(&d.AccountID, &d.Currency, &d.BalanceMicros, &d.TxSumMicros); err != nil {
			return nil, fmt.Errorf("scan balance drift: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayout(row rowScanner) (*models.PayoutRequest, error) {
	req := &models.PayoutRequest{}
	var destination []byte
	var debit uuid.NullUUID
	err := row.Scan(
		&req.ID, &req.AccountID, &req.Method, &req.AmountMicros, &req.Currency, &req.FeeMicros,
		&req.Status, &destination, &debit, &req.GatewayRef, &req.ETADays, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if debit.Valid {
		req.DebitTxID = &debit.UUID
	}
	if len(destination) > 0 {
		if err := json.Unmarshal(destination, &req.Destination); err != nil {
			return nil, fmt.Errorf("decode payout destination: %w", err)
		}
	}
	return req, nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
