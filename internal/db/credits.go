package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeductCredits atomically takes amount credits from a user and returns the
// new balance. It returns ErrInsufficientCredits when the balance is too low
// and ErrNotFound when the user does not exist. analysisID may be nil.
func (db *DB) DeductCredits(ctx context.Context, userID uuid.UUID, amount int, reason string, analysisID *uuid.UUID) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("deduct amount must be positive, got %d", amount)
	}

	var balance int
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE users SET credits = credits - $2, updated_at = NOW()
			 WHERE id = $1 AND credits >= $2
			 RETURNING credits`,
			userID, amount,
		).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrInsufficientCredits
		}
		if err != nil {
			return err
		}
		return insertTransaction(ctx, tx, userID, -amount, balance, reason, analysisID)
	})
	if errors.Is(err, ErrInsufficientCredits) || errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct credits: %w", err)
	}
	return balance, nil
}

// AddCredits grants or refunds credits and returns the new balance.
func (db *DB) AddCredits(ctx context.Context, userID uuid.UUID, amount int, reason string, analysisID *uuid.UUID) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	var balance int
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE users SET credits = credits + $2, updated_at = NOW() WHERE id = $1 RETURNING credits`,
			userID, amount,
		).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return insertTransaction(ctx, tx, userID, amount, balance, reason, analysisID)
	})
	if errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add credits: %w", err)
	}
	return balance, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount, balance int, reason string, analysisID *uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO credit_transactions (user_id, amount, balance_after, reason, analysis_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, amount, balance, reason, analysisID)
	return err
}

// ListCreditTransactions returns a user's most recent credit changes first.
func (db *DB) ListCreditTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, amount, balance_after, reason, analysis_id, created_at
		 FROM credit_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	defer rows.Close()

	txns := []CreditTransaction{}
	for rows.Next() {
		var t CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.BalanceAfter, &t.Reason, &t.AnalysisID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
