package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tunelease/server/internal/domain"
)

// PostgresLedgerStore backs LedgerStore with the append-only
// music_play_records and reward_ledger_entries tables.
type PostgresLedgerStore struct {
	db *pgxpool.Pool
}

// NewPostgresLedgerStore creates a postgres-backed ledger store.
func NewPostgresLedgerStore(db *pgxpool.Pool) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

// RecordPlay inserts the play record and its ledger entry (when present)
// in one transaction.
func (s *PostgresLedgerStore) RecordPlay(ctx context.Context, record *domain.MusicPlayRecord, entry *domain.RewardLedgerEntry) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if entry != nil {
		if err := entry.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin record play tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO music_play_records
			(id, music_id, company_id, is_valid_play, play_duration_sec,
			 use_case, reward_code, reward_amount, use_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		record.ID,
		record.MusicID,
		record.CompanyID,
		record.IsValidPlay,
		record.PlayDurationSec,
		string(record.UseCase),
		string(record.RewardCode),
		record.RewardAmount,
		record.UsePrice,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert play record: %w", err)
	}

	if entry != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO reward_ledger_entries
				(id, company_id, music_id, play_id, amount, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			entry.ID,
			entry.CompanyID,
			entry.MusicID,
			entry.PlayID,
			entry.Amount,
			string(entry.Status),
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record play tx: %w", err)
	}
	return nil
}

// GetPlay returns a play record by id.
func (s *PostgresLedgerStore) GetPlay(ctx context.Context, id string) (*domain.MusicPlayRecord, error) {
	query := `
		SELECT id, music_id, company_id, is_valid_play, play_duration_sec,
		       use_case, reward_code, reward_amount, use_price, created_at
		FROM music_play_records
		WHERE id = $1
	`
	var r domain.MusicPlayRecord
	err := s.db.QueryRow(ctx, query, id).Scan(
		&r.ID,
		&r.MusicID,
		&r.CompanyID,
		&r.IsValidPlay,
		&r.PlayDurationSec,
		&r.UseCase,
		&r.RewardCode,
		&r.RewardAmount,
		&r.UsePrice,
		&r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get play record: %w", err)
	}
	return &r, nil
}

// EntryByPlay returns the ledger entry referencing a play record.
func (s *PostgresLedgerStore) EntryByPlay(ctx context.Context, playID string) (*domain.RewardLedgerEntry, error) {
	query := `
		SELECT id, company_id, music_id, play_id, amount, status, created_at
		FROM reward_ledger_entries
		WHERE play_id = $1
	`
	var e domain.RewardLedgerEntry
	err := s.db.QueryRow(ctx, query, playID).Scan(
		&e.ID,
		&e.CompanyID,
		&e.MusicID,
		&e.PlayID,
		&e.Amount,
		&e.Status,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLedgerEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}
