package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudaline/dispatch-service/internal/domain"
)

type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(p *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: p}
}

func (r *WalletRepository) Balance(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance_cents FROM wallets WHERE owner_id = $1`, ownerID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: wallet for %s", domain.ErrNotFound, ownerID)
		}
		return 0, err
	}
	return balance, nil
}
