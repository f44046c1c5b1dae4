package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/repository"
)

var _ repository.CreditPackageRepository = (*packageRepo)(nil)

type packageRepo struct{ pool *pgxpool.Pool }

func NewCreditPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.CreditPackage) error {
	const q = `
INSERT INTO credit_packages (id, name, credits, price, currency, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  name=$2, credits=$3, price=$4, currency=$5, active=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, pkg.ID, pkg.Name, pkg.Credits, pkg.PriceMinorUnits, pkg.Currency, pkg.Active, pkg.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CreditPackage, error) {
	const q = `SELECT id, name, credits, price, currency, active, created_at FROM credit_packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	pkg := &model.CreditPackage{}
	if err := row.Scan(&pkg.ID, &pkg.Name, &pkg.Credits, &pkg.PriceMinorUnits, &pkg.Currency, &pkg.Active, &pkg.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return pkg, nil
}

func (r *packageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.CreditPackage, error) {
	const q = `SELECT id, name, credits, price, currency, active, created_at FROM credit_packages WHERE active ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CreditPackage
	for rows.Next() {
		pkg := &model.CreditPackage{}
		if err := rows.Scan(&pkg.ID, &pkg.Name, &pkg.Credits, &pkg.PriceMinorUnits, &pkg.Currency, &pkg.Active, &pkg.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, pkg)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
