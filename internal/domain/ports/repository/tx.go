package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. The concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must gracefully accept nil and fall
// back to their non-transactional path.
type Tx interface{}

// TransactionManager executes a function inside a database transaction,
// passing the tx handle through so repositories can pin their statements
// to it. Keeping the interface this small stops transaction types from
// leaking into use cases.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
