package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"skillstreak/address"
	"skillstreak/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx
type queryable interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// signed converts a domain amount to the BIGINT column type
func signed(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds column range: %w", v, service.ErrBalanceOverflow)
	}
	return int64(v), nil
}

func nullableAddress(a *address.Address) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

func parseNullableAddress(s *string) (*address.Address, error) {
	if s == nil {
		return nil, nil
	}
	a, err := address.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
