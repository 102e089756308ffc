// Package errors maps failures to the bounded set of classes used as metric labels.
package errors

import (
	"context"
	goerrors "errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
)

// Classes outside the AppError codes.
const (
	ClassPostgres = "postgres"
	ClassRedis    = "redis"
	ClassNetwork  = "network"
	ClassOther    = "other"
)

// Classify returns "" for nil, the AppError code when there is one, and otherwise
// a coarse class for the store or layer that failed. The result is always one of a
// small fixed set so it is safe as a label value.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case apperrors.GetCode(err) != "":
		return string(apperrors.GetCode(err))
	case goerrors.Is(err, context.DeadlineExceeded):
		return string(apperrors.ErrCodeTimeout)
	case goerrors.Is(err, context.Canceled):
		return string(apperrors.ErrCodeCanceled)
	case goerrors.Is(err, redis.Nil):
		return string(apperrors.ErrCodeNotFound)
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return ClassPostgres
	}
	var redisErr redis.Error
	if goerrors.As(err, &redisErr) {
		return ClassRedis
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		return ClassNetwork
	}
	return ClassOther
}
