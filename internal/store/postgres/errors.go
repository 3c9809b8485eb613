package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/jokko/internal/store"
)

// constraint name -> sentinel for unique violations the services care about
var uniqueConstraints = map[string]error{
	"users_email_key":                 store.ErrUserAlreadyExists,
	"accounts_provider_account_key":   store.ErrUserAlreadyExists,
	"organizations_slug_key":          store.ErrSlugTaken,
	"memberships_user_org_key":        store.ErrMembershipExists,
	"password_reset_tokens_token_key": store.ErrTokenExists,
}

// foreign key constraint name -> sentinel for inserts that reference a missing parent
var foreignKeyConstraints = map[string]error{
	"messages_conversation_id_fkey":    store.ErrConversationNotFound,
	"memberships_organization_id_fkey": store.ErrOrganizationNotFound,
	"memberships_user_id_fkey":         store.ErrUserNotFound,
}

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if sentinel, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
			return sentinel
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		if sentinel, ok := foreignKeyConstraints[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", sentinel, pgErr.Detail)
		}
		return fmt.Errorf("foreign key violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("database resource limit: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}
