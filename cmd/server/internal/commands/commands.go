package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/store"
	memorystore "github.com/wolfeidau/jokko/internal/store/memory"
	postgresstore "github.com/wolfeidau/jokko/internal/store/postgres"
	"github.com/wolfeidau/jokko/internal/util"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		// the event stream is long lived, so no write timeout
		IdleTimeout:    5 * time.Minute,
		MaxHeaderBytes: 8 * 1024, // 8KiB
	}
}

type StoreFlags struct {
	StoreType string             `help:"store type (memory or postgres)" default:"memory" env:"JOKKO_STORE_TYPE" enum:"memory,postgres"`
	Postgres  PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"DATABASE_URL"`

	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"JOKKO_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or DATABASE_URL)")
	}
	if s.MinConns > s.MaxConns {
		return fmt.Errorf("min conns (%d) exceeds max conns (%d)", s.MinConns, s.MaxConns)
	}
	return nil
}

// AWSFlags are the credentials and endpoint of one AWS service client. Empty keys
// fall back to the default credential chain.
type AWSFlags struct {
	Region          string `help:"AWS region" env:"REGION"`
	AccessKeyID     string `help:"AWS access key ID" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `help:"AWS secret access key" env:"SECRET_ACCESS_KEY"`
	EndpointURL     string `help:"endpoint URL override (for LocalStack or MinIO)" env:"ENDPOINT_URL"`
}

func (a AWSFlags) Options() util.AWSOptions {
	return util.AWSOptions{Region: a.Region, AccessKeyID: a.AccessKeyID, SecretAccessKey: a.SecretAccessKey}
}

type stores struct {
	users         store.UserStore
	sessions      store.SessionStore
	resets        store.PasswordResetStore
	organizations store.OrganizationStore
	conversations store.ConversationStore

	ping  func(ctx context.Context) error
	close func()
}

// openStores builds the stores selected by flags. Callers must call close.
func openStores(ctx context.Context, flags StoreFlags, migrate bool) (*stores, error) {
	switch flags.StoreType {
	case "postgres":
		if err := flags.Postgres.Validate(); err != nil {
			return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      flags.Postgres.ConnString,
			MaxConns:        flags.Postgres.MaxConns,
			MinConns:        flags.Postgres.MinConns,
			MaxConnLifetime: flags.Postgres.MaxConnLifetime,
			MaxConnIdleTime: flags.Postgres.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}

		if migrate || flags.Postgres.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		log.Info().Msg("Using PostgreSQL stores")

		return &stores{
			users:         postgresstore.NewUserStore(pool),
			sessions:      postgresstore.NewSessionStore(pool),
			resets:        postgresstore.NewPasswordResetStore(pool),
			organizations: postgresstore.NewOrganizationStore(pool),
			conversations: postgresstore.NewConversationStore(pool),
			ping:          pool.Ping,
			close:         pool.Close,
		}, nil

	default:
		log.Info().Msg("Using in-memory stores")

		users := memorystore.NewUserStore()
		return &stores{
			users:         users,
			sessions:      memorystore.NewSessionStore(),
			resets:        memorystore.NewPasswordResetStore(users),
			organizations: memorystore.NewOrganizationStore(),
			conversations: memorystore.NewConversationStore(),
			ping:          func(context.Context) error { return nil },
			close:         func() {},
		}, nil
	}
}
