package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/jokko/internal/models"
	"github.com/wolfeidau/jokko/internal/store"
)

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{
		pool: pool,
	}
}

// CreateWithOwner inserts the organization and its OWNER membership in one transaction.
func (s *OrganizationStore) CreateWithOwner(ctx context.Context, org *models.Organization, owner *models.Membership) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO organizations (id, name, slug, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, org.ID, org.Name, org.Slug, org.Description, org.CreatedAt, org.UpdatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO memberships (id, user_id, organization_id, role, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, owner.ID, owner.UserID, owner.OrganizationID, owner.Role, owner.CreatedAt)
		return err
	})
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrSlugTaken) {
			return mapped
		}
		return fmt.Errorf("failed to create organization: %w", mapped)
	}

	log.Debug().
		Str("org_id", org.ID.String()).
		Str("slug", org.Slug).
		Str("owner_id", owner.UserID.String()).
		Msg("Created organization")

	return nil
}

const organizationColumns = `id, name, slug, description, created_at, updated_at`

func (s *OrganizationStore) get(ctx context.Context, where string, arg any) (*models.Organization, error) {
	var org models.Organization
	err := s.pool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE `+where, arg).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.Description,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	return s.get(ctx, "id = $1", orgID)
}

func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return s.get(ctx, "slug = $1", slug)
}

func (s *OrganizationStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// ListByUser joins memberships to organizations in membership creation order.
func (s *OrganizationStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.OrganizationMembership, error) {
	query := `
		SELECT o.id, o.name, o.slug, m.role
		FROM memberships m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY m.created_at, m.id
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var result []*models.OrganizationMembership
	for rows.Next() {
		var om models.OrganizationMembership
		if err := rows.Scan(&om.ID, &om.Name, &om.Slug, &om.Role); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		result = append(result, &om)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return result, nil
}

func (s *OrganizationStore) AddMember(ctx context.Context, membership *models.Membership) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memberships (id, user_id, organization_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, membership.ID, membership.UserID, membership.OrganizationID, membership.Role, membership.CreatedAt)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrMembershipExists) || errors.Is(mapped, store.ErrOrganizationNotFound) {
			return mapped
		}
		return fmt.Errorf("failed to add member: %w", mapped)
	}
	return nil
}

func (s *OrganizationStore) RemoveMemberships(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `DELETE FROM memberships WHERE user_id = $1 RETURNING organization_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove memberships: %w", err)
	}

	orgIDs, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to collect removed memberships: %w", err)
	}

	return orgIDs, nil
}

func (s *OrganizationStore) CountMembers(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM memberships WHERE organization_id = $1`, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// Delete deletes an organization by ID. Memberships are removed by FK cascade.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Info().
		Str("org_id", orgID.String()).
		Msg("Deleted organization")

	return nil
}
