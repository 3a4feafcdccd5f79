package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/clientbill/pkg/apperr"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

var (
	ErrNotFound      = apperr.NotFound("Organização não encontrada")
	ErrNameRequired  = apperr.Invalid("Nome da organização é obrigatório")
	ErrInvalidSlug   = apperr.Invalid("Slug inválido")
	ErrSlugTaken     = apperr.Conflict("Slug já está em uso")
	ErrInvalidStatus = apperr.Invalid("Status de organização inválido")
)

const orgColumns = `id, name, slug, display_name, status, settings, created_at, updated_at`

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateOrganization creates a new active organization
func (s *PostgresService) CreateOrganization(ctx context.Context, req *CreateOrgRequest) (*Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	slug := req.Slug
	if slug == "" {
		slug = generateSlug(name)
	}
	if slug == "" || slug != generateSlug(slug) {
		return nil, ErrInvalidSlug
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = name
	}

	settings := req.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}

	org := &Organization{
		Name:        name,
		Slug:        slug,
		DisplayName: displayName,
		Status:      OrgStatusActive,
		Settings:    settings,
	}

	query := `
		INSERT INTO organizations (name, slug, display_name, status, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query, org.Name, org.Slug, org.DisplayName, org.Status, settingsJSON).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrganization(s.db.QueryRowContext(ctx, query, id))
}

// GetOrganizationBySlug retrieves an organization by slug
func (s *PostgresService) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`
	return scanOrganization(s.db.QueryRowContext(ctx, query, slug))
}

// ListOrganizations lists organizations, optionally filtered by status
func (s *PostgresService) ListOrganizations(ctx context.Context, status OrgStatus) ([]*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}

	return orgs, nil
}

// UpdateOrganization applies the non-nil fields of req and returns the updated organization
func (s *PostgresService) UpdateOrganization(ctx context.Context, id int64, req *UpdateOrgRequest) (*Organization, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if req.DisplayName != nil {
		setClauses = append(setClauses, fmt.Sprintf("display_name = $%d", argPos))
		args = append(args, *req.DisplayName)
		argPos++
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.Settings != nil {
		settingsJSON, err := json.Marshal(req.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("settings = $%d", argPos))
		args = append(args, settingsJSON)
		argPos++
	}

	if len(setClauses) == 0 {
		return s.GetOrganization(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE organizations SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argPos, orgColumns)

	return scanOrganization(s.db.QueryRowContext(ctx, query, args...))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrganization(row rowScanner) (*Organization, error) {
	org := &Organization{}
	var settingsJSON []byte
	err := row.Scan(
		&org.ID, &org.Name, &org.Slug, &org.DisplayName, &org.Status,
		&settingsJSON, &org.CreatedAt, &org.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &org.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	return org, nil
}

// generateSlug lowercases name, turns spaces into dashes and drops anything else
func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
	return slug
}
