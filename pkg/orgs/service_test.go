package orgs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orgRowColumns = []string{"id", "name", "slug", "display_name", "status", "settings", "created_at", "updated_at"}

func newTestService(t *testing.T) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresService(db), mock
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"MyOrg", "myorg"},
		{"My Organization", "my-organization"},
		{"My-Org-123", "my-org-123"},
		{"My@Org!", "myorg"},
		{"  Padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, generateSlug(tt.input))
		})
	}
}

func TestCreateOrganization(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO organizations").
		WithArgs("Estúdio Norte", "estdio-norte", "Estúdio Norte", OrgStatusActive, []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	org, err := svc.CreateOrganization(context.Background(), &CreateOrgRequest{Name: "Estúdio Norte"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), org.ID)
	assert.Equal(t, "estdio-norte", org.Slug)
	assert.True(t, org.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrganization_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateOrganization(context.Background(), &CreateOrgRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.CreateOrganization(context.Background(), &CreateOrgRequest{Name: "Acme", Slug: "Bad Slug"})
	assert.ErrorIs(t, err, ErrInvalidSlug)
}

func TestCreateOrganization_SlugTaken(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("INSERT INTO organizations").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := svc.CreateOrganization(context.Background(), &CreateOrgRequest{Name: "Acme"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestGetOrganization(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM organizations WHERE id = \\$1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(orgRowColumns).
			AddRow(3, "Acme", "acme", "Acme Ltda", "suspended", []byte(`{"notify_whatsapp":true}`), now, now))

	org, err := svc.GetOrganization(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltda", org.DisplayName)
	assert.False(t, org.IsActive())
	assert.Equal(t, true, org.Settings["notify_whatsapp"])
}

func TestGetOrganization_NotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM organizations").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetOrganization(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrganizations_ByStatus(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM organizations WHERE status = \\$1 ORDER BY id").
		WithArgs(OrgStatusActive).
		WillReturnRows(sqlmock.NewRows(orgRowColumns).
			AddRow(1, "A", "a", "A", "active", []byte(`{}`), now, now).
			AddRow(2, "B", "b", "B", "active", []byte(`{}`), now, now))

	orgs, err := svc.ListOrganizations(context.Background(), OrgStatusActive)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrganizations_QueryError(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM organizations ORDER BY id").
		WillReturnError(errors.New("connection reset"))

	_, err := svc.ListOrganizations(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list organizations")
}

func TestUpdateOrganization(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()
	suspended := OrgStatusSuspended
	name := "Acme SA"

	mock.ExpectQuery("UPDATE organizations SET display_name = \\$1, status = \\$2, updated_at = NOW\\(\\) WHERE id = \\$3").
		WithArgs(name, suspended, int64(1)).
		WillReturnRows(sqlmock.NewRows(orgRowColumns).
			AddRow(1, "Acme", "acme", name, "suspended", []byte(`{}`), now, now))

	org, err := svc.UpdateOrganization(context.Background(), 1, &UpdateOrgRequest{DisplayName: &name, Status: &suspended})
	require.NoError(t, err)
	assert.Equal(t, OrgStatusSuspended, org.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrganization_InvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)
	bogus := OrgStatus("deleted")

	_, err := svc.UpdateOrganization(context.Background(), 1, &UpdateOrgRequest{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
