package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexops/notify/internal/domain"
)

// DirectoryRepository is a narrow read-only view over the tenant's user
// directory. Recipient selection (admins, a role, the user linked to a
// client record) and the preference resolver's role lookup go through it.
type DirectoryRepository interface {
	FindUser(ctx context.Context, tenantID, userID string) (*domain.User, error)
	FindAdmins(ctx context.Context, tenantID string) ([]*domain.User, error)
	FindByRole(ctx context.Context, tenantID, role string) ([]*domain.User, error)

	// FindClientUser resolves the portal user linked to a client record,
	// if one exists. ErrNotFound when the client has no login.
	FindClientUser(ctx context.Context, tenantID, clientID string) (*domain.User, error)
}

type pgDirectoryRepository struct {
	pool *pgxpool.Pool
}

func NewPgDirectoryRepository(pool *pgxpool.Pool) DirectoryRepository {
	return &pgDirectoryRepository{pool: pool}
}

const userColumns = `id, role, name, email, active`

func (r *pgDirectoryRepository) FindUser(ctx context.Context, tenantID, userID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, userID)
	return scanUser(row)
}

func (r *pgDirectoryRepository) FindAdmins(ctx context.Context, tenantID string) ([]*domain.User, error) {
	return r.findWhere(ctx,
		`tenant_id = $1 AND role = 'ADMIN' AND active`, tenantID)
}

func (r *pgDirectoryRepository) FindByRole(ctx context.Context, tenantID, role string) ([]*domain.User, error) {
	return r.findWhere(ctx,
		`tenant_id = $1 AND role = $2 AND active`, tenantID, role)
}

func (r *pgDirectoryRepository) FindClientUser(ctx context.Context, tenantID, clientID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.role, u.name, u.email, u.active
		FROM users u
		JOIN clientes c ON c.user_id = u.id AND c.tenant_id = u.tenant_id
		WHERE c.tenant_id = $1 AND c.id = $2 AND u.active`, tenantID, clientID)
	return scanUser(row)
}

func (r *pgDirectoryRepository) findWhere(ctx context.Context, where string, args ...any) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
