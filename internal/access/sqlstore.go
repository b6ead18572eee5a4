package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// Connector hands out scoped database connections. Closing the returned
// connection releases it back to the pool.
type Connector interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
}

// SQLStore implements Store over the configured SQL backend. The statements
// use $N placeholders, which both the pgx and sqlite3 drivers accept, so the
// same store serves the networked and the embedded backend.
type SQLStore struct {
	conns Connector
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(conns Connector) *SQLStore {
	return &SQLStore{conns: conns}
}

func (s *SQLStore) FindUser(ctx context.Context, id string) (*User, error) {
	conn, err := s.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	row := conn.QueryRowContext(ctx,
		`select id, name, role, email, credential_hash from users where id = $1`, id)
	return scanUser(row)
}

func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	conn, err := s.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	row := conn.QueryRowContext(ctx,
		`select id, name, role, email, credential_hash from users where email = $1`, email)
	return scanUser(row)
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]*User, error) {
	conn, err := s.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`select id, name, role, email, credential_hash from users order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.Email, &u.CredentialHash); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *SQLStore) UpdatePassword(ctx context.Context, userID, credentialHash string) error {
	conn, err := s.conns.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx,
		`update users set credential_hash = $1 where id = $2`, credentialHash, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Grants(ctx context.Context, userID string) (GrantSet, error) {
	conn, err := s.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `
		select resource_name, can_select, can_insert, can_update, can_delete
		from permission_grants where user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := GrantSet{}
	for rows.Next() {
		var (
			resource string
			g        Grant
		)
		if err := rows.Scan(&resource, &g.CanSelect, &g.CanInsert, &g.CanUpdate, &g.CanDelete); err != nil {
			return nil, err
		}
		grants[resource] = g
	}
	return grants, rows.Err()
}

// ReplaceGrants runs the delete-then-insert swap in one transaction so a
// concurrent reader never observes a partial set. Two concurrent replaces
// for the same user race at the storage layer; the last commit wins.
func (s *SQLStore) ReplaceGrants(ctx context.Context, userID string, grants GrantSet) error {
	conn, err := s.conns.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `select 1 from users where id = $1`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`delete from permission_grants where user_id = $1`, userID); err != nil {
		return err
	}

	for _, resource := range sortedResources(grants) {
		g := grants[resource]
		if _, err := tx.ExecContext(ctx, `
			insert into permission_grants
			(user_id, resource_name, can_select, can_insert, can_update, can_delete)
			values ($1, $2, $3, $4, $5, $6)
		`, userID, resource, g.CanSelect, g.CanInsert, g.CanUpdate, g.CanDelete); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func sortedResources(grants GrantSet) []string {
	names := make([]string, 0, len(grants))
	for name := range grants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Role, &u.Email, &u.CredentialHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
