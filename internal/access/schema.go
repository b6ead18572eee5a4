package access

import (
	"context"
	"database/sql"
	"fmt"
)

// The canonical schema: users carry the credential hash, grants use the
// composite primary key. Statements are accepted verbatim by PostgreSQL
// and SQLite so the embedded fallback can self-provision.
var schemaStatements = []string{
	`create table if not exists users (
		id text primary key,
		name text not null,
		role text not null,
		email text unique not null,
		credential_hash text not null
	)`,
	`create table if not exists permission_grants (
		user_id text not null,
		resource_name text not null,
		can_select boolean not null default false,
		can_insert boolean not null default false,
		can_update boolean not null default false,
		can_delete boolean not null default false,
		primary key (user_id, resource_name)
	)`,
}

type seedUser struct {
	ID    string
	Name  string
	Role  string
	Email string
}

var seedUsers = []seedUser{
	{ID: "usr_001", Name: "Dave Bowman", Role: "Data Editor", Email: "d.bowman@discovery.co"},
	{ID: "usr_002", Name: "Frank Poole", Role: "Data Viewer", Email: "f.poole@discovery.co"},
	{ID: "usr_003", Name: "Admin User", Role: "Tenant Admin", Email: "admin@discovery.co"},
	{ID: "usr_004", Name: "System Architect", Role: "System Admin", Email: "sysarch@system.co"},
}

var seedGrants = map[string]GrantSet{
	"usr_001": {
		"crew_vitals_log":       {CanSelect: true, CanInsert: true, CanUpdate: true},
		"pod_bay_doors_status":  {CanSelect: true, CanInsert: true, CanUpdate: true},
		"discovery_one_systems": {CanSelect: true},
	},
	"usr_002": {
		"crew_vitals_log":       {CanSelect: true},
		"discovery_one_systems": {CanSelect: true},
	},
	"usr_003": {
		"crew_vitals_log":       {CanSelect: true, CanInsert: true, CanUpdate: true, CanDelete: true},
		"pod_bay_doors_status":  {CanSelect: true, CanInsert: true, CanUpdate: true, CanDelete: true},
		"discovery_one_systems": {CanSelect: true, CanInsert: true, CanUpdate: true, CanDelete: true},
	},
}

// EnsureSchema creates the users and permission_grants tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SeedIfEmpty populates an empty users table with the initial crew roster
// and its grants. Every seeded user gets the same bootstrap credential
// hash; operators rotate those on first login. Returns true when rows were
// written.
func SeedIfEmpty(ctx context.Context, db *sql.DB, credentialHash string) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, `select count(*) from users`).Scan(&count); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range seedUsers {
		if _, err := tx.ExecContext(ctx, `
			insert into users (id, name, role, email, credential_hash)
			values ($1, $2, $3, $4, $5)
		`, u.ID, u.Name, u.Role, u.Email, credentialHash); err != nil {
			return false, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for userID, grants := range seedGrants {
		for _, resource := range sortedResources(grants) {
			g := grants[resource]
			if _, err := tx.ExecContext(ctx, `
				insert into permission_grants
				(user_id, resource_name, can_select, can_insert, can_update, can_delete)
				values ($1, $2, $3, $4, $5, $6)
			`, userID, resource, g.CanSelect, g.CanInsert, g.CanUpdate, g.CanDelete); err != nil {
				return false, fmt.Errorf("seed grants for %s: %w", userID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
