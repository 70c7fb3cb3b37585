package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"strings"
	"time"
)

// Role mirrors the 'roles' table.  PermissionIDs is the legacy embedded
// permission list kept as a JSON column; newer grants live in the
// role_permissions join table.  Both representations stay authoritative at
// read time (see EffectivePermissions).
type Role struct {
	ID            uint64
	Name          string
	RoleType      string // "employee" | "manager"
	Level         string // "low" | "medium" | "high"
	IsActive      bool
	PermissionIDs []uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RoleAssignment is one user_roles row joined with its role, as returned by
// FindUserWithRoles.
type RoleAssignment struct {
	RoleID   uint64
	Name     string
	RoleType string
	Level    string
	IsActive bool
}

// UserWithRoles attaches the active role assignments to a user record.
type UserWithRoles struct {
	User
	Roles []RoleAssignment
}

type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

func scanRole(row interface{ Scan(...any) error }) (Role, error) {
	var (
		r       Role
		rawPerm sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &r.RoleType, &r.Level, &r.IsActive, &rawPerm, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if rawPerm.Valid && rawPerm.String != "" {
		if err := json.Unmarshal([]byte(rawPerm.String), &r.PermissionIDs); err != nil {
			// Legacy column may hold garbage from early snapshots; treat as empty.
			r.PermissionIDs = nil
		}
	}
	return r, nil
}

// Create inserts a role.  Duplicate names are rejected with ErrConflict.
func (r *RoleRepo) Create(ctx context.Context, name, roleType, level string) (uint64, error) {
	name = strings.TrimSpace(name)
	if roleType == "" {
		roleType = "employee"
	}
	if level == "" {
		level = "low"
	}
	var exists uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM roles WHERE name=? LIMIT 1", name).Scan(&exists)
	if err == nil {
		return 0, ErrConflict
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name, role_type, level) VALUES (?,?,?)",
		name, roleType, level)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a role by id.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (Role, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT id,name,role_type,level,is_active,permission_ids,created_at,updated_at FROM roles WHERE id=? LIMIT 1",
		id)
	role, err := scanRole(row)
	if err == sql.ErrNoRows {
		return role, ErrNotFound
	}
	return role, err
}

// List returns all roles.
func (r *RoleRepo) List(ctx context.Context) ([]Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,role_type,level,is_active,permission_ids,created_at,updated_at FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// Update renames a role and adjusts its tags.
func (r *RoleRepo) Update(ctx context.Context, id uint64, name, roleType, level string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, role_type=?, level=? WHERE id=?",
		strings.TrimSpace(name), roleType, level, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the role row first, then best-effort deletes the join rows
// referencing it.  The role delete leads because it is the authoritative
// existence check; join cleanup failures are logged, not returned, so the
// role can never end up half-deleted behind a later error.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", id); err != nil {
		log.Printf("roles: cascade delete role_permissions for role %d failed: %v", id, err)
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE role_id=?", id); err != nil {
		log.Printf("roles: cascade delete user_roles for role %d failed: %v", id, err)
	}
	return nil
}

// AssignToUser makes roleID the user's single active role.  It always
// deactivates every active user_roles row for the user first, even when the
// target assignment already exists and is active, so a prior inconsistent
// multi-active state is corrected on every assignment.  A matching inactive
// row is reactivated instead of inserting a duplicate.
func (r *RoleRepo) AssignToUser(ctx context.Context, userID, roleID uint64) error {
	if _, err := r.GetByID(ctx, roleID); err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE user_roles SET is_active=0 WHERE user_id=? AND is_active=1", userID); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_roles SET is_active=1 WHERE user_id=? AND role_id=?", userID, roleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id, is_active) VALUES (?,?,1)", userID, roleID)
	return err
}

// FindUserWithRoles joins a user to its active role assignments.  This is
// the auth-check read path: the middleware attaches the result to the
// request as the authenticated principal.
func (r *RoleRepo) FindUserWithRoles(ctx context.Context, userID uint64) (UserWithRoles, error) {
	var u UserWithRoles
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,staff_id,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		userID).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.StaffID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ur.role_id, r.name, r.role_type, r.level, ur.is_active
		 FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id=? AND ur.is_active=1`, userID)
	if err != nil {
		return u, err
	}
	defer rows.Close()
	for rows.Next() {
		var a RoleAssignment
		if err := rows.Scan(&a.RoleID, &a.Name, &a.RoleType, &a.Level, &a.IsActive); err != nil {
			return u, err
		}
		u.Roles = append(u.Roles, a)
	}
	return u, rows.Err()
}

// EffectivePermissions resolves a role to its effective permission names by
// merging the two storage representations: the legacy permission_ids list
// embedded on the role row and the active role_permissions join rows.
// Neither source alone is authoritative; dropping either would silently
// revoke grants that only exist in the other.  The union is deduplicated,
// embedded-list entries first.  A missing role yields an empty set.
func (r *RoleRepo) EffectivePermissions(ctx context.Context, roleID uint64) ([]string, error) {
	role, err := r.GetByID(ctx, roleID)
	if err == ErrNotFound {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	names := []string{}

	for _, pid := range role.PermissionIDs {
		var name string
		err := r.DB.QueryRowContext(ctx,
			"SELECT name FROM permissions WHERE id=? AND is_active=1 LIMIT 1", pid).Scan(&name)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.name
		 FROM role_permissions rp
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id=? AND rp.is_active=1 AND p.is_active=1
		 ORDER BY rp.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, rows.Err()
}
