package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Permission mirrors the 'permissions' table: a (module, name) capability
// with a soft-active flag.  (module, name) uniqueness is advisory and
// enforced here at the service layer, not by the store.
type Permission struct {
	ID        uint64
	Module    string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RolePermissionRow is one role_permissions join row.  Rows are deactivated
// on revocation rather than deleted so the grant history survives.
type RolePermissionRow struct {
	ID           uint64
	RoleID       uint64
	PermissionID uint64
	IsActive     bool
}

type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

// Create inserts a permission.  An existing (module, name) pair is rejected
// with ErrConflict.
func (r *PermissionRepo) Create(ctx context.Context, module, name string) (uint64, error) {
	module = strings.TrimSpace(module)
	name = strings.TrimSpace(name)
	if _, err := r.FindByModuleName(ctx, module, name); err == nil {
		return 0, ErrConflict
	} else if err != ErrNotFound {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO permissions (module, name) VALUES (?,?)", module, name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByModuleName looks a permission up by its (module, name) pair.
func (r *PermissionRepo) FindByModuleName(ctx context.Context, module, name string) (Permission, error) {
	var p Permission
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,module,name,is_active,created_at,updated_at FROM permissions WHERE module=? AND name=? LIMIT 1",
		module, name).Scan(&p.ID, &p.Module, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// List returns all permissions.
func (r *PermissionRepo) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,module,name,is_active,created_at,updated_at FROM permissions ORDER BY module, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Module, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddToRole grants a (module, name) permission to a role.  An already-active
// link is ErrConflict; an inactive historical row is reactivated instead of
// inserting a duplicate.
func (r *PermissionRepo) AddToRole(ctx context.Context, roleID uint64, module, name string) error {
	var roleExists uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM roles WHERE id=? LIMIT 1", roleID).Scan(&roleExists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	perm, err := r.FindByModuleName(ctx, module, name)
	if err != nil {
		return err
	}

	var linkID uint64
	var linkActive bool
	err = r.DB.QueryRowContext(ctx,
		"SELECT id, is_active FROM role_permissions WHERE role_id=? AND permission_id=? ORDER BY id LIMIT 1",
		roleID, perm.ID).Scan(&linkID, &linkActive)
	switch {
	case err == sql.ErrNoRows:
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO role_permissions (role_id, permission_id, is_active) VALUES (?,?,1)",
			roleID, perm.ID)
		return err
	case err != nil:
		return err
	case linkActive:
		return ErrConflict
	default:
		_, err = r.DB.ExecContext(ctx,
			"UPDATE role_permissions SET is_active=1 WHERE id=?", linkID)
		return err
	}
}

// RemoveFromRole deactivates the matching join row.  No matching active row
// is a no-op.
func (r *PermissionRepo) RemoveFromRole(ctx context.Context, roleID, permissionID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE role_permissions SET is_active=0 WHERE role_id=? AND permission_id=? AND is_active=1",
		roleID, permissionID)
	return err
}

// CleanupDuplicates deactivates all but one active join row per permission
// for the role.  Concurrent grants can race a duplicate row into existence;
// repeated cleanup passes converge on the same state because the survivor is
// always the lowest-id row.  Runs standalone for batch maintenance and after
// every bulk permission-set update.
func (r *PermissionRepo) CleanupDuplicates(ctx context.Context, roleID uint64) error {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, permission_id FROM role_permissions WHERE role_id=? AND is_active=1 ORDER BY permission_id, id",
		roleID)
	if err != nil {
		return err
	}
	keep := make(map[uint64]bool)
	var extras []uint64
	for rows.Next() {
		var id, pid uint64
		if err := rows.Scan(&id, &pid); err != nil {
			rows.Close()
			return err
		}
		if keep[pid] {
			extras = append(extras, id)
		} else {
			keep[pid] = true
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range extras {
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE role_permissions SET is_active=0 WHERE id=?", id); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRolePermissions swaps a role's join-table grants for the given
// permission ids: everything active is deactivated, each requested id is
// reactivated or inserted, then a cleanup pass dedupes whatever concurrent
// writers may have produced.
func (r *PermissionRepo) ReplaceRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) error {
	var roleExists uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM roles WHERE id=? LIMIT 1", roleID).Scan(&roleExists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE role_permissions SET is_active=0 WHERE role_id=? AND is_active=1", roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		res, err := r.DB.ExecContext(ctx,
			"UPDATE role_permissions SET is_active=1 WHERE role_id=? AND permission_id=?", roleID, pid)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			continue
		}
		if _, err := r.DB.ExecContext(ctx,
			"INSERT INTO role_permissions (role_id, permission_id, is_active) VALUES (?,?,1)",
			roleID, pid); err != nil {
			return err
		}
	}
	return r.CleanupDuplicates(ctx, roleID)
}
