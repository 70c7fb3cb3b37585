package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Staff mirrors the 'staff' table.  Plain CRUD; the auth core only needs
// the id that users.staff_id points at.
type Staff struct {
	ID           uint64
	FirstName    string
	LastName     string
	Email        string
	Position     string
	DepartmentID sql.NullInt64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StaffRepo struct{ DB *sql.DB }

func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{DB: db} }

func (r *StaffRepo) Create(ctx context.Context, s Staff) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO staff (first_name, last_name, email, position, department_id) VALUES (?,?,?,?,?)",
		strings.TrimSpace(s.FirstName), strings.TrimSpace(s.LastName),
		strings.ToLower(strings.TrimSpace(s.Email)), s.Position, s.DepartmentID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *StaffRepo) GetByID(ctx context.Context, id uint64) (Staff, error) {
	var s Staff
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,first_name,last_name,email,position,department_id,is_active,created_at,updated_at FROM staff WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Position, &s.DepartmentID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r *StaffRepo) List(ctx context.Context) ([]Staff, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,first_name,last_name,email,position,department_id,is_active,created_at,updated_at FROM staff ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Position, &s.DepartmentID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StaffRepo) Update(ctx context.Context, id uint64, s Staff) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE staff SET first_name=?, last_name=?, email=?, position=?, department_id=? WHERE id=?",
		strings.TrimSpace(s.FirstName), strings.TrimSpace(s.LastName),
		strings.ToLower(strings.TrimSpace(s.Email)), s.Position, s.DepartmentID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StaffRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM staff WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
