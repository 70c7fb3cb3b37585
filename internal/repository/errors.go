// Package repository implements the record store: users, the role/permission
// graph and the thin staff/department tables, all over MySQL.  Sentinel
// errors defined here let handlers map storage failures to HTTP statuses
// without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a referenced user, role or permission does
// not exist.  Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation would violate a uniqueness
// expectation, such as creating a duplicate role name or re-granting an
// already-active role permission.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when a user insert or update collides with an
// existing email.  Email uniqueness is enforced by the store.
var ErrEmailExists = errors.New("email already exists")
