// Package user models the authenticated caller and the roles that grant capabilities.
// Registration and credentials live with the identity provider that issues tokens.
package user

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidRole is returned when a role name is not recognized.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAnonymous is returned when a principal carries no user id.
	ErrAnonymous = errors.New("anonymous principal")
)

// Role grants a fixed set of capabilities.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// ParseRole maps a claim value to a Role. The empty string is a customer.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return Role(s), nil
	case "":
		return RoleCustomer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// NewPrincipal validates and returns a principal.
func NewPrincipal(userID uuid.UUID, role Role) (Principal, error) {
	if userID == uuid.Nil {
		return Principal{}, ErrAnonymous
	}
	if _, err := ParseRole(string(role)); err != nil {
		return Principal{}, err
	}
	if role == "" {
		role = RoleCustomer
	}
	return Principal{UserID: userID, Role: role}, nil
}

// IsAdmin reports whether p holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsStaff reports whether p holds the staff role.
func (p Principal) IsStaff() bool { return p.Role == RoleStaff }

// CanOperate reports whether p may move money out of, or into, an account owned by ownerID
// on the owner's behalf.
func (p Principal) CanOperate(ownerID uuid.UUID) bool {
	return p.IsAdmin() || p.UserID == ownerID
}

// CanManage reports whether p may view or deactivate an account owned by ownerID.
func (p Principal) CanManage(ownerID uuid.UUID) bool {
	return p.IsAdmin() || p.IsStaff() || p.UserID == ownerID
}
