package model

import "github.com/google/uuid"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  uuid.UUID
	Role    Role
	IsStaff bool
}

func (p Principal) IsCustomer() bool {
	return p.Role == RoleCustomer
}

func (p Principal) IsExecutor() bool {
	return p.Role == RoleExecutor
}
