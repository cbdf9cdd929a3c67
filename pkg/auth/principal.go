package auth

import "context"

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
	RoleSystem  = "system"
)

// Principal is the authenticated caller. DoctorID is set for doctors and links the
// identity to their Doctors document.
type Principal struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	DoctorID string `json:"doctor_id,omitempty"`
}

func (p *Principal) Is(role string) bool {
	return p != nil && p.Role == role
}

func IsValidRole(role string) bool {
	switch role {
	case RolePatient, RoleDoctor, RoleStaff, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// System is the principal used by background consumers and signed webhooks.
func System(name string) *Principal {
	return &Principal{ID: name, Role: RoleSystem}
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
