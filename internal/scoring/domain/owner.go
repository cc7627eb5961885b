package domain

import "github.com/google/uuid"

// Role distinguishes how an owner interacts with the pipeline.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
		return true
	default:
		return false
	}
}

// Owner is the identity that submitted a scoring request. Owner records live
// outside this pipeline; only the projection needed for scoping and quota
// decisions crosses the boundary.
type Owner struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// IsAdmin reports whether the owner may read tasks unscoped.
func (o Owner) IsAdmin() bool { return o.Role == RoleAdmin }

// IsQuotaGated reports whether subscription limits apply to this owner.
// Recruiters and admins score on behalf of the organization and are not
// metered individually.
func (o Owner) IsQuotaGated() bool { return o.Role == RoleCandidate }
