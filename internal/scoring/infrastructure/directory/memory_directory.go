package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/google/uuid"
)

// MemoryDirectory resolves owner identities from process memory. The
// canonical account system lives outside this service; the directory holds
// the projection it needs. With auto-registration on, an unknown email is
// registered as a candidate on first sight, which keeps local and demo
// deployments frictionless.
type MemoryDirectory struct {
	autoRegister bool

	mu      sync.RWMutex
	byEmail map[string]domain.Owner
	byID    map[uuid.UUID]domain.Owner
}

// Option configures a MemoryDirectory.
type Option func(*MemoryDirectory)

// WithAutoRegister makes unknown emails register as candidate owners.
func WithAutoRegister() Option {
	return func(d *MemoryDirectory) { d.autoRegister = true }
}

// NewMemoryDirectory creates an in-memory owner directory.
func NewMemoryDirectory(opts ...Option) *MemoryDirectory {
	d := &MemoryDirectory{
		byEmail: make(map[string]domain.Owner),
		byID:    make(map[uuid.UUID]domain.Owner),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Register adds or replaces an owner record.
func (d *MemoryDirectory) Register(email string, role domain.Role) domain.Owner {
	email = normalizeEmail(email)

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.byEmail[email]; ok {
		existing.Role = role
		d.byEmail[email] = existing
		d.byID[existing.ID] = existing
		return existing
	}

	owner := domain.Owner{ID: uuid.New(), Email: email, Role: role}
	d.byEmail[email] = owner
	d.byID[owner.ID] = owner
	return owner
}

// FindByEmail resolves an owner by email.
func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (domain.Owner, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Owner{}, domain.ErrMissingOwner
	}

	d.mu.RLock()
	owner, ok := d.byEmail[email]
	d.mu.RUnlock()
	if ok {
		return owner, nil
	}

	if d.autoRegister {
		return d.Register(email, domain.RoleCandidate), nil
	}
	return domain.Owner{}, domain.ErrOwnerNotFound
}

// FindByID resolves an owner by id.
func (d *MemoryDirectory) FindByID(_ context.Context, id uuid.UUID) (domain.Owner, error) {
	d.mu.RLock()
	owner, ok := d.byID[id]
	d.mu.RUnlock()
	if !ok {
		return domain.Owner{}, domain.ErrOwnerNotFound
	}
	return owner, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
