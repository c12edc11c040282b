package service

import (
	"github.com/pkg/errors"

	"github.com/dozin22/teamflow/pkg/models"
	"github.com/dozin22/teamflow/pkg/storage"
)

// Identity is the resolved caller: a verified user id plus the team and role
// facts authorization decisions are made from. Credential verification itself
// happens upstream.
type Identity struct {
	UserID           int64
	TeamID           int64
	Position         string
	Responsibilities []string
}

// AuthService is the access guard consulted before any template operation.
type AuthService struct {
	store  storage.Store
	logger Logger
}

func NewAuthService(store storage.Store, logger Logger) *AuthService {
	return &AuthService{store: store, logger: logger}
}

// Authorize resolves a verified user id into an Identity. It fails with
// ErrUnauthorized for an unknown user and ErrValidation when the user has no
// team, since every template operation is team-scoped.
func (a *AuthService) Authorize(userID int64) (Identity, error) {
	user, err := a.store.GetUser(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Identity{}, errors.WithMessagef(ErrUnauthorized, "unknown user %d", userID)
		}
		return Identity{}, errors.Wrap(err, "resolve identity")
	}
	if user.TeamID == nil {
		return Identity{}, validationf("user %d is not assigned to any team", userID)
	}
	id := Identity{
		UserID:   user.ID,
		TeamID:   *user.TeamID,
		Position: user.Position,
	}
	for _, r := range user.Responsibilities {
		id.Responsibilities = append(id.Responsibilities, r.Name)
	}
	return id, nil
}

// IsTemplateAdmin reports whether the identity may mutate templates:
// team leads and holders of the expert responsibility qualify.
func (id Identity) IsTemplateAdmin() bool {
	if id.Position == models.PositionTeamLead {
		return true
	}
	for _, name := range id.Responsibilities {
		if name == models.ExpertResponsibility {
			return true
		}
	}
	return false
}

// RequireTemplateAdmin returns ErrForbidden unless the identity may mutate
// templates.
func RequireTemplateAdmin(id Identity) error {
	if !id.IsTemplateAdmin() {
		return forbiddenf("team lead or %s responsibility required", models.ExpertResponsibility)
	}
	return nil
}
