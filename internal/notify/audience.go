package notify

import (
	"context"
	"fmt"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
)

// AudienceResolver turns an audience description into user ids.
type AudienceResolver struct {
	users         repositories.UserRepository
	events        repositories.EventRepository
	registrations repositories.RegistrationRepository
}

func NewAudienceResolver(users repositories.UserRepository, events repositories.EventRepository, registrations repositories.RegistrationRepository) *AudienceResolver {
	return &AudienceResolver{users: users, events: events, registrations: registrations}
}

// Resolve returns unique recipient ids in a stable order with the excluded
// ids removed.
func (r *AudienceResolver) Resolve(ctx context.Context, a models.Audience) ([]uint, error) {
	var ids []uint
	var err error

	switch a.Kind {
	case models.AudienceUsers:
		ids = a.UserIDs
	case models.AudienceAllUsers:
		ids, err = r.users.ListIDs(ctx)
	case models.AudienceAdmins:
		ids, err = r.users.ListIDsByRole(ctx, models.RoleAdmin)
	case models.AudienceEventParticipants:
		ids, err = r.registrations.ListUserIDsByEvent(ctx, a.EventID,
			[]models.RegistrationStatus{models.RegistrationAccepted})
	case models.AudienceEventRegistrants:
		ids, err = r.registrations.ListUserIDsByEvent(ctx, a.EventID,
			[]models.RegistrationStatus{models.RegistrationPending, models.RegistrationAccepted})
	case models.AudienceEventStaff:
		ids, err = r.events.ListStaffIDs(ctx, a.EventID)
	default:
		return nil, fmt.Errorf("unknown audience kind %q", a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s audience: %w", a.Kind, err)
	}
	return Dedupe(ids, a.Exclude), nil
}

// Dedupe drops zero ids, repeats and excluded ids, keeping first-seen order.
func Dedupe(ids []uint, exclude []uint) []uint {
	skip := make(map[uint]struct{}, len(exclude)+len(ids))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, seen := skip[id]; seen {
			continue
		}
		skip[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
