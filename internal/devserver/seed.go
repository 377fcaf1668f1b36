package devserver

import (
	"fmt"
	"time"

	"github.com/yndnr/calbook-go/internal/core/domain"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "calbook-dev-1"

// Seeded account emails.
const (
	SeedOrganizer = "organizer@example.com"
	SeedMFA       = "mfa@example.com"
	SeedGrace     = "grace@example.com"
	SeedExpired   = "expired@example.com"
	SeedSuspended = "suspended@example.com"
)

var organizerRole = domain.Role{
	ID:       "role_organizer",
	Name:     "organizer",
	RoleType: "organizer",
	Permissions: []domain.Permission{
		{Codename: "can_manage_integrations", Name: "Manage integrations", Category: "integrations"},
		{Codename: "can_view_bookings", Name: "View bookings", Category: "bookings"},
		{Codename: "can_manage_event_types", Name: "Manage event types", Category: "events"},
	},
}

var clientRole = domain.Role{
	ID:       "role_client",
	Name:     "client",
	RoleType: "client",
	Permissions: []domain.Permission{
		{Codename: "can_view_bookings", Name: "View bookings", Category: "bookings"},
	},
}

// seed adds the development accounts.
func (s *Server) seed() error {
	type seedUser struct {
		email   string
		first   string
		status  domain.AccountStatus
		mfa     bool
		roles   []domain.Role
		sampled bool
	}
	users := []seedUser{
		{email: SeedOrganizer, first: "Olivia", status: domain.AccountActive, roles: []domain.Role{organizerRole}, sampled: true},
		{email: SeedMFA, first: "Max", status: domain.AccountActive, mfa: true, roles: []domain.Role{organizerRole}},
		{email: SeedGrace, first: "Grace", status: domain.AccountPasswordExpiredGracePeriod, roles: []domain.Role{clientRole}},
		{email: SeedExpired, first: "Eli", status: domain.AccountPasswordExpired, roles: []domain.Role{clientRole}},
		{email: SeedSuspended, first: "Sam", status: domain.AccountSuspended, roles: []domain.Role{clientRole}},
	}

	for _, su := range users {
		u, err := s.store.create(&domain.User{
			Email:           su.email,
			FirstName:       su.first,
			LastName:        "Example",
			Timezone:        "UTC",
			IsEmailVerified: true,
			IsActive:        su.status != domain.AccountSuspended,
			AccountStatus:   su.status,
			Roles:           su.roles,
		}, SeedPassword)
		if err != nil {
			return fmt.Errorf("seed %s: %w", su.email, err)
		}
		if su.mfa {
			_, err = s.store.update(u.ID, func(a *account) error {
				a.devices["dev_seed_totp"] = &mfaDevice{id: "dev_seed_totp", kind: "totp", confirmed: true}
				a.user.IsMFAEnabled = true
				return nil
			})
			if err != nil {
				return err
			}
		}
		if su.sampled {
			s.store.setIntegrations(u.ID, sampleIntegrations(s.now()))
		}
	}
	return nil
}

// sampleIntegrations returns one healthy and one broken calendar, a video
// provider and a webhook.
func sampleIntegrations(now time.Time) domain.Integrations {
	lastSync := now.Add(-10 * time.Minute).UTC()
	return domain.Integrations{
		Calendars: []domain.CalendarIntegration{
			{ID: "cal_1", Provider: "google", ProviderEmail: "olivia@gmail.example", IsActive: true, SyncEnabled: true, LastSyncAt: &lastSync},
			{ID: "cal_2", Provider: "outlook", ProviderEmail: "olivia@outlook.example", IsActive: true, SyncEnabled: true, TokenExpired: true, SyncErrors: 4},
		},
		Video: []domain.VideoIntegration{
			{ID: "vid_1", Provider: "zoom", IsActive: true, AutoGenerateLinks: true, APICallsToday: 12},
		},
		Webhooks: []domain.WebhookIntegration{
			{ID: "wh_1", Name: "CRM", WebhookURL: "https://hooks.example.com/calbook", Events: []string{"booking_created", "booking_cancelled"}, IsActive: true},
		},
	}
}
