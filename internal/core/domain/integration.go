package domain

import "time"

// Health values used in integration reports.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthDegraded  = "degraded"
)

// maxSyncErrors is the number of consecutive sync errors after which a
// calendar integration is unhealthy.
const maxSyncErrors = 3

// CalendarIntegration links an external calendar.
type CalendarIntegration struct {
	ID            string     `json:"id"`
	Provider      string     `json:"provider"`
	ProviderEmail string     `json:"provider_email,omitempty"`
	IsActive      bool       `json:"is_active"`
	SyncEnabled   bool       `json:"sync_enabled"`
	TokenExpired  bool       `json:"is_token_expired"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	SyncErrors    int        `json:"sync_errors"`
}

// Healthy reports whether the calendar integration is usable.
func (c CalendarIntegration) Healthy() bool {
	return c.IsActive && !c.TokenExpired && c.SyncErrors < maxSyncErrors
}

// VideoIntegration links a video conferencing provider.
type VideoIntegration struct {
	ID                string `json:"id"`
	Provider          string `json:"provider"`
	IsActive          bool   `json:"is_active"`
	AutoGenerateLinks bool   `json:"auto_generate_links"`
	TokenExpired      bool   `json:"is_token_expired"`
	APICallsToday     int    `json:"api_calls_today"`
}

// Healthy reports whether the video integration is usable.
func (v VideoIntegration) Healthy() bool {
	return v.IsActive && !v.TokenExpired
}

// WebhookIntegration delivers booking events to a URL.
type WebhookIntegration struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	WebhookURL string   `json:"webhook_url"`
	Events     []string `json:"events"`
	IsActive   bool     `json:"is_active"`
}

// Integrations is the combined integrations listing.
type Integrations struct {
	Calendars []CalendarIntegration `json:"calendar_integrations"`
	Video     []VideoIntegration    `json:"video_integrations"`
	Webhooks  []WebhookIntegration  `json:"webhook_integrations"`
}

// HealthEntry is one integration's line in a health report.
type HealthEntry struct {
	Provider     string     `json:"provider"`
	IsActive     bool       `json:"is_active"`
	TokenExpired bool       `json:"token_expired"`
	SyncEnabled  bool       `json:"sync_enabled,omitempty"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
	SyncErrors   int        `json:"sync_errors,omitempty"`
	Health       string     `json:"health"`
}

// HealthReport summarizes integration health for one organizer.
type HealthReport struct {
	OrganizerID    string        `json:"organizer_id"`
	OrganizerEmail string        `json:"organizer_email"`
	Timestamp      time.Time     `json:"timestamp"`
	Calendars      []HealthEntry `json:"calendar_integrations"`
	Video          []HealthEntry `json:"video_integrations"`
	OverallHealth  string        `json:"overall_health"`
}

// BuildHealthReport evaluates every integration. Overall health is
// degraded as soon as one integration is unhealthy.
func BuildHealthReport(user *User, in Integrations, now time.Time) HealthReport {
	report := HealthReport{
		OrganizerID:    user.ID,
		OrganizerEmail: user.Email,
		Timestamp:      now.UTC(),
		Calendars:      []HealthEntry{},
		Video:          []HealthEntry{},
		OverallHealth:  HealthHealthy,
	}

	for _, c := range in.Calendars {
		entry := HealthEntry{
			Provider:     c.Provider,
			IsActive:     c.IsActive,
			TokenExpired: c.TokenExpired,
			SyncEnabled:  c.SyncEnabled,
			LastSync:     c.LastSyncAt,
			SyncErrors:   c.SyncErrors,
			Health:       healthOf(c.Healthy()),
		}
		report.Calendars = append(report.Calendars, entry)
		if entry.Health == HealthUnhealthy {
			report.OverallHealth = HealthDegraded
		}
	}

	for _, v := range in.Video {
		entry := HealthEntry{
			Provider:     v.Provider,
			IsActive:     v.IsActive,
			TokenExpired: v.TokenExpired,
			Health:       healthOf(v.Healthy()),
		}
		report.Video = append(report.Video, entry)
		if entry.Health == HealthUnhealthy {
			report.OverallHealth = HealthDegraded
		}
	}
	return report
}

func healthOf(ok bool) string {
	if ok {
		return HealthHealthy
	}
	return HealthUnhealthy
}
