package domain

import (
	"testing"
	"time"
)

func TestBuildHealthReport(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	user := &User{ID: "u1", Email: "ada@example.com"}

	tests := []struct {
		name        string
		in          Integrations
		wantOverall string
		wantCal     []string
		wantVideo   []string
	}{
		{
			name:        "no integrations",
			wantOverall: HealthHealthy,
		},
		{
			name: "all healthy",
			in: Integrations{
				Calendars: []CalendarIntegration{{Provider: "google", IsActive: true, SyncErrors: 2}},
				Video:     []VideoIntegration{{Provider: "zoom", IsActive: true}},
			},
			wantOverall: HealthHealthy,
			wantCal:     []string{HealthHealthy},
			wantVideo:   []string{HealthHealthy},
		},
		{
			name: "calendar sync errors",
			in: Integrations{
				Calendars: []CalendarIntegration{{Provider: "outlook", IsActive: true, SyncErrors: 3}},
			},
			wantOverall: HealthDegraded,
			wantCal:     []string{HealthUnhealthy},
		},
		{
			name: "expired video token",
			in: Integrations{
				Calendars: []CalendarIntegration{{Provider: "google", IsActive: true}},
				Video:     []VideoIntegration{{Provider: "webex", IsActive: true, TokenExpired: true}},
			},
			wantOverall: HealthDegraded,
			wantCal:     []string{HealthHealthy},
			wantVideo:   []string{HealthUnhealthy},
		},
		{
			name: "inactive calendar",
			in: Integrations{
				Calendars: []CalendarIntegration{{Provider: "apple", IsActive: false}},
			},
			wantOverall: HealthDegraded,
			wantCal:     []string{HealthUnhealthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BuildHealthReport(user, tt.in, now)

			if r.OverallHealth != tt.wantOverall {
				t.Errorf("OverallHealth = %q, want %q", r.OverallHealth, tt.wantOverall)
			}
			if r.OrganizerEmail != user.Email || !r.Timestamp.Equal(now) {
				t.Errorf("header = %q %v", r.OrganizerEmail, r.Timestamp)
			}
			if len(r.Calendars) != len(tt.wantCal) || len(r.Video) != len(tt.wantVideo) {
				t.Fatalf("entries = %d/%d, want %d/%d", len(r.Calendars), len(r.Video), len(tt.wantCal), len(tt.wantVideo))
			}
			for i, want := range tt.wantCal {
				if r.Calendars[i].Health != want {
					t.Errorf("calendar[%d] = %q, want %q", i, r.Calendars[i].Health, want)
				}
			}
			for i, want := range tt.wantVideo {
				if r.Video[i].Health != want {
					t.Errorf("video[%d] = %q, want %q", i, r.Video[i].Health, want)
				}
			}
		})
	}
}
