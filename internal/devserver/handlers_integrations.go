package devserver

import (
	"net/http"
	"time"

	"github.com/yndnr/calbook-go/internal/core/domain"
)

func (s *Server) integrationsFor(w http.ResponseWriter, r *http.Request) (domain.Integrations, bool) {
	in, err := s.store.integrations(identityFrom(r.Context()).userID)
	if err != nil {
		s.handleError(w, r, err)
		return domain.Integrations{}, false
	}
	return in, true
}

func (s *Server) handleCalendarIntegrations(w http.ResponseWriter, r *http.Request) {
	if in, ok := s.integrationsFor(w, r); ok {
		s.writeJSON(w, http.StatusOK, in.Calendars)
	}
}

func (s *Server) handleVideoIntegrations(w http.ResponseWriter, r *http.Request) {
	if in, ok := s.integrationsFor(w, r); ok {
		s.writeJSON(w, http.StatusOK, in.Video)
	}
}

func (s *Server) handleWebhookIntegrations(w http.ResponseWriter, r *http.Request) {
	if in, ok := s.integrationsFor(w, r); ok {
		s.writeJSON(w, http.StatusOK, in.Webhooks)
	}
}

func (s *Server) handleIntegrationHealth(w http.ResponseWriter, r *http.Request) {
	in, ok := s.integrationsFor(w, r)
	if !ok {
		return
	}
	u, err := s.store.user(identityFrom(r.Context()).userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, domain.BuildHealthReport(u, in, s.now()))
}

// handleDevOTP exposes the open code for an MFA device.
func (s *Server) handleDevOTP(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	c, ok := s.otp.get(deviceID)
	if !ok {
		s.writeError(w, http.StatusNotFound, errorBody{Error: "No open challenge for this device."})
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		DeviceID  string    `json:"device_id"`
		OTP       string    `json:"otp"`
		ExpiresAt time.Time `json:"expires_at"`
	}{deviceID, c.code, c.expiresAt.UTC()})
}

// handleDevMail lists the messages sent to an address.
func (s *Server) handleDevMail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		s.writeError(w, http.StatusBadRequest, errorBody{Error: "email is required."})
		return
	}
	s.writeJSON(w, http.StatusOK, s.Mail(email))
}
