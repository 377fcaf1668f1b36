package api

// Backend paths. The backend requires trailing slashes.
const (
	PathLogin                = "/api/v1/users/login/"
	PathRegister             = "/api/v1/users/register/"
	PathLogout               = "/api/v1/users/logout/"
	PathRefresh              = "/api/v1/users/token/refresh/"
	PathProfile              = "/api/v1/users/profile/"
	PathChangePassword       = "/api/v1/users/change-password/"
	PathForcePasswordChange  = "/api/v1/users/force-password-change/"
	PathVerifyEmail          = "/api/v1/users/verify-email/"
	PathRequestPasswordReset = "/api/v1/users/request-password-reset/"
	PathConfirmPasswordReset = "/api/v1/users/confirm-password-reset/"
	PathMFASetup             = "/api/v1/users/mfa/setup/"
	PathMFASetupVerify       = "/api/v1/users/mfa/setup/verify/"
	PathMFAVerify            = "/api/v1/users/mfa/verify/"
	PathMFADisable           = "/api/v1/users/mfa/disable/"

	PathCalendarIntegrations = "/api/v1/integrations/calendar/"
	PathVideoIntegrations    = "/api/v1/integrations/video/"
	PathWebhookIntegrations  = "/api/v1/integrations/webhooks/"
	PathIntegrationHealth    = "/api/v1/integrations/health/"
)
