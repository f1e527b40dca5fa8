package v1

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the login response. Refresh is empty when the server runs
// access-only sessions.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// ErrorResponse is the body the dev server writes on failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
