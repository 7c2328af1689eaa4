package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// OnlineSession describes one live session for the monitor screen.
type OnlineSession struct {
	Key        string    `json:"key"`
	Username   string    `json:"username"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
	ExpiresAt  time.Time `json:"expires_at"`
}
