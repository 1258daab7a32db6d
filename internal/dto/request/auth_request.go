package request

// RegisterRequest account registration
// Used by:
//   - internal/handler/auth_handler.go: Register
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=1,max=32"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest email + password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair; also used by logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}
