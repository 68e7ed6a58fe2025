package identity

import "context"

// SignUpRequest carries the registration form.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// Provider is the hosted identity service.
type Provider interface {
	// SignUp creates the account. Tokens is nil when the service requires
	// email confirmation before the first sign-in.
	SignUp(ctx context.Context, req SignUpRequest) (*User, *Tokens, error)
	SignIn(ctx context.Context, email, password string) (*Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// AdminChecker answers whether an identity carries the admin flag.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// ProfileCreator creates the profile row that accompanies a new account.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, userID, fullName, phone string) error
}
