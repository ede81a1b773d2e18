package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrInvalidPassword       = errors.New("Password must be at least 8 characters and contain a letter, a number and a special character")
	ErrInvalidUsername       = errors.New("Username must be 3-30 letters, numbers or underscores")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrEmailTaken            = errors.New("Email is already registered")
	ErrUsernameTaken         = errors.New("Username is already taken")
	ErrAccountDisabled       = errors.New("Account is deactivated")
	ErrNotAuthenticated      = errors.New("Not authenticated")
	ErrTokenRevoked          = errors.New("Token has been revoked")
)
