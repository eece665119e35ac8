package auth

// LoginRequest captures the credentials posted by the login form.
type LoginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// SignupRequest captures the signup form.
type SignupRequest struct {
	Username string `form:"username" validate:"required,max=64"`
	Email    string `form:"email" validate:"required,email"`
	Phone    string `form:"phone" validate:"required,max=32"`
	Role     string `form:"role" validate:"required,oneof=user ngo"`
	Password string `form:"password" validate:"required,min=6"`
}
