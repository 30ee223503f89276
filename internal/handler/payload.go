package handler

import "time"

type RegisterRequest struct {
	Email    string `json:"email"    form:"email"    validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"    form:"email"    validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" form:"id_token" validate:"required"`
}

type SessionTokenResponse struct {
	SessionToken string `json:"session_token"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
	Code  string `json:"code"  form:"code"  validate:"required,numeric,len=6"`
}

type ConfirmSudoRequest struct {
	Password string `json:"password" form:"password" validate:"required"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"        form:"token"        validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=8"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=8"`
}

type SessionResponse struct {
	ID        string    `json:"id"`
	IPAddress *string   `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
	SudoAt    time.Time `json:"sudo_at"`
	CreatedAt time.Time `json:"created_at"`
	Current   bool      `json:"current"`
}
