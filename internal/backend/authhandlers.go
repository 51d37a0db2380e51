package backend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/imagecompressor/internal/backend/auth"
	"github.com/jo-hoe/imagecompressor/internal/common"
	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type logoutRequest struct {
	SessionID string `json:"sessionId"`
}

type loginResponse struct {
	Message   string        `json:"message"`
	SessionID string        `json:"sessionId"`
	User      auth.UserInfo `json:"user"`
}

type userInfoResponse struct {
	User auth.UserInfo `json:"user"`
}

func (s *APIService) setAuthRoutes(e *echo.Echo) {
	e.POST("/register", s.registerHandler)
	e.POST("/login", s.loginHandler)
	e.POST("/forgot-password", s.forgotPasswordHandler)
	e.POST("/reset-password", s.resetPasswordHandler)
	e.GET("/user-info", s.userInfoHandler)
	e.POST("/logout", s.logoutHandler)
}

func messageBody(message string) map[string]string {
	return map[string]string{"message": message}
}

// authError renders account errors the way the account endpoints always
// have: {"error": "..."} with the taxonomy status.
func authError(ctx echo.Context, err error, notFoundMessage string) error {
	status := common.HTTPStatus(err)
	var validationErr *common.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return ctx.JSON(status, map[string]string{"error": validationErr.Message})
	case status == http.StatusNotFound:
		return ctx.JSON(status, map[string]string{"error": notFoundMessage})
	default:
		slog.Error("account request failed", "path", ctx.Path(), "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Server error, please try again later"})
	}
}

func bindAndValidate(ctx echo.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		return common.NewValidationError("Invalid request body")
	}
	if err := ctx.Validate(req); err != nil {
		return common.NewValidationError("Invalid email address")
	}
	return nil
}

func (s *APIService) registerHandler(ctx echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return authError(ctx, err, "")
	}
	if err := s.coreService.Auth().Register(ctx.Request().Context(), req.Email, req.Name, req.Password); err != nil {
		return authError(ctx, err, "")
	}
	return ctx.JSON(http.StatusCreated, messageBody("User registered successfully"))
}

func (s *APIService) loginHandler(ctx echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return authError(ctx, err, "")
	}
	result, err := s.coreService.Auth().Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return authError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, loginResponse{
		Message:   "Login successful",
		SessionID: result.SessionID,
		User:      result.User,
	})
}

func (s *APIService) forgotPasswordHandler(ctx echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return authError(ctx, err, "")
	}
	if err := s.coreService.Auth().ForgotPassword(ctx.Request().Context(), req.Email); err != nil {
		return authError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, messageBody("If the email is registered, a reset link has been sent."))
}

func (s *APIService) resetPasswordHandler(ctx echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return authError(ctx, err, "")
	}
	if err := s.coreService.Auth().ResetPassword(ctx.Request().Context(), req.Token, req.Password); err != nil {
		return authError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, messageBody("Password reset successfully!"))
}

func (s *APIService) userInfoHandler(ctx echo.Context) error {
	info, err := s.coreService.Auth().UserInfo(ctx.Request().Context(), ctx.QueryParam("sessionId"))
	if err != nil {
		return authError(ctx, err, "User not found or session expired")
	}
	return ctx.JSON(http.StatusOK, userInfoResponse{User: *info})
}

func (s *APIService) logoutHandler(ctx echo.Context) error {
	var req logoutRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return authError(ctx, err, "")
	}
	if err := s.coreService.Auth().Logout(ctx.Request().Context(), req.SessionID); err != nil {
		return authError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, messageBody("Logout successful"))
}
