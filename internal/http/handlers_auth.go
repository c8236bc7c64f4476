package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	apperrors "github.com/roadsideiq/verify-api/internal/errors"
	"github.com/roadsideiq/verify-api/internal/service"
)

// AuthServiceInterface defines the auth service operations the handlers need.
type AuthServiceInterface interface {
	Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error)
	IssueToken(ctx context.Context, username, password string) (*service.TokenResult, error)
}

// AuthHandlers provides HTTP handlers for registration and token issuance.
type AuthHandlers struct {
	Svc AuthServiceInterface
}

// Register handles POST /register.
// Body: {"username": ..., "password": ...}. Duplicate usernames get 409.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	_, err := h.Svc.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrUsernameExists):
			WriteError(w, ErrorParams{
				Code:    http.StatusConflict,
				ErrCode: "username_taken",
				Err:     errors.New("username already registered"),
			})
		case apperrors.IsValidation(err):
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err})
		default:
			WriteError(w, ErrorParams{
				Code:    http.StatusInternalServerError,
				ErrCode: "register_failed",
				Err:     errors.New("failed to register user"),
			})
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"msg": "User registered successfully"})
}

// Token handles POST /token.
// Form-encoded username/password in, {"access_token", "token_type"} out.
func (h *AuthHandlers) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	result, err := h.Svc.IssueToken(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "invalid_credentials",
				Err:     errors.New("incorrect username or password"),
			})
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "token_failed",
			Err:     errors.New("failed to issue token"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
	})
}
