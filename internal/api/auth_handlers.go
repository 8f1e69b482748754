package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"streamreview/internal/domain"
	"streamreview/internal/store"
	"streamreview/pkg/auth"

	"github.com/google/uuid"
)

// RegisterUser handles POST /api/auth/register.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode registration request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.logger.WarnContext(ctx, "Registration request validation failed", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to hash password", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error processing registration")
		return
	}

	newUser := &domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := h.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			h.respondError(w, r, http.StatusConflict, "User with this email or username already exists")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to create user in store", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to register user")
		return
	}

	userResponse := &domain.User{
		ID:        newUser.ID,
		Username:  newUser.Username,
		Email:     newUser.Email,
		Role:      newUser.Role,
		CreatedAt: newUser.CreatedAt,
		UpdatedAt: newUser.UpdatedAt,
	}

	h.logger.InfoContext(ctx, "User registered successfully",
		slog.String("userID", newUser.ID), slog.String("username", newUser.Username))
	h.respondJSON(w, r, http.StatusCreated, userResponse)
}

// LoginUser handles POST /api/auth/login.
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode login request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.respondError(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to look up user for login", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		h.logger.WarnContext(ctx, "Login attempt with wrong password", slog.String("userID", user.ID))
		h.respondError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokenManager.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to generate token", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to log in")
		return
	}

	user.PasswordHash = ""
	h.logger.InfoContext(ctx, "User logged in successfully", slog.String("userID", user.ID))
	h.respondJSON(w, r, http.StatusOK, &domain.LoginResponse{User: user, Token: token})
}
