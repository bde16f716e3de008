package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mindfuleat/internal/models"
	"mindfuleat/internal/store"
)

const tokenTTL = 24 * time.Hour

type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (models.User, error)
	ByID(ctx context.Context, id int) (models.User, error)
	ByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, id int, p store.ProfileUpdate) (models.User, error)
}

type AuthHandler struct {
	users     UserRepository
	jwtSecret []byte
	logger    *zap.Logger
}

func NewAuthHandler(users UserRepository, jwtSecret []byte, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, logger: logger}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *credentials) normalize() error {
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Email == "" || c.Password == "" {
		return errors.New("email and password required")
	}
	return nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if !decodeBody(w, r, &c) {
		return
	}
	if err := c.normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}
	if len(c.Password) < 8 {
		http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	if _, err := h.users.ByEmail(r.Context(), c.Email); err == nil {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		technicalIssue(w, h.logger, "lookup user by email", err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "could not hash password", http.StatusInternalServerError)
		return
	}
	user, err := h.users.Create(r.Context(), c.Email, string(hashed))
	if err != nil {
		h.logger.Warn("create user failed", zap.Error(err))
		http.Error(w, "could not create user", http.StatusBadRequest)
		return
	}

	token, err := h.issueJWT(user.ID)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusCreated, "User registered successfully", map[string]any{
		"token": token,
		"user":  ToUserDTO(user),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if !decodeBody(w, r, &c) {
		return
	}
	if err := c.normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.ByEmail(r.Context(), c.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		technicalIssue(w, h.logger, "lookup user by email", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := h.issueJWT(user.ID)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	respond(w, http.StatusOK, "Login successful", map[string]any{"token": token})
}

// Me returns the current user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	u, err := h.users.ByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		technicalIssue(w, h.logger, "load profile", err)
		return
	}
	respond(w, http.StatusOK, "Profile retrieved successfully", ToUserDTO(u))
}

// UpdateMe updates the provided profile fields and leaves the rest untouched.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body store.ProfileUpdate
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Age != nil && (*body.Age <= 0 || *body.Age > 130) {
		http.Error(w, "age out of range", http.StatusBadRequest)
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), userID, body)
	if err != nil {
		technicalIssue(w, h.logger, "update profile", err)
		return
	}
	respond(w, http.StatusOK, "Profile updated successfully", ToUserDTO(u))
}

func (h *AuthHandler) issueJWT(userID int) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(tokenTTL).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
