package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mindfuleat/internal/middleware"
	"mindfuleat/internal/models"
)

// envelope is the response body shared by every endpoint.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Message: message, Data: data})
}

// technicalIssue logs err and answers with a generic 500.
func technicalIssue(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	http.Error(w, "technical issue", http.StatusInternalServerError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

// UserDTO formats timestamps as RFC 3339 strings.
type UserDTO struct {
	ID               int     `json:"id"`
	Email            string  `json:"email"`
	CreatedAt        string  `json:"created_at"`
	FirstName        *string `json:"first_name,omitempty"`
	LastName         *string `json:"last_name,omitempty"`
	Age              *int    `json:"age,omitempty"`
	Occupation       *string `json:"occupation,omitempty"`
	LifestyleType    *string `json:"lifestyle_type,omitempty"`
	City             *string `json:"city,omitempty"`
	Country          *string `json:"country,omitempty"`
	DietaryInfluence *string `json:"cultural_religious_dietary_influence,omitempty"`
	IsAdmin          bool    `json:"is_admin"`
	ProfileComplete  bool    `json:"profile_submission"`
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:               u.ID,
		Email:            u.Email,
		CreatedAt:        u.CreatedAt.UTC().Format(time.RFC3339),
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Age:              u.Age,
		Occupation:       u.Occupation,
		LifestyleType:    u.LifestyleType,
		City:             u.City,
		Country:          u.Country,
		DietaryInfluence: u.DietaryInfluence,
		IsAdmin:          u.IsAdmin,
		ProfileComplete:  u.FirstName != nil && u.Age != nil && u.Occupation != nil,
	}
}
