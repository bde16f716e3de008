package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mindfuleat/internal/models"
	"mindfuleat/internal/store"
)

const (
	maxFoodBody   = 20 << 20
	maxFoodImages = 5
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type FoodRepository interface {
	Create(ctx context.Context, userID int, description string, imagePaths []string) (models.FoodUpdate, error)
	ForUser(ctx context.Context, userID int) ([]models.FoodUpdate, error)
	Get(ctx context.Context, userID, id int) (models.FoodUpdate, error)
}

type FoodHandler struct {
	food      FoodRepository
	uploadDir string
	logger    *zap.Logger
}

func NewFoodHandler(food FoodRepository, uploadDir string, logger *zap.Logger) *FoodHandler {
	return &FoodHandler{food: food, uploadDir: uploadDir, logger: logger}
}

type foodImageRequest struct {
	Base64File string `json:"base64_file"`
}

type foodUpdateRequest struct {
	Description string             `json:"description"`
	Images      []foodImageRequest `json:"images"`
}

// Create godoc
// @Summary Post a food update
// @Description Stores a description with up to five base64 encoded images.
// @Tags food
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} envelope
// @Failure 400 {string} string "Invalid image"
// @Router /food/food-update [post]
func (h *FoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFoodBody)
	var body foodUpdateRequest
	if !decodeBody(w, r, &body) {
		return
	}
	body.Description = strings.TrimSpace(body.Description)
	if body.Description == "" && len(body.Images) == 0 {
		http.Error(w, "description or images required", http.StatusBadRequest)
		return
	}
	if len(body.Images) > maxFoodImages {
		http.Error(w, fmt.Sprintf("at most %d images", maxFoodImages), http.StatusBadRequest)
		return
	}

	images := make([][]byte, 0, len(body.Images))
	for i, img := range body.Images {
		data, err := decodeImage(img.Base64File)
		if err != nil {
			http.Error(w, fmt.Sprintf("image %d: %v", i+1, err), http.StatusBadRequest)
			return
		}
		images = append(images, data)
	}

	paths, err := h.saveImages(images)
	if err != nil {
		technicalIssue(w, h.logger, "save food images", err)
		return
	}
	update, err := h.food.Create(r.Context(), userID, body.Description, paths)
	if err != nil {
		removeAll(paths)
		technicalIssue(w, h.logger, "create food update", err)
		return
	}
	respond(w, http.StatusCreated, "Food update posted successfully", update)
}

func (h *FoodHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	updates, err := h.food.ForUser(r.Context(), userID)
	if err != nil {
		technicalIssue(w, h.logger, "list food updates", err)
		return
	}
	respond(w, http.StatusOK, "Food updates retrieved successfully", updates)
}

// Images returns every image path the user has uploaded, newest update first.
func (h *FoodHandler) Images(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	updates, err := h.food.ForUser(r.Context(), userID)
	if err != nil {
		technicalIssue(w, h.logger, "list food images", err)
		return
	}
	paths := []string{}
	for _, u := range updates {
		for _, img := range u.Images {
			paths = append(paths, img.ImagePath)
		}
	}
	respond(w, http.StatusOK, "Uploaded images retrieved successfully", paths)
}

func (h *FoodHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	update, err := h.food.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "food update not found", http.StatusNotFound)
			return
		}
		technicalIssue(w, h.logger, "load food update", err)
		return
	}
	respond(w, http.StatusOK, "Food update retrieved successfully", update)
}

// decodeImage accepts plain base64 or a data URL and checks the payload is an image.
func decodeImage(encoded string) ([]byte, error) {
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("empty image")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, errors.New("invalid base64")
		}
	}
	if _, ok := imageExt[http.DetectContentType(data)]; !ok {
		return nil, errors.New("unsupported image type")
	}
	return data, nil
}

func (h *FoodHandler) saveImages(images [][]byte) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(images))
	for _, data := range images {
		name := uuid.NewString() + imageExt[http.DetectContentType(data)]
		path := filepath.Join(h.uploadDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			removeAll(paths)
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
