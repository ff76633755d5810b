package handler

import (
	"net/http"
	"path/filepath"

	"fridgesight/internal/config"
)

// ViewImageHandler serves a captured image named by the "image" query parameter.
func ViewImageHandler(config *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		name := filepath.Base(image)
		if name == "." || name == ".." || name == string(filepath.Separator) {
			http.Error(w, "Invalid image parameter", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(config.ImageDirectory, name))
	}
}
