package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"rutasonora/internal/auth"
	"rutasonora/internal/monuments"
	"rutasonora/internal/places"
	"rutasonora/internal/uploads"
	"rutasonora/pkg/geo"
	"rutasonora/pkg/overpass"
	"rutasonora/pkg/wikipedia"
)

const (
	msgInternal   = "Error interno del servidor."
	msgSuperseded = "Búsqueda reemplazada por una más reciente."
	msgUploadFail = "No se pudo subir el archivo."
	msgDeleteFail = "No se pudo eliminar el archivo."
	msgNotImage   = "Solo se permiten imágenes."
	msgTooLarge   = "El archivo supera el tamaño máximo de 10 MB."
	msgNotFound   = "No encontrado."
	msgMapClosed  = "El mapa se cerró; vuelve a buscar."
	msgListFail   = "No se pudieron cargar tus archivos."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError turns err into its status and user-facing message. fallback is
// shown for store failures whose detail stays in the log.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status, msg := classify(err, fallback)
	if status >= http.StatusInternalServerError {
		log.Printf("[api] %d: %v", status, err)
	}
	writeMessage(w, status, msg)
}

func classify(err error, fallback string) (int, string) {
	var (
		geoErr     *geo.GeolocationError
		authErr    *auth.AuthError
		netErr     *overpass.NetworkError
		wikiErr    *wikipedia.APIError
		storageErr *uploads.StorageError
		persistErr *uploads.PersistError
	)
	switch {
	case errors.As(err, &geoErr):
		return http.StatusBadRequest, geoErr.Notice()
	case errors.As(err, &authErr):
		return auth.StatusFor(authErr), authErr.Message
	case errors.As(err, &netErr):
		return http.StatusBadGateway, places.NoticeSearchError
	case errors.As(err, &wikiErr):
		return http.StatusBadGateway, monuments.NoticeWikipediaDown
	case errors.Is(err, uploads.ErrNotImage):
		return http.StatusUnsupportedMediaType, msgNotImage
	case errors.Is(err, uploads.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, uploads.ErrNotOwner):
		return http.StatusForbidden, fallback
	case errors.Is(err, uploads.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, places.ErrSessionClosed):
		return http.StatusConflict, msgMapClosed
	case errors.Is(err, uploads.ErrSessionClosed):
		return http.StatusUnauthorized, auth.MsgNoSession
	case errors.As(err, &storageErr):
		return http.StatusBadGateway, fallback
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, fallback
	case errors.Is(err, context.Canceled):
		return http.StatusConflict, msgSuperseded
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, fallback
	default:
		return http.StatusInternalServerError, fallback
	}
}
