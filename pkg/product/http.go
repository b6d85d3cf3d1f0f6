package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/logger"
	"github.com/gorilla/mux"
)

type Handler struct {
	service      *Service
	defaultLimit int
}

func NewHandler(service *Service, defaultLimit int) *Handler {
	return &Handler{service: service, defaultLimit: defaultLimit}
}

func (h *Handler) Register(r *mux.Router) {
	// The static /products/products/ routes must be registered before the
	// catch-all {query} route.
	r.HandleFunc("/products/products/", h.handleListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/products/{id}", h.handleDeleteProduct).Methods(http.MethodDelete)
	r.HandleFunc("/products/products/{id}/viewed", h.handleMarkViewed).Methods(http.MethodPatch)
	r.HandleFunc("/products/{query}", h.handleFetchProducts).Methods(http.MethodGet)
}

func (h *Handler) handleFetchProducts(w http.ResponseWriter, r *http.Request) {
	query := mux.Vars(r)["query"]
	limit := parseLimit(r, h.defaultLimit)

	products, err := h.service.FetchAndStore(r.Context(), query, limit)
	if err != nil {
		status, msg := HTTPStatus(err)
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"query":  query,
			"status": status,
		}).Error("Fetch and store failed")
		http.Error(w, msg, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"product": products})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list products")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Log.WithField("product_id", id).Warn("Product not found for delete")
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).WithField("product_id", id).Error("Failed to delete product")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product deleted",
		"product": deleted,
	})
}

func (h *Handler) handleMarkViewed(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	updated, err := h.service.MarkViewed(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Log.WithField("product_id", id).Warn("Product not found for mark viewed")
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).WithField("product_id", id).Error("Failed to mark product as viewed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product marked as viewed",
		"product": updated,
	})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
