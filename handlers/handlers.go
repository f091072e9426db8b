package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pricehound/models"
	"pricehound/scheduler"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Monitor is the tracked product API.
type Monitor interface {
	CreateMonitoring(ctx context.Context, req models.SearchRequest) (*models.MonitorResult, error)
	TrackURL(ctx context.Context, req models.TrackProductRequest) (*models.TrackedProduct, error)
	CheckProduct(ctx context.Context, id int64) (*models.TrackedProduct, error)
	CheckAll(ctx context.Context, pause time.Duration) (checked, failed int, err error)
	Get(ctx context.Context, id int64) (*models.TrackedProduct, error)
	ListActive(ctx context.Context) ([]models.TrackedProduct, error)
	ListByCategory(ctx context.Context, category models.Category) ([]models.TrackedProduct, error)
	ListTargetReached(ctx context.Context) ([]models.TrackedProduct, error)
	Update(ctx context.Context, id int64, req models.UpdateProductRequest) (*models.TrackedProduct, error)
	Deactivate(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.CategoryStats, error)
}

// Discoverer runs a synchronous price discovery.
type Discoverer interface {
	DiscoverPrices(ctx context.Context, req models.SearchRequest) *models.AggregatedResult
}

// Tasks runs discoveries in the background.
type Tasks interface {
	Submit(req models.SearchRequest) (*models.DiscoveryTask, error)
	Get(taskID string) (*models.DiscoveryTask, bool)
	Stats() scheduler.TaskStats
}

// checkAllPause separates the checks of a manual check-all request.
const checkAllPause = time.Second

type Handlers struct {
	discovery Discoverer
	monitor   Monitor
	tasks     Tasks
	logger    *zap.Logger
	started   time.Time
}

func NewHandlers(discovery Discoverer, monitor Monitor, tasks Tasks, logger *zap.Logger) *Handlers {
	return &Handlers{
		discovery: discovery,
		monitor:   monitor,
		tasks:     tasks,
		logger:    logger.Named("handlers"),
		started:   time.Now(),
	}
}

// Register adds every route to r.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/stats", h.GetStats).Methods("GET")

	apiV1.HandleFunc("/compare", h.ComparePrices).Methods("POST")
	apiV1.HandleFunc("/compare/async", h.ComparePricesAsync).Methods("POST")
	apiV1.HandleFunc("/tasks/stats", h.GetTaskStats).Methods("GET")
	apiV1.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods("GET")

	apiV1.HandleFunc("/monitor", h.CreateMonitoring).Methods("POST")

	apiV1.HandleFunc("/products", h.TrackProduct).Methods("POST")
	apiV1.HandleFunc("/products", h.ListProducts).Methods("GET")
	apiV1.HandleFunc("/products/check-all", h.CheckAllProducts).Methods("POST")
	apiV1.HandleFunc("/products/target-reached", h.ListTargetReached).Methods("GET")
	apiV1.HandleFunc("/products/category/{category}", h.ListProductsByCategory).Methods("GET")
	apiV1.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods("GET")
	apiV1.HandleFunc("/products/{id:[0-9]+}", h.UpdateProduct).Methods("PUT")
	apiV1.HandleFunc("/products/{id:[0-9]+}", h.DeleteProduct).Methods("DELETE")
	apiV1.HandleFunc("/products/{id:[0-9]+}/check", h.CheckProduct).Methods("POST")
}

// HealthCheck returns a simple health check response
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "pricehound",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// GetStats returns tracked product counts per category
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.monitor.Stats(r.Context())
	if err != nil {
		h.internalError(w, "Failed to get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ComparePrices runs a price discovery and waits for the result
func (h *Handlers) ComparePrices(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.discovery.DiscoverPrices(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

// ComparePricesAsync queues a price discovery and returns its task
func (h *Handlers) ComparePricesAsync(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	task, err := h.tasks.Submit(req)
	if err != nil {
		if errors.Is(err, scheduler.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id":    task.ID,
		"status":     task.Snapshot().Status,
		"status_url": "/api/v1/tasks/" + task.ID,
	})
}

// GetTaskStatus returns the current state of a discovery task
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.tasks.Get(mux.Vars(r)["taskId"])
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task.Snapshot())
}

// GetTaskStats returns worker pool statistics
func (h *Handlers) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.Stats())
}

// CreateMonitoring discovers prices and tracks every candidate found
func (h *Handlers) CreateMonitoring(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.monitor.CreateMonitoring(r.Context(), req)
	if err != nil {
		h.serviceError(w, "Failed to create monitoring", err)
		return
	}

	status := http.StatusCreated
	if result.Status == models.StatusError {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// TrackProduct starts tracking an explicit product URL
func (h *Handlers) TrackProduct(w http.ResponseWriter, r *http.Request) {
	var req models.TrackProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.monitor.TrackURL(r.Context(), req)
	if err != nil {
		h.serviceError(w, "Failed to track product", err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// ListProducts returns every active tracked product
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.monitor.ListActive(r.Context())
	if err != nil {
		h.internalError(w, "Failed to get products", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// ListProductsByCategory returns the active products of one category
func (h *Handlers) ListProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category")
		return
	}

	products, err := h.monitor.ListByCategory(r.Context(), category)
	if err != nil {
		h.internalError(w, "Failed to get products", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// ListTargetReached returns the products at or below their target price
func (h *Handlers) ListTargetReached(w http.ResponseWriter, r *http.Request) {
	products, err := h.monitor.ListTargetReached(r.Context())
	if err != nil {
		h.internalError(w, "Failed to get products", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// GetProduct returns one tracked product
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	product, err := h.monitor.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// UpdateProduct changes the name, target price or active flag of a product
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.monitor.Update(r.Context(), id, req)
	if err != nil {
		h.serviceError(w, "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct stops tracking a product
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := h.monitor.Deactivate(r.Context(), id); err != nil {
		h.serviceError(w, "Failed to delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deactivated successfully"})
}

// CheckProduct checks the price of one product now
func (h *Handlers) CheckProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	product, err := h.monitor.CheckProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Warn("Price check failed", zap.Int64("product_id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to check price")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CheckAllProducts checks every active product now
func (h *Handlers) CheckAllProducts(w http.ResponseWriter, r *http.Request) {
	checked, failed, err := h.monitor.CheckAll(r.Context(), checkAllPause)
	if err != nil {
		h.internalError(w, "Failed to check products", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"checked": checked, "failed": failed})
}

func (h *Handlers) internalError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, zap.Error(err))
	writeError(w, http.StatusInternalServerError, message)
}

// serviceError maps domain errors to client errors and everything else to 500.
func (h *Handlers) serviceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, models.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, models.ErrEmptyProductName),
		errors.Is(err, models.ErrInvalidTargetPrice),
		errors.Is(err, models.ErrInvalidReferencePrice),
		errors.Is(err, models.ErrInvalidProductURL):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.internalError(w, message, err)
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func nonNil(products []models.TrackedProduct) []models.TrackedProduct {
	if products == nil {
		return []models.TrackedProduct{}
	}
	return products
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
