package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
)

type HTTPHandler struct {
	inventory *service.InventoryService
	book      *service.OrderBookService
	logger    *zap.Logger
}

func NewHTTPHandler(inventory *service.InventoryService, book *service.OrderBookService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, book: book, logger: logger}
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CreateItemRequest struct {
	Name            string `json:"name"`
	PricePerUnit    string `json:"price_per_unit"`
	Kind            string `json:"kind"`
	Weight          string `json:"weight,omitempty"`
	MeasurementUnit string `json:"measurement_unit,omitempty"`
}

type ItemResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PricePerUnit    string `json:"price_per_unit"`
	Kind            string `json:"kind"`
	Weight          string `json:"weight,omitempty"`
	MeasurementUnit string `json:"measurement_unit,omitempty"`
}

type AddStockRequest struct {
	ItemID string `json:"item_id"`
	Amount string `json:"amount"`
}

type StockResponse struct {
	ItemID   string `json:"item_id"`
	Quantity string `json:"quantity"`
}

type QueueOrderRequest struct {
	Lines []OrderLineRequest `json:"lines"`
}

type OrderLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity string `json:"quantity"`
}

type OrderLineResponse struct {
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	UnitPrice string `json:"unit_price"`
	Quantity  string `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type OrderResponse struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Lines     []OrderLineResponse `json:"lines"`
	Summary   string              `json:"summary"`
	Total     string              `json:"total"`
}

type ProcessResponse struct {
	Order   OrderResponse `json:"order"`
	Revenue string        `json:"revenue"`
}

type RevenueResponse struct {
	Revenue string `json:"revenue"`
}

// CreateItem registers a new catalog item.
func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.PricePerUnit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid price_per_unit"})
		return
	}

	var item domain.Item
	switch domain.ItemKind(req.Kind) {
	case domain.ItemKindUnit:
		weight := decimal.Zero
		if req.Weight != "" {
			if weight, err = decimal.NewFromString(req.Weight); err != nil {
				writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid weight"})
				return
			}
		}
		item, err = domain.NewUnitItem(req.Name, price, weight)
	case domain.ItemKindBulk:
		item, err = domain.NewBulkItem(req.Name, price, req.MeasurementUnit)
	default:
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "kind must be unit or bulk"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: err.Error()})
		return
	}

	if err := h.inventory.RegisterItem(item); err != nil {
		writeJSON(w, http.StatusConflict, StatusResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, itemResponse(item))
}

// AddStock receives stock for a registered item.
func (h *HTTPHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AddStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid amount"})
		return
	}

	if err := h.inventory.AddStock(r.Context(), req.ItemID, amount); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrUnknownItem):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrInvalidAmount):
			status = http.StatusBadRequest
		}
		writeJSON(w, status, StatusResponse{Message: err.Error()})
		return
	}

	qty, err := h.inventory.Quantity(r.Context(), req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, StatusResponse{Message: "stock query failed"})
		return
	}
	writeJSON(w, http.StatusOK, StockResponse{ItemID: req.ItemID, Quantity: qty.String()})
}

// LowStock lists items below the given (or default) threshold.
func (h *HTTPHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threshold := service.DefaultLowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid threshold"})
			return
		}
		threshold = parsed
	}

	items, err := h.inventory.LowStock(r.Context(), threshold)
	if err != nil {
		h.logger.Error("low stock query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, StatusResponse{Message: "internal error"})
		return
	}

	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

// QueueOrder builds an order from catalog items and appends it to the queue.
func (h *HTTPHandler) QueueOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req QueueOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid request body"})
		return
	}

	order := domain.NewOrder()
	for _, line := range req.Lines {
		item, ok := h.inventory.Item(line.ItemID)
		if !ok {
			writeJSON(w, http.StatusNotFound, StatusResponse{Message: "unknown item " + line.ItemID})
			return
		}
		qty, err := decimal.NewFromString(line.Quantity)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid quantity"})
			return
		}
		if err := order.AddLine(item, qty); err != nil {
			writeJSON(w, http.StatusBadRequest, StatusResponse{Message: err.Error()})
			return
		}
	}

	if err := h.book.QueueOrder(order); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(order))
}

// ProcessNext runs the processing transaction for the head of the queue.
func (h *HTTPHandler) ProcessNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	order, err := h.book.ProcessNext(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		if errors.Is(err, service.ErrEmptyQueue) {
			status = http.StatusNotFound
			message = "queue empty"
		} else if errors.Is(err, service.ErrInsufficientStock) {
			status = http.StatusConflict
			message = "insufficient stock"
		} else {
			h.logger.Error("process next failed", zap.Error(err))
		}

		writeJSON(w, status, StatusResponse{Message: message})
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Order:   orderResponse(*order),
		Revenue: h.book.TotalRevenue().String(),
	})
}

// QueuedOrders renders the pending queue, head first.
func (h *HTTPHandler) QueuedOrders(w http.ResponseWriter, r *http.Request) {
	h.writeOrders(w, r, h.book.QueuedOrders)
}

// ProcessedOrders renders the processing history.
func (h *HTTPHandler) ProcessedOrders(w http.ResponseWriter, r *http.Request) {
	h.writeOrders(w, r, h.book.ProcessedOrders)
}

func (h *HTTPHandler) writeOrders(w http.ResponseWriter, r *http.Request, list func() []domain.Order) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orders := list()
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

// Revenue renders the running total over processed orders.
func (h *HTTPHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, RevenueResponse{Revenue: h.book.TotalRevenue().String()})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func itemResponse(item domain.Item) ItemResponse {
	resp := ItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		PricePerUnit: item.PricePerUnit.String(),
		Kind:         string(item.Kind),
	}
	switch item.Kind {
	case domain.ItemKindUnit:
		resp.Weight = item.Weight.String()
	case domain.ItemKindBulk:
		resp.MeasurementUnit = item.MeasurementUnit
	}
	return resp
}

func orderResponse(order domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, OrderLineResponse{
			ItemID:    l.ItemID,
			ItemName:  l.ItemName,
			UnitPrice: l.UnitPrice.String(),
			Quantity:  l.Quantity.String(),
			LineTotal: l.LineTotal().String(),
		})
	}
	return OrderResponse{
		ID:        order.ID,
		CreatedAt: order.CreatedAt,
		Lines:     lines,
		Summary:   order.LinesDisplay(),
		Total:     order.Total().String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
