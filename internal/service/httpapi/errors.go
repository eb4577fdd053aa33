package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// mapDomainError переводит доменную ошибку в HTTP-статус и машинный код.
// Коды стабильны: клиенты различают исходы по ним, а не по тексту.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found"
	case domain.IsProductNotFound(err):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrNoProductsRequested):
		return http.StatusBadRequest, "no_products_requested"
	case errors.Is(err, domain.ErrCustomerRequired),
		errors.Is(err, domain.ErrLineProductRequired),
		errors.Is(err, domain.ErrLineQtyInvalid):
		return http.StatusBadRequest, "invalid_request"
	case domain.IsInsufficientStock(err):
		return http.StatusConflict, "insufficient_stock"
	case domain.IsStockConflict(err):
		return http.StatusConflict, "stock_race_lost"
	case domain.IsRetriable(err):
		return http.StatusServiceUnavailable, "persistence_unavailable"
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusUnprocessableEntity, "idempotency_key_reuse"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := mapDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Внутренние детали не утекают наружу.
		message = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, code, message)
}
