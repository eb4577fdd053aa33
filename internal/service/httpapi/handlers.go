package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const headerIdempotencyKey = "Idempotency-Key"

// maxRequestBody ограничивает тело запроса, чтобы не читать в память
// произвольно большие payload-ы.
const maxRequestBody = 1 << 20

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}

	var req placeOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid json")
		return
	}

	idemKey := r.Header.Get(headerIdempotencyKey)
	if idemKey == "" || s.idemRepo == nil {
		s.placeOrder(w, r, req)
		return
	}

	reqHash := hashRequest(r.Method, r.URL.Path, body)
	if _, err := s.idemRepo.CreateProcessing(idemKey, reqHash, s.now().UTC().Add(idempotencyTTL)); err != nil {
		s.replayIdempotent(w, idemKey, reqHash, err)
		return
	}

	recorder := newResponseRecorder(w)
	s.placeOrder(recorder, r, req)
	s.cacheIdempotentResponse(idemKey, recorder)
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request, req placeOrderRequest) {
	order, err := s.placer.PlaceOrder(r.Context(), req.CustomerID, toLineRequests(req.Lines))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// replayIdempotent обрабатывает повторное использование idempotency-key:
// завершённые запросы отдают сохранённый ответ, незавершённые — 409.
func (s *Server) replayIdempotent(w http.ResponseWriter, idemKey, reqHash string, createErr error) {
	if errors.Is(createErr, domain.ErrIdempotencyHashMismatch) {
		writeDomainError(w, createErr)
		return
	}
	if !errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists) {
		s.logger.WithError(createErr).WithField("idempotency_key", idemKey).Error("failed to register idempotency key")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	record, err := s.idemRepo.Get(idemKey)
	if err != nil {
		s.logger.WithError(err).WithField("idempotency_key", idemKey).Error("failed to load idempotency record")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if record.RequestHash != reqHash {
		writeDomainError(w, domain.ErrIdempotencyHashMismatch)
		return
	}

	switch record.Status {
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(record.HTTPStatus)
		_, _ = w.Write(record.ResponseBody)
	default:
		writeError(w, http.StatusConflict, "request_in_progress", "request with this idempotency key is still being processed")
	}
}

func (s *Server) cacheIdempotentResponse(idemKey string, recorder *responseRecorder) {
	var err error
	if recorder.status >= http.StatusOK && recorder.status < http.StatusMultipleChoices {
		err = s.idemRepo.MarkDone(idemKey, recorder.body.Bytes(), recorder.status)
	} else {
		err = s.idemRepo.MarkFailed(idemKey, recorder.body.Bytes(), recorder.status)
	}
	if err != nil {
		s.logger.WithError(err).WithField("idempotency_key", idemKey).Warn("failed to store idempotent response")
	}
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := s.placer.GetOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	limit := defaultListOrdersLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := s.placer.ListOrders(r.Context(), customerID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := orderListResponse{Orders: make([]orderResponse, 0, len(orders))}
	for _, order := range orders {
		out.Orders = append(out.Orders, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOrderTimeline(w http.ResponseWriter, r *http.Request) {
	if s.timeline == nil {
		writeError(w, http.StatusNotFound, "timeline_disabled", "order timeline is not available")
		return
	}

	orderID := chi.URLParam(r, "orderID")
	if _, err := s.placer.GetOrder(r.Context(), orderID); err != nil {
		writeDomainError(w, err)
		return
	}

	events, err := s.timeline.List(orderID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order timeline")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toTimelineResponse(orderID, events))
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
