package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	defaultListOrdersLimit = 100
	idempotencyTTL         = 24 * time.Hour
)

// OrderPlacer — контракт размещения и чтения заказов, который HTTP-слой
// требует от сервисного слоя.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, customerID string, lines []domain.OrderLineRequest) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
}

// Server реализует HTTP API поверх сервисного слоя размещения.
type Server struct {
	placer   OrderPlacer
	timeline domain.TimelineRepository
	idemRepo domain.IdempotencyRepository
	logger   *log.Entry
	now      func() time.Time
}

// NewServer конструирует HTTP-сервер с зависимостями. timeline и idemRepo
// опциональны: без них соответствующие возможности отключены.
func NewServer(
	placer OrderPlacer,
	timeline domain.TimelineRepository,
	idemRepo domain.IdempotencyRepository,
	logger *log.Entry,
) *Server {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Server{
		placer:   placer,
		timeline: timeline,
		idemRepo: idemRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Router собирает chi-router со всеми маршрутами API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)
	r.Use(s.requestLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/orders", s.handlePlaceOrder)
		r.Get("/orders/{orderID}", s.handleGetOrder)
		r.Get("/orders/{orderID}/timeline", s.handleOrderTimeline)
		r.Get("/customers/{customerID}/orders", s.handleListOrders)
	})

	return r
}

// requestLogger пишет по одной строке structured-лога на запрос.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("http request")
	})
}
