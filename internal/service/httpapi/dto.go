package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type placeOrderRequest struct {
	CustomerID string             `json:"customer_id"`
	Lines      []orderLineRequest `json:"lines"`
}

type orderLineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	CustomerID  string              `json:"customer_id"`
	Status      string              `json:"status"`
	Currency    string              `json:"currency"`
	AmountMinor int64               `json:"amount_minor"`
	Lines       []orderLineResponse `json:"lines"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type orderLineResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type timelineResponse struct {
	OrderID string                  `json:"order_id"`
	Events  []timelineEventResponse `json:"events"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toLineRequests(lines []orderLineRequest) []domain.OrderLineRequest {
	out := make([]domain.OrderLineRequest, 0, len(lines))
	for _, line := range lines {
		out = append(out, domain.OrderLineRequest{
			ProductID: line.ProductID,
			Qty:       line.Qty,
		})
	}
	return out
}

func toOrderResponse(order domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			ID:         line.ID,
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
		})
	}
	return orderResponse{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Currency:    order.Currency,
		AmountMinor: order.AmountMinor,
		Lines:       lines,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func toTimelineResponse(orderID string, events []domain.TimelineEvent) timelineResponse {
	out := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	return timelineResponse{OrderID: orderID, Events: out}
}
