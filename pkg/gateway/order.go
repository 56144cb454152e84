package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ingabireol/bizclient/pkg/auth"
	"github.com/ingabireol/bizclient/pkg/connection"
	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/domain"
	"github.com/ingabireol/bizclient/pkg/logging"

	"github.com/google/uuid"
)

// OrderGateway is the typed client for the order service.
type OrderGateway struct {
	remote
}

func NewOrderGateway(manager *connection.Manager, session *auth.Session, logger logging.Logger) *OrderGateway {
	return &OrderGateway{
		remote: newRemote(manager, session, logger),
	}
}

func (g *OrderGateway) FindAll(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := g.call(ctx, directory.ServiceOrder, http.MethodGet, "/api/v1/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *OrderGateway) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	if err := g.call(ctx, directory.ServiceOrder, http.MethodGet, "/api/v1/orders/"+id.String(), nil, nil, &order); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &order, nil
}

func (g *OrderGateway) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Order, error) {
	query := url.Values{"customerID": {customerID.String()}}

	var orders []domain.Order
	if err := g.call(ctx, directory.ServiceOrder, http.MethodGet, "/api/v1/orders/by-customer", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *OrderGateway) FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	query := url.Values{
		"from": {from.Format(time.RFC3339)},
		"to":   {to.Format(time.RFC3339)},
	}

	var orders []domain.Order
	if err := g.call(ctx, directory.ServiceOrder, http.MethodGet, "/api/v1/orders/by-date", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *OrderGateway) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	query := url.Values{"status": {status.String()}}

	var orders []domain.Order
	if err := g.call(ctx, directory.ServiceOrder, http.MethodGet, "/api/v1/orders/by-status", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *OrderGateway) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	var created domain.Order
	if err := g.call(ctx, directory.ServiceOrder, http.MethodPost, "/api/v1/orders", nil, order, &created); err != nil {
		return nil, err
	}
	g.logger.Infof("Created order %s", created.Number)
	return &created, nil
}

func (g *OrderGateway) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	body := struct {
		Status domain.OrderStatus `json:"status"`
	}{Status: status}

	var updated domain.Order
	if err := g.call(ctx, directory.ServiceOrder, http.MethodPut, "/api/v1/orders/"+id.String()+"/status", nil, body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (g *OrderGateway) Delete(ctx context.Context, id uuid.UUID) error {
	return g.call(ctx, directory.ServiceOrder, http.MethodDelete, "/api/v1/orders/"+id.String(), nil, nil, nil)
}
