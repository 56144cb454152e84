package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ingabireol/bizclient/pkg/auth"
	"github.com/ingabireol/bizclient/pkg/connection"
	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/domain"
	"github.com/ingabireol/bizclient/pkg/logging"

	"github.com/google/uuid"
)

// PaymentGateway is the typed client for the payment service.
type PaymentGateway struct {
	remote
}

func NewPaymentGateway(manager *connection.Manager, session *auth.Session, logger logging.Logger) *PaymentGateway {
	return &PaymentGateway{
		remote: newRemote(manager, session, logger),
	}
}

func (g *PaymentGateway) FindAll(ctx context.Context) ([]domain.Payment, error) {
	var payments []domain.Payment
	if err := g.call(ctx, directory.ServicePayment, http.MethodGet, "/api/v1/payments", nil, nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (g *PaymentGateway) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var payment domain.Payment
	if err := g.call(ctx, directory.ServicePayment, http.MethodGet, "/api/v1/payments/"+id.String(), nil, nil, &payment); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &payment, nil
}

func (g *PaymentGateway) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.Payment, error) {
	query := url.Values{"invoiceID": {invoiceID.String()}}

	var payments []domain.Payment
	if err := g.call(ctx, directory.ServicePayment, http.MethodGet, "/api/v1/payments/by-invoice", query, nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (g *PaymentGateway) FindByMethod(ctx context.Context, method domain.PaymentMethod) ([]domain.Payment, error) {
	query := url.Values{"method": {string(method)}}

	var payments []domain.Payment
	if err := g.call(ctx, directory.ServicePayment, http.MethodGet, "/api/v1/payments/by-method", query, nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (g *PaymentGateway) Record(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	var recorded domain.Payment
	if err := g.call(ctx, directory.ServicePayment, http.MethodPost, "/api/v1/payments", nil, payment, &recorded); err != nil {
		return nil, err
	}
	g.logger.Infof("Recorded payment of %s for invoice %s", recorded.Amount, recorded.InvoiceID)
	return &recorded, nil
}

func (g *PaymentGateway) Refund(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var refunded domain.Payment
	if err := g.call(ctx, directory.ServicePayment, http.MethodPost, "/api/v1/payments/"+id.String()+"/refund", nil, nil, &refunded); err != nil {
		return nil, err
	}
	return &refunded, nil
}
