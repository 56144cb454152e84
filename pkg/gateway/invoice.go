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

// InvoiceGateway is the typed client for the invoice service.
type InvoiceGateway struct {
	remote
}

func NewInvoiceGateway(manager *connection.Manager, session *auth.Session, logger logging.Logger) *InvoiceGateway {
	return &InvoiceGateway{
		remote: newRemote(manager, session, logger),
	}
}

func (g *InvoiceGateway) FindAll(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	if err := g.call(ctx, directory.ServiceInvoice, http.MethodGet, "/api/v1/invoices", nil, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (g *InvoiceGateway) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	if err := g.call(ctx, directory.ServiceInvoice, http.MethodGet, "/api/v1/invoices/"+id.String(), nil, nil, &invoice); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &invoice, nil
}

func (g *InvoiceGateway) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Invoice, error) {
	query := url.Values{"orderID": {orderID.String()}}

	var invoices []domain.Invoice
	if err := g.call(ctx, directory.ServiceInvoice, http.MethodGet, "/api/v1/invoices/by-order", query, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (g *InvoiceGateway) FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Invoice, error) {
	query := url.Values{
		"from": {from.Format(time.RFC3339)},
		"to":   {to.Format(time.RFC3339)},
	}

	var invoices []domain.Invoice
	if err := g.call(ctx, directory.ServiceInvoice, http.MethodGet, "/api/v1/invoices/by-date", query, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (g *InvoiceGateway) FindOverdue(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	if err := g.call(ctx, directory.ServiceInvoice, http.MethodGet, "/api/v1/invoices/overdue", nil, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (g *InvoiceGateway) Create(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	var created domain.Invoice
	if err := g.call(ctx, directory.ServiceInvoice, http.MethodPost, "/api/v1/invoices", nil, invoice, &created); err != nil {
		return nil, err
	}
	g.logger.Infof("Created invoice %s", created.Number)
	return &created, nil
}

func (g *InvoiceGateway) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var updated domain.Invoice
	if err := g.call(ctx, directory.ServiceInvoice, http.MethodPut, "/api/v1/invoices/"+id.String()+"/paid", nil, nil, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (g *InvoiceGateway) Delete(ctx context.Context, id uuid.UUID) error {
	return g.call(ctx, directory.ServiceInvoice, http.MethodDelete, "/api/v1/invoices/"+id.String(), nil, nil, nil)
}
