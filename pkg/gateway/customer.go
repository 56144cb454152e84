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

// CustomerGateway is the typed client for the customer service.
type CustomerGateway struct {
	remote
}

func NewCustomerGateway(manager *connection.Manager, session *auth.Session, logger logging.Logger) *CustomerGateway {
	return &CustomerGateway{
		remote: newRemote(manager, session, logger),
	}
}

func (g *CustomerGateway) FindAll(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	if err := g.call(ctx, directory.ServiceCustomer, http.MethodGet, "/api/v1/customers", nil, nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (g *CustomerGateway) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	if err := g.call(ctx, directory.ServiceCustomer, http.MethodGet, "/api/v1/customers/"+id.String(), nil, nil, &customer); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &customer, nil
}

func (g *CustomerGateway) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := url.Values{"email": {email}}

	var customer domain.Customer
	if err := g.call(ctx, directory.ServiceCustomer, http.MethodGet, "/api/v1/customers/by-email", query, nil, &customer); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &customer, nil
}

// Search finds customers whose name contains the given fragment.
func (g *CustomerGateway) Search(ctx context.Context, name string) ([]domain.Customer, error) {
	query := url.Values{"name": {name}}

	var customers []domain.Customer
	if err := g.call(ctx, directory.ServiceCustomer, http.MethodGet, "/api/v1/customers/search", query, nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (g *CustomerGateway) EmailExists(ctx context.Context, email string) (bool, error) {
	query := url.Values{"email": {email}}
	return g.exists(ctx, directory.ServiceCustomer, "/api/v1/customers/email-exists", query)
}

func (g *CustomerGateway) Create(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	var created domain.Customer
	if err := g.call(ctx, directory.ServiceCustomer, http.MethodPost, "/api/v1/customers", nil, customer, &created); err != nil {
		return nil, err
	}
	g.logger.Infof("Created customer %s", created.Code)
	return &created, nil
}

func (g *CustomerGateway) Update(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	var updated domain.Customer
	if err := g.call(ctx, directory.ServiceCustomer, http.MethodPut, "/api/v1/customers/"+customer.ID.String(), nil, customer, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (g *CustomerGateway) Delete(ctx context.Context, id uuid.UUID) error {
	return g.call(ctx, directory.ServiceCustomer, http.MethodDelete, "/api/v1/customers/"+id.String(), nil, nil, nil)
}
