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

// SupplierGateway is the typed client for the supplier service.
type SupplierGateway struct {
	remote
}

func NewSupplierGateway(manager *connection.Manager, session *auth.Session, logger logging.Logger) *SupplierGateway {
	return &SupplierGateway{
		remote: newRemote(manager, session, logger),
	}
}

func (g *SupplierGateway) FindAll(ctx context.Context) ([]domain.Supplier, error) {
	var suppliers []domain.Supplier
	if err := g.call(ctx, directory.ServiceSupplier, http.MethodGet, "/api/v1/suppliers", nil, nil, &suppliers); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (g *SupplierGateway) FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	if err := g.call(ctx, directory.ServiceSupplier, http.MethodGet, "/api/v1/suppliers/"+id.String(), nil, nil, &supplier); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &supplier, nil
}

func (g *SupplierGateway) FindByEmail(ctx context.Context, email string) (*domain.Supplier, error) {
	query := url.Values{"email": {email}}

	var supplier domain.Supplier
	if err := g.call(ctx, directory.ServiceSupplier, http.MethodGet, "/api/v1/suppliers/by-email", query, nil, &supplier); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &supplier, nil
}

// Search finds suppliers whose name contains the given fragment.
func (g *SupplierGateway) Search(ctx context.Context, name string) ([]domain.Supplier, error) {
	query := url.Values{"name": {name}}

	var suppliers []domain.Supplier
	if err := g.call(ctx, directory.ServiceSupplier, http.MethodGet, "/api/v1/suppliers/search", query, nil, &suppliers); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (g *SupplierGateway) Create(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	var created domain.Supplier
	if err := g.call(ctx, directory.ServiceSupplier, http.MethodPost, "/api/v1/suppliers", nil, supplier, &created); err != nil {
		return nil, err
	}
	g.logger.Infof("Created supplier %s", created.Code)
	return &created, nil
}

func (g *SupplierGateway) Update(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	var updated domain.Supplier
	if err := g.call(ctx, directory.ServiceSupplier, http.MethodPut, "/api/v1/suppliers/"+supplier.ID.String(), nil, supplier, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (g *SupplierGateway) Delete(ctx context.Context, id uuid.UUID) error {
	return g.call(ctx, directory.ServiceSupplier, http.MethodDelete, "/api/v1/suppliers/"+id.String(), nil, nil, nil)
}
