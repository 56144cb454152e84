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

// ProductGateway is the typed client for the product service.
type ProductGateway struct {
	remote
}

func NewProductGateway(manager *connection.Manager, session *auth.Session, logger logging.Logger) *ProductGateway {
	return &ProductGateway{
		remote: newRemote(manager, session, logger),
	}
}

func (g *ProductGateway) FindAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := g.call(ctx, directory.ServiceProduct, http.MethodGet, "/api/v1/products", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (g *ProductGateway) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	if err := g.call(ctx, directory.ServiceProduct, http.MethodGet, "/api/v1/products/"+id.String(), nil, nil, &product); err != nil {
		return nil, notFoundAsNil(err)
	}
	return &product, nil
}

func (g *ProductGateway) FindByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	query := url.Values{"category": {category}}

	var products []domain.Product
	if err := g.call(ctx, directory.ServiceProduct, http.MethodGet, "/api/v1/products/by-category", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Search finds products whose name or SKU contains the given fragment.
func (g *ProductGateway) Search(ctx context.Context, term string) ([]domain.Product, error) {
	query := url.Values{"q": {term}}

	var products []domain.Product
	if err := g.call(ctx, directory.ServiceProduct, http.MethodGet, "/api/v1/products/search", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (g *ProductGateway) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := g.call(ctx, directory.ServiceProduct, http.MethodGet, "/api/v1/products/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (g *ProductGateway) Create(ctx context.Context, product domain.Product) (*domain.Product, error) {
	var created domain.Product
	if err := g.call(ctx, directory.ServiceProduct, http.MethodPost, "/api/v1/products", nil, product, &created); err != nil {
		return nil, err
	}
	g.logger.Infof("Created product %s", created.SKU)
	return &created, nil
}

func (g *ProductGateway) Update(ctx context.Context, product domain.Product) (*domain.Product, error) {
	var updated domain.Product
	if err := g.call(ctx, directory.ServiceProduct, http.MethodPut, "/api/v1/products/"+product.ID.String(), nil, product, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (g *ProductGateway) Delete(ctx context.Context, id uuid.UUID) error {
	return g.call(ctx, directory.ServiceProduct, http.MethodDelete, "/api/v1/products/"+id.String(), nil, nil, nil)
}
