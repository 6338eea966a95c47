package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tradeflow-dev/tradeflow/dto"
)

// resource is a typed CRUD view over one upstream collection.
type resource[T any] struct {
	c    *Client
	path string
}

func (r resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.c.Do(ctx, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodGet, r.itemPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r resource[T]) Create(ctx context.Context, in *T) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPost, r.path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r resource[T]) Update(ctx context.Context, id string, in *T) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPut, r.itemPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r resource[T]) itemPath(id string) string {
	return fmt.Sprintf("%s/%s", r.path, url.PathEscape(id))
}

// ClientsService manages customers.
type ClientsService struct{ resource[dto.Client] }

// ProductsService manages the product catalogue.
type ProductsService struct{ resource[dto.Product] }

// QuotationsService manages quotations.
type QuotationsService struct{ resource[dto.Quotation] }

// ConvertToOrder asks the upstream to raise a purchase order from an accepted
// quotation.
func (s QuotationsService) ConvertToOrder(ctx context.Context, id string) (*dto.PurchaseOrder, error) {
	var out dto.PurchaseOrder
	if err := s.c.Do(ctx, http.MethodPost, s.itemPath(id)+"/convert", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurchaseOrdersService manages purchase orders.
type PurchaseOrdersService struct{ resource[dto.PurchaseOrder] }

// DeliveryOrdersService manages delivery orders.
type DeliveryOrdersService struct{ resource[dto.DeliveryOrder] }

// UploadSignature attaches a proof-of-delivery signature image.
func (s DeliveryOrdersService) UploadSignature(ctx context.Context, id, fileName string, file io.Reader) (*dto.DeliveryOrder, error) {
	var out dto.DeliveryOrder
	err := s.c.Upload(ctx, s.itemPath(id)+"/signature", nil, "signature", fileName, file, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InvoicesService manages invoices.
type InvoicesService struct{ resource[dto.Invoice] }

// UploadPDF attaches a rendered invoice document.
func (s InvoicesService) UploadPDF(ctx context.Context, id, fileName string, file io.Reader) (*dto.Invoice, error) {
	var out dto.Invoice
	err := s.c.Upload(ctx, s.itemPath(id)+"/pdf", nil, "document", fileName, file, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UsersService manages dashboard user accounts.
type UsersService struct{ resource[dto.User] }

// Clients returns the customers service.
func (c *Client) Clients() ClientsService {
	return ClientsService{resource[dto.Client]{c: c, path: "/clients"}}
}

// Products returns the product catalogue service.
func (c *Client) Products() ProductsService {
	return ProductsService{resource[dto.Product]{c: c, path: "/products"}}
}

// Quotations returns the quotations service.
func (c *Client) Quotations() QuotationsService {
	return QuotationsService{resource[dto.Quotation]{c: c, path: "/quotations"}}
}

// PurchaseOrders returns the purchase orders service.
func (c *Client) PurchaseOrders() PurchaseOrdersService {
	return PurchaseOrdersService{resource[dto.PurchaseOrder]{c: c, path: "/purchase-orders"}}
}

// DeliveryOrders returns the delivery orders service.
func (c *Client) DeliveryOrders() DeliveryOrdersService {
	return DeliveryOrdersService{resource[dto.DeliveryOrder]{c: c, path: "/delivery-orders"}}
}

// Invoices returns the invoices service.
func (c *Client) Invoices() InvoicesService {
	return InvoicesService{resource[dto.Invoice]{c: c, path: "/invoices"}}
}

// Users returns the user accounts service.
func (c *Client) Users() UsersService {
	return UsersService{resource[dto.User]{c: c, path: "/users"}}
}
