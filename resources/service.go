// Package resources provides typed list/get/create/search access to the
// inventory API's CRUD collections.
package resources

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"github.com/inventory-mgmt/invctl/apiclient"
	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/pkg/errors"
)

// Collection names served under {base}/{name}/.
const (
	Customers               = "customers"
	Equipments              = "equipments"
	Products                = "products"
	GenericProducts         = "generic_products"
	InterchangeableProducts = "interchangeable_products"
	Orders                  = "orders"
	Users                   = "users"
)

var known = map[string]struct{}{
	Customers:               {},
	Equipments:              {},
	Products:                {},
	GenericProducts:         {},
	InterchangeableProducts: {},
	Orders:                  {},
	Users:                   {},
}

// Names lists the known collections in sorted order.
func Names() []string {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup fails with ErrUnknownResource for names outside Names().
func Lookup(name string) error {
	if _, ok := known[name]; !ok {
		return errors.Wrapf(apperrors.ErrUnknownResource, "%q", name)
	}
	return nil
}

// Service reads and writes one collection.
type Service[T any] struct {
	client   *apiclient.Client
	resource string
}

func NewService[T any](client *apiclient.Client, resource string) *Service[T] {
	return &Service[T]{client: client, resource: resource}
}

// Raw returns an untyped service for a known collection.
func Raw(client *apiclient.Client, resource string) (*Service[map[string]any], error) {
	if err := Lookup(resource); err != nil {
		return nil, err
	}
	return NewService[map[string]any](client, resource), nil
}

func NewCustomerService(client *apiclient.Client) *Service[Customer] {
	return NewService[Customer](client, Customers)
}

func NewEquipmentService(client *apiclient.Client) *Service[Equipment] {
	return NewService[Equipment](client, Equipments)
}

func NewProductService(client *apiclient.Client) *Service[Product] {
	return NewService[Product](client, Products)
}

func NewGenericProductService(client *apiclient.Client) *Service[GenericProduct] {
	return NewService[GenericProduct](client, GenericProducts)
}

func NewInterchangeableProductService(client *apiclient.Client) *Service[GenericProduct] {
	return NewService[GenericProduct](client, InterchangeableProducts)
}

func NewOrderService(client *apiclient.Client) *Service[Order] {
	return NewService[Order](client, Orders)
}

func NewUserService(client *apiclient.Client) *Service[User] {
	return NewService[User](client, Users)
}

func (s *Service[T]) Resource() string {
	return s.resource
}

func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	return s.list(ctx, nil)
}

// Search lists the items matching text (the API's ?search= filter).
func (s *Service[T]) Search(ctx context.Context, text string) ([]T, error) {
	return s.list(ctx, url.Values{"search": {text}})
}

func (s *Service[T]) Get(ctx context.Context, id int) (T, error) {
	var out T
	if err := s.client.Get(ctx, s.resource+"/"+strconv.Itoa(id), nil, &out); err != nil {
		return out, errors.Wrapf(err, "[%s.Get] id %d", s.resource, id)
	}
	return out, nil
}

// Create posts v and returns the stored item as the API echoes it.
func (s *Service[T]) Create(ctx context.Context, v T) (T, error) {
	var out T
	if err := s.client.Post(ctx, s.resource+"/", v, &out); err != nil {
		return out, errors.Wrapf(err, "[%s.Create]", s.resource)
	}
	return out, nil
}

func (s *Service[T]) list(ctx context.Context, query url.Values) ([]T, error) {
	var out []T
	if err := s.client.Get(ctx, s.resource+"/", query, &out); err != nil {
		return nil, errors.Wrapf(err, "[%s.List]", s.resource)
	}
	return out, nil
}
