package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/solarmon/solarmon/pkg/types"
)

// ErrInvalidProfile is returned when the profile endpoint answers without an
// email.
var ErrInvalidProfile = errors.New("server returned an invalid user profile")

// Users covers the signed-in user's profile.
type Users struct {
	c Client
}

// Current returns the signed-in user. Unlike most reads it returns its error
// since callers use it to decide whether a session is still valid.
func (u *Users) Current(ctx context.Context) (*types.User, error) {
	var out types.User
	if err := u.c.JSON(ctx, http.MethodGet, "/api/profile", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if out.Email == "" {
		return nil, ErrInvalidProfile
	}
	return &out, nil
}

// UpdateProfile changes the signed-in user's details.
func (u *Users) UpdateProfile(ctx context.Context, in types.User) (*types.User, error) {
	var out types.User
	if err := write(ctx, u.c, "update profile", http.MethodPut, "/api/profile", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivityLogs returns a page of the signed-in user's account activity.
func (u *Users) ActivityLogs(ctx context.Context, page, size int) types.Page[types.ActivityLog] {
	return readPage[types.ActivityLog](ctx, u.c, "fetch activity logs", "/api/profile/activity", nil, page, size)
}

// Customers covers admin management of customer accounts.
type Customers struct {
	c Client
}

// List returns a page of customers.
func (cs *Customers) List(ctx context.Context, page, size int) types.Page[types.Customer] {
	return readPage[types.Customer](ctx, cs.c, "fetch customers", "/api/customers", nil, page, size)
}

// Search returns a page of customers matching query.
func (cs *Customers) Search(ctx context.Context, query string, page, size int) types.Page[types.Customer] {
	return readPage[types.Customer](ctx, cs.c, "search customers", "/api/customers/search", url.Values{"query": {query}}, page, size)
}

// Get returns one customer, or nil.
func (cs *Customers) Get(ctx context.Context, customerID int64) *types.Customer {
	return readOne[types.Customer](ctx, cs.c, "fetch customer", "/api/customers/"+id(customerID), nil)
}

// Create adds a customer account.
func (cs *Customers) Create(ctx context.Context, in types.Customer) (*types.Customer, error) {
	var out types.Customer
	if err := write(ctx, cs.c, "create customer", http.MethodPost, "/api/customers", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes a customer's details.
func (cs *Customers) Update(ctx context.Context, customerID int64, in types.Customer) (*types.Customer, error) {
	var out types.Customer
	if err := write(ctx, cs.c, "update customer", http.MethodPut, "/api/customers/"+id(customerID), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deactivate disables a customer account.
func (cs *Customers) Deactivate(ctx context.Context, customerID int64) error {
	return write(ctx, cs.c, "deactivate customer", http.MethodDelete, "/api/customers/"+id(customerID), nil, nil, nil)
}

// Reactivate enables a disabled customer account.
func (cs *Customers) Reactivate(ctx context.Context, customerID int64) error {
	return write(ctx, cs.c, "reactivate customer", http.MethodPost, "/api/customers/"+id(customerID)+"/reactivate", nil, nil, nil)
}

// Activity returns a page of a customer's account activity.
func (cs *Customers) Activity(ctx context.Context, customerID int64, page, size int) types.Page[types.ActivityLog] {
	return readPage[types.ActivityLog](ctx, cs.c, "fetch customer activity", "/api/customers/"+id(customerID)+"/activity", nil, page, size)
}
