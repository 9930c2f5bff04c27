// Package api exposes the SolarMon backend as typed domain façades. Reads
// degrade to empty values when the backend cannot answer so dashboards render
// an empty state; writes return their errors so callers can surface them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/solarmon/solarmon/pkg/apiclient"
	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/types"
)

// Client is the transport the façades use. *apiclient.Client implements it.
type Client interface {
	JSON(ctx context.Context, method, path string, query url.Values, body, dest any) error
	Credentials() apiclient.Credentials
}

// API bundles every façade over one shared client.
type API struct {
	Energy            *Energy
	Installations     *Installations
	Payments          *Payments
	PaymentCompliance *PaymentCompliance
	ServiceControl    *ServiceControl
	Security          *Security
	TamperDetection   *TamperDetection
	Auth              *Auth
	Users             *Users
	Customers         *Customers
}

// New returns the façades backed by c.
func New(c Client) *API {
	return &API{
		Energy:            &Energy{c: c},
		Installations:     &Installations{c: c},
		Payments:          &Payments{c: c},
		PaymentCompliance: &PaymentCompliance{c: c},
		ServiceControl:    &ServiceControl{c: c},
		Security:          &Security{c: c},
		TamperDetection:   newTamperDetection(c),
		Auth:              &Auth{c: c},
		Users:             &Users{c: c},
		Customers:         &Customers{c: c},
	}
}

// decodeList accepts either a bare JSON array or a page object and returns
// the items. The result is never nil.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	var list []T
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
	case '{':
		var page struct {
			Content []T `json:"content"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, err
		}
		list = page.Content
	default:
		return nil, fmt.Errorf("unexpected list payload starting with %q", raw[0])
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// decodePage is decodeList for paginated endpoints. A bare array becomes a
// single page holding every item.
func decodePage[T any](raw json.RawMessage) (types.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var p types.Page[T]
		if err := json.Unmarshal(raw, &p); err != nil {
			return types.Page[T]{}, err
		}
		if p.Content == nil {
			p.Content = []T{}
		}
		return p, nil
	}
	list, err := decodeList[T](raw)
	if err != nil {
		return types.Page[T]{}, err
	}
	return types.Page[T]{
		Content:       list,
		TotalPages:    1,
		TotalElements: len(list),
		Size:          len(list),
		Number:        0,
	}, nil
}

func readFailed(ctx context.Context, what string, err error) {
	log.Ctx(ctx).WarnContext(ctx, "failed to "+what, slog.Int("status", apiclient.StatusCode(err)), slog.Any("error", err))
}

func readList[T any](ctx context.Context, c Client, what, path string, q url.Values) []T {
	var raw json.RawMessage
	if err := c.JSON(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		readFailed(ctx, what, err)
		return []T{}
	}
	list, err := decodeList[T](raw)
	if err != nil {
		readFailed(ctx, what, err)
		return []T{}
	}
	return list
}

func readPage[T any](ctx context.Context, c Client, what, path string, q url.Values, page, size int) types.Page[T] {
	q = withPage(q, page, size)
	var raw json.RawMessage
	if err := c.JSON(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		readFailed(ctx, what, err)
		return types.EmptyPage[T](page, size)
	}
	p, err := decodePage[T](raw)
	if err != nil {
		readFailed(ctx, what, err)
		return types.EmptyPage[T](page, size)
	}
	return p
}

// readOne returns nil when the read fails or the backend has no data.
func readOne[T any](ctx context.Context, c Client, what, path string, q url.Values) *T {
	var raw json.RawMessage
	if err := c.JSON(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		readFailed(ctx, what, err)
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		readFailed(ctx, what, err)
		return nil
	}
	return &v
}

// write sends a mutating request and wraps its error with what.
func write(ctx context.Context, c Client, what, method, path string, q url.Values, body, dest any) error {
	if err := c.JSON(ctx, method, path, q, body, dest); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to "+what, slog.Int("status", apiclient.StatusCode(err)), slog.Any("error", err))
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}

func withPage(q url.Values, page, size int) url.Values {
	if q == nil {
		q = url.Values{}
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return q
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
