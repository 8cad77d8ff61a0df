package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/client/query"
)

// fakeAPI answers from canned payloads keyed by "METHOD /path/" and records
// every request it sees.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	seen      []apiclient.Request
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeAPI) on(method, endpoint, body string) *fakeAPI {
	f.responses[method+" "+endpoint] = body
	return f
}

func (f *fakeAPI) Request(_ context.Context, req apiclient.Request) (apiclient.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	f.seen = append(f.seen, req)
	key := method + " " + req.Endpoint
	if err, ok := f.errs[key]; ok {
		return apiclient.Result{}, err
	}
	body, ok := f.responses[key]
	if !ok {
		return apiclient.Result{}, &apiclient.Error{Kind: apiclient.KindNotFound, Endpoint: req.Endpoint, Message: "resource not found"}
	}
	return apiclient.Result{Data: json.RawMessage(body), Status: http.StatusOK}, nil
}

func (f *fakeAPI) requests() []apiclient.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiclient.Request(nil), f.seen...)
}

func (f *fakeAPI) count(method, endpoint string) int {
	n := 0
	for _, r := range f.requests() {
		m := r.Method
		if m == "" {
			m = http.MethodGet
		}
		if m == method && r.Endpoint == endpoint {
			n++
		}
	}
	return n
}

func newCache(f *fakeAPI) *query.Cache {
	return query.NewCache(f)
}

func requireFieldErrors(t *testing.T, err error, fields ...string) FieldErrors {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, apiclient.ErrValidation)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe), "expected FieldErrors, got %T", err)
	for _, f := range fields {
		require.Contains(t, fe, f)
	}
	return fe
}

func ptr[T any](v T) *T { return &v }
