package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/client/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNextStatus(t *testing.T) {
	tests := []struct {
		from   models.OrderStatus
		action OrderAction
		want   models.OrderStatus
		ok     bool
	}{
		{models.OrderPending, ActionConfirm, models.OrderConfirmed, true},
		{models.OrderPending, ActionCancel, models.OrderCancelled, true},
		{models.OrderConfirmed, ActionCancel, models.OrderCancelled, true},
		{models.OrderConfirmed, ActionComplete, models.OrderCompleted, true},
		{models.OrderCompleted, ActionRefund, models.OrderCancelled, true},
		{models.OrderPending, ActionComplete, "", false},
		{models.OrderConfirmed, ActionConfirm, "", false},
		{models.OrderCompleted, ActionCancel, "", false},
		{models.OrderCancelled, ActionRefund, "", false},
		{models.OrderPending, OrderAction("ship"), "", false},
	}
	for _, tt := range tests {
		got, ok := NextStatus(tt.from, tt.action)
		assert.Equal(t, tt.ok, ok, "%s from %s", tt.action, tt.from)
		assert.Equal(t, tt.want, got, "%s from %s", tt.action, tt.from)
	}
}

func TestSurplus_TransitionChecksStatusLocally(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, "/orders/confirm/5/", `{"id":5,"status":"confirmed"}`)
	s := NewSurplus(newCache(api))
	ctx := context.Background()

	_, err := s.Transition(ctx, models.Order{ID: 5, Status: models.OrderCompleted}, ActionConfirm)
	requireFieldErrors(t, err, "status")
	assert.Empty(t, api.requests())

	got, err := s.Transition(ctx, models.Order{ID: 5, Status: models.OrderPending}, ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, got.Status)
	assert.Equal(t, 1, api.count(http.MethodPost, "/orders/confirm/5/"))
}

func TestSurplus_Deposit(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, "/user/deposit/", `{"message":"Balance deposited successfully","new_balance":40.5}`)
	s := NewSurplus(newCache(api))
	ctx := context.Background()

	for _, amount := range []float64{0, -3} {
		_, err := s.Deposit(ctx, amount)
		requireFieldErrors(t, err, "amount")
	}
	require.Empty(t, api.requests())

	res, err := s.Deposit(ctx, 25.5)
	require.NoError(t, err)
	assert.Equal(t, 40.5, res.NewBalance)

	reqs := api.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "25.5", reqs[0].Query.Get("amount"))
	assert.Nil(t, reqs[0].Body)
}

func TestSurplus_BagsFilter(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/surprise-bags/", `[{"id":1,"title":"Bakery bag","discount_price":3}]`)
	s := NewSurplus(newCache(api))

	bags, err := s.Bags(context.Background(), BagFilter{PriceMax: ptr(5.0), Search: "bread"})
	require.NoError(t, err)
	require.Len(t, bags, 1)

	q := api.requests()[0].Query
	assert.Equal(t, "5", q.Get("price_max"))
	assert.Equal(t, "bread", q.Get("search"))
	assert.False(t, q.Has("price_min"))

	_, err = s.Bags(context.Background(), BagFilter{PriceMin: ptr(6.0), PriceMax: ptr(5.0)})
	requireFieldErrors(t, err, "price_max")
}

func TestSurplus_CreateBag(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, "/surprise-bags/", `{"id":3,"title":"Bakery bag"}`)
	s := NewSurplus(newCache(api))
	ctx := context.Background()

	_, err := s.CreateBag(ctx, models.BagInput{Title: ptr("Bakery bag")}, nil)
	requireFieldErrors(t, err, "description", "contents", "original_price", "discount_price", "quantity")

	in := models.BagInput{
		Title:         ptr("Bakery bag"),
		Description:   ptr("End of day"),
		Contents:      ptr("Bread, buns"),
		OriginalPrice: ptr(10.0),
		DiscountPrice: ptr(12.0),
		Quantity:      ptr(2),
	}
	_, err = s.CreateBag(ctx, in, nil)
	fe := requireFieldErrors(t, err, "discount_price")
	assert.Equal(t, "Discount price must be less than original price", fe["discount_price"])

	_, err = s.CreateBag(ctx, in, &apiclient.FilePart{Filename: "notes.txt", Content: []byte("plain text")})
	requireFieldErrors(t, err, "image")
	require.Empty(t, api.requests())

	in.DiscountPrice = ptr(3.5)
	bag, err := s.CreateBag(ctx, in, &apiclient.FilePart{Filename: "bag.png", Content: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, int64(3), bag.ID)

	reqs := api.requests()
	require.Len(t, reqs, 1)
	mp, ok := reqs[0].Body.(*apiclient.Multipart)
	require.True(t, ok, "bag must be sent as multipart")
	assert.Equal(t, map[string]string{
		"title":          "Bakery bag",
		"description":    "End of day",
		"contents":       "Bread, buns",
		"original_price": "10",
		"discount_price": "3.5",
		"quantity":       "2",
	}, mp.Fields)
	require.NotNil(t, mp.File)
	assert.Equal(t, "image", mp.File.Field)
}

func TestSurplus_UpdateBagSendsOnlySetFields(t *testing.T) {
	api := newFakeAPI().on(http.MethodPut, "/surprise-bags/9/", `{"id":9}`)
	s := NewSurplus(newCache(api))

	_, err := s.UpdateBag(context.Background(), 9, models.BagInput{Quantity: ptr(4)}, nil)
	require.NoError(t, err)

	mp := api.requests()[0].Body.(*apiclient.Multipart)
	assert.Equal(t, map[string]string{"quantity": "4"}, mp.Fields)
	assert.Nil(t, mp.File)
}

func TestSurplus_BuyInvalidatesBalance(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/user/balance/", `{"balance":20}`).
		on(http.MethodPost, "/orders/", `{"id":1,"status":"pending","total_price":3}`)
	s := NewSurplus(newCache(api))
	ctx := context.Background()

	_, err := s.Balance(ctx)
	require.NoError(t, err)

	_, err = s.Buy(ctx, 1, 0)
	requireFieldErrors(t, err, "quantity")

	order, err := s.Buy(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)

	_, err = s.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.count(http.MethodGet, "/user/balance/"))
}
