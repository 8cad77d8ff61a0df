package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/client/models"
	"github.com/dmitrijs2005/gophpantry/internal/client/query"
)

const (
	bagsPath    = "/surprise-bags/"
	ordersPath  = "/orders/"
	storePath   = "/store/"
	userPath    = "/user/"
	balancePath = "/user/balance/"

	MaxImageSize = 5 << 20
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type OrderAction string

const (
	ActionConfirm  OrderAction = "confirm"
	ActionCancel   OrderAction = "cancel"
	ActionComplete OrderAction = "complete"
	ActionRefund   OrderAction = "refund"
)

// transitions lists, per action, the statuses it may start from and the
// status it leads to. A refund returns the money and cancels the order.
var transitions = map[OrderAction]struct {
	from []models.OrderStatus
	to   models.OrderStatus
}{
	ActionConfirm:  {[]models.OrderStatus{models.OrderPending}, models.OrderConfirmed},
	ActionCancel:   {[]models.OrderStatus{models.OrderPending, models.OrderConfirmed}, models.OrderCancelled},
	ActionComplete: {[]models.OrderStatus{models.OrderConfirmed}, models.OrderCompleted},
	ActionRefund:   {[]models.OrderStatus{models.OrderCompleted}, models.OrderCancelled},
}

// NextStatus reports the status an order in state from ends up in after
// action, and whether the action is allowed at all.
func NextStatus(from models.OrderStatus, action OrderAction) (models.OrderStatus, bool) {
	t, ok := transitions[action]
	if !ok {
		return "", false
	}
	for _, s := range t.from {
		if s == from {
			return t.to, true
		}
	}
	return "", false
}

type BagFilter struct {
	PriceMin  *float64
	PriceMax  *float64
	StoreName string
	Search    string
}

func (f BagFilter) values() url.Values {
	v := url.Values{}
	if f.PriceMin != nil {
		v.Set("price_min", formatFloat(*f.PriceMin))
	}
	if f.PriceMax != nil {
		v.Set("price_max", formatFloat(*f.PriceMax))
	}
	if f.StoreName != "" {
		v.Set("store_name", f.StoreName)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

// DepositResult is the body of POST /user/deposit/.
type DepositResult struct {
	Message    string  `json:"message"`
	NewBalance float64 `json:"new_balance"`
}

// Surplus is the surplus-food marketplace service.
type Surplus struct {
	cache *query.Cache
}

func NewSurplus(cache *query.Cache) *Surplus {
	return &Surplus{cache: cache}
}

func (s *Surplus) Bags(ctx context.Context, f BagFilter) ([]models.SurpriseBag, error) {
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return nil, FieldErrors{"price_max": "must not be below the minimum price"}.err()
	}
	return query.Get[[]models.SurpriseBag](ctx, s.cache, apiclient.Request{Endpoint: bagsPath, Query: f.values()})
}

func (s *Surplus) StoreBags(ctx context.Context) ([]models.SurpriseBag, error) {
	return query.Get[[]models.SurpriseBag](ctx, s.cache, apiclient.Request{Endpoint: "/store/surprise-bags/"})
}

// CreateBag publishes a bag. Every field is required; image is optional.
func (s *Surplus) CreateBag(ctx context.Context, in models.BagInput, image *apiclient.FilePart) (models.SurpriseBag, error) {
	fe := FieldErrors{}
	for field, set := range map[string]bool{
		"title":          in.Title != nil,
		"description":    in.Description != nil,
		"contents":       in.Contents != nil,
		"original_price": in.OriginalPrice != nil,
		"discount_price": in.DiscountPrice != nil,
		"quantity":       in.Quantity != nil,
	} {
		if !set {
			fe.add(field, "is required")
		}
	}
	validateBag(fe, in, image)
	if err := fe.err(); err != nil {
		return models.SurpriseBag{}, err
	}
	return mutate[models.SurpriseBag](ctx, s.cache,
		apiclient.Request{Method: http.MethodPost, Endpoint: bagsPath, Body: bagForm(in, image)},
		bagsPath, storePath)
}

// UpdateBag changes only the fields set in in.
func (s *Surplus) UpdateBag(ctx context.Context, id int64, in models.BagInput, image *apiclient.FilePart) (models.SurpriseBag, error) {
	fe := FieldErrors{}
	validateBag(fe, in, image)
	if err := fe.err(); err != nil {
		return models.SurpriseBag{}, err
	}
	return mutate[models.SurpriseBag](ctx, s.cache,
		apiclient.Request{Method: http.MethodPut, Endpoint: fmt.Sprintf("/surprise-bags/%d/", id), Body: bagForm(in, image)},
		bagsPath, storePath)
}

func (s *Surplus) DeleteBag(ctx context.Context, id int64) error {
	_, err := s.cache.Mutate(ctx,
		apiclient.Request{Method: http.MethodDelete, Endpoint: fmt.Sprintf("/surprise-bags/%d/", id)},
		bagsPath, storePath)
	return err
}

// Buy orders quantity bags. The balance is charged by the backend.
func (s *Surplus) Buy(ctx context.Context, bagID int64, quantity int) (models.Order, error) {
	if quantity <= 0 {
		return models.Order{}, FieldErrors{"quantity": "must be at least 1"}.err()
	}
	return mutate[models.Order](ctx, s.cache,
		apiclient.Request{Method: http.MethodPost, Endpoint: ordersPath, Body: models.OrderCreate{SurpriseBagID: bagID, Quantity: quantity}},
		ordersPath, bagsPath, userPath)
}

func (s *Surplus) Orders(ctx context.Context) ([]models.Order, error) {
	return query.Get[[]models.Order](ctx, s.cache, apiclient.Request{Endpoint: ordersPath})
}

func (s *Surplus) StoreOrders(ctx context.Context) ([]models.Order, error) {
	return query.Get[[]models.Order](ctx, s.cache, apiclient.Request{Endpoint: "/store/orders/"})
}

// Transition applies action to order after checking locally that the
// order's current status allows it.
func (s *Surplus) Transition(ctx context.Context, order models.Order, action OrderAction) (models.Order, error) {
	if _, ok := NextStatus(order.Status, action); !ok {
		return models.Order{}, FieldErrors{"status": fmt.Sprintf("cannot %s an order that is %s", action, order.Status)}.err()
	}
	return mutate[models.Order](ctx, s.cache,
		apiclient.Request{Method: http.MethodPost, Endpoint: fmt.Sprintf("/orders/%s/%d/", action, order.ID)},
		ordersPath, storePath, bagsPath, userPath)
}

func (s *Surplus) Balance(ctx context.Context) (models.Balance, error) {
	return query.Get[models.Balance](ctx, s.cache, apiclient.Request{Endpoint: balancePath})
}

// Deposit tops up the balance. The amount travels as a query parameter.
func (s *Surplus) Deposit(ctx context.Context, amount float64) (DepositResult, error) {
	if amount <= 0 {
		return DepositResult{}, FieldErrors{"amount": "Deposit amount must be positive"}.err()
	}
	return mutate[DepositResult](ctx, s.cache,
		apiclient.Request{
			Method:   http.MethodPost,
			Endpoint: "/user/deposit/",
			Query:    url.Values{"amount": {formatFloat(amount)}},
		},
		userPath)
}

func (s *Surplus) Profile(ctx context.Context) (models.Profile, error) {
	return query.Get[models.Profile](ctx, s.cache, apiclient.Request{Endpoint: "/user/profile/"})
}

func (s *Surplus) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (models.Profile, error) {
	if in.Password != "" && len(in.Password) < 6 {
		return models.Profile{}, FieldErrors{"password": "must be at least 6 characters"}.err()
	}
	return mutate[models.Profile](ctx, s.cache,
		apiclient.Request{Method: http.MethodPut, Endpoint: "/user/update/", Body: in},
		userPath)
}

func validateBag(fe FieldErrors, in models.BagInput, image *apiclient.FilePart) {
	if in.Title != nil && blank(*in.Title) {
		fe.add("title", "Title cannot be empty")
	}
	if in.Description != nil && blank(*in.Description) {
		fe.add("description", "Description cannot be empty")
	}
	if in.Contents != nil && blank(*in.Contents) {
		fe.add("contents", "Contents cannot be empty")
	}
	if in.OriginalPrice != nil && *in.OriginalPrice <= 0 {
		fe.add("original_price", "Original price must be greater than 0")
	}
	if in.DiscountPrice != nil && *in.DiscountPrice <= 0 {
		fe.add("discount_price", "Discount price must be greater than 0")
	}
	if in.OriginalPrice != nil && in.DiscountPrice != nil && *in.DiscountPrice >= *in.OriginalPrice {
		fe.add("discount_price", "Discount price must be less than original price")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		fe.add("quantity", "Quantity must be greater than 0")
	}
	if image != nil {
		if len(image.Content) > MaxImageSize {
			fe.add("image", "Image must be 5MB or smaller")
		} else if !allowedImageTypes[http.DetectContentType(image.Content)] {
			fe.add("image", "Image must be JPEG, PNG, GIF or WebP")
		}
	}
}

func bagForm(in models.BagInput, image *apiclient.FilePart) *apiclient.Multipart {
	fields := map[string]string{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Contents != nil {
		fields["contents"] = *in.Contents
	}
	if in.OriginalPrice != nil {
		fields["original_price"] = formatFloat(*in.OriginalPrice)
	}
	if in.DiscountPrice != nil {
		fields["discount_price"] = formatFloat(*in.DiscountPrice)
	}
	if in.Quantity != nil {
		fields["quantity"] = strconv.Itoa(*in.Quantity)
	}
	if image != nil && image.Field == "" {
		img := *image
		img.Field = "image"
		image = &img
	}
	return &apiclient.Multipart{Fields: fields, File: image}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
