package services

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/client/models"
	"github.com/dmitrijs2005/gophpantry/internal/client/query"
)

// Cache prefixes of the kindergarten backend.
const (
	ingredientsPath = "/ingredients/"
	mealsPath       = "/meals/"
	portionsPath    = "/api/portions/"
	servedPath      = "/serve-meals/"
	reportsPath     = "/reports/"
	logsPath        = "/logs/"
	usersPath       = "/users/"
)

const (
	WarningMisuse  = "Warning: Potential misuse detected (difference > 15%)"
	WarningCaution = "Caution: Difference exceeds 10%"
)

type LogKind string

const (
	LogsAll        LogKind = ""
	LogsUser       LogKind = "user"
	LogsMeal       LogKind = "meal"
	LogsIngredient LogKind = "ingredient"
)

// Kindergarten is the meal and ingredient inventory service.
type Kindergarten struct {
	cache *query.Cache
}

func NewKindergarten(cache *query.Cache) *Kindergarten {
	return &Kindergarten{cache: cache}
}

func (k *Kindergarten) Ingredients(ctx context.Context) ([]models.Ingredient, error) {
	return query.Get[[]models.Ingredient](ctx, k.cache, apiclient.Request{Endpoint: ingredientsPath})
}

func (k *Kindergarten) Ingredient(ctx context.Context, id int64) (models.Ingredient, error) {
	return query.Get[models.Ingredient](ctx, k.cache, apiclient.Request{Endpoint: fmt.Sprintf("/ingredients/%d/", id)})
}

func (k *Kindergarten) CreateIngredient(ctx context.Context, in models.IngredientInput) (models.Ingredient, error) {
	if err := validateIngredient(in); err != nil {
		return models.Ingredient{}, err
	}
	return mutate[models.Ingredient](ctx, k.cache,
		apiclient.Request{Method: http.MethodPost, Endpoint: ingredientsPath, Body: in},
		ingredientsPath, portionsPath, logsPath)
}

func (k *Kindergarten) UpdateIngredient(ctx context.Context, id int64, in models.IngredientInput) (models.Ingredient, error) {
	if err := validateIngredient(in); err != nil {
		return models.Ingredient{}, err
	}
	return mutate[models.Ingredient](ctx, k.cache,
		apiclient.Request{Method: http.MethodPut, Endpoint: fmt.Sprintf("/ingredients/%d/", id), Body: in},
		ingredientsPath, mealsPath, portionsPath, logsPath)
}

func (k *Kindergarten) DeleteIngredient(ctx context.Context, id int64) error {
	_, err := k.cache.Mutate(ctx,
		apiclient.Request{Method: http.MethodDelete, Endpoint: fmt.Sprintf("/ingredients/%d/", id)},
		ingredientsPath, mealsPath, portionsPath, logsPath)
	return err
}

func (k *Kindergarten) Meals(ctx context.Context) ([]models.Meal, error) {
	return query.Get[[]models.Meal](ctx, k.cache, apiclient.Request{Endpoint: mealsPath})
}

func (k *Kindergarten) CreateMeal(ctx context.Context, in models.MealInput) (models.Meal, error) {
	if err := validateMeal(in); err != nil {
		return models.Meal{}, err
	}
	return mutate[models.Meal](ctx, k.cache,
		apiclient.Request{Method: http.MethodPost, Endpoint: mealsPath, Body: in},
		mealsPath, portionsPath, logsPath)
}

func (k *Kindergarten) UpdateMeal(ctx context.Context, id int64, in models.MealInput) (models.Meal, error) {
	if err := validateMeal(in); err != nil {
		return models.Meal{}, err
	}
	return mutate[models.Meal](ctx, k.cache,
		apiclient.Request{Method: http.MethodPut, Endpoint: fmt.Sprintf("/meals/%d/", id), Body: in},
		mealsPath, portionsPath, logsPath)
}

func (k *Kindergarten) DeleteMeal(ctx context.Context, id int64) error {
	_, err := k.cache.Mutate(ctx,
		apiclient.Request{Method: http.MethodDelete, Endpoint: fmt.Sprintf("/meals/%d/", id)},
		mealsPath, portionsPath, logsPath)
	return err
}

// ServeMeal records served portions. Stock, portion counts, served lists,
// reports and logs all change, so every one of them is invalidated once
// the backend has answered.
func (k *Kindergarten) ServeMeal(ctx context.Context, mealID int64, portions int) error {
	if portions <= 0 {
		return FieldErrors{"portions": "must be at least 1"}.err()
	}
	_, err := k.cache.Mutate(ctx,
		apiclient.Request{
			Method:   http.MethodPost,
			Endpoint: fmt.Sprintf("/serve-meal/%d/", mealID),
			Body:     models.MealServeInput{Portions: portions},
		},
		ingredientsPath, mealsPath, portionsPath, servedPath, reportsPath, logsPath)
	return err
}

func (k *Kindergarten) ServedMeals(ctx context.Context) ([]models.MealServe, error) {
	return query.Get[[]models.MealServe](ctx, k.cache, apiclient.Request{Endpoint: "/serve-meals/me/"})
}

// Portions lists portions served per meal.
func (k *Kindergarten) Portions(ctx context.Context) ([]models.MealPortions, error) {
	return query.Get[[]models.MealPortions](ctx, k.cache, apiclient.Request{Endpoint: portionsPath})
}

// MealPortions asks the backend how many portions of a meal the stock allows.
func (k *Kindergarten) MealPortions(ctx context.Context, mealID int64) (models.MealPortions, error) {
	return query.Get[models.MealPortions](ctx, k.cache, apiclient.Request{Endpoint: fmt.Sprintf("/meals/%d/portions/", mealID)})
}

func (k *Kindergarten) MonthlyReport(ctx context.Context, year, month int) (models.MonthlyReport, error) {
	fe := FieldErrors{}
	if month < 1 || month > 12 {
		fe.add("month", "must be between 1 and 12")
	}
	if year < 2000 {
		fe.add("year", "is out of range")
	}
	if err := fe.err(); err != nil {
		return models.MonthlyReport{}, err
	}
	return query.Get[models.MonthlyReport](ctx, k.cache, apiclient.Request{Endpoint: fmt.Sprintf("/reports/monthly/%d/%d/", year, month)})
}

func (k *Kindergarten) IngredientUsage(ctx context.Context) ([]models.IngredientUsage, error) {
	return query.Get[[]models.IngredientUsage](ctx, k.cache, apiclient.Request{Endpoint: "/reports/ingredient-usage/"})
}

func (k *Kindergarten) Logs(ctx context.Context, kind LogKind) ([]models.LogEntry, error) {
	ep := logsPath
	if kind != LogsAll {
		ep = logsPath + string(kind) + "/"
	}
	return query.Get[[]models.LogEntry](ctx, k.cache, apiclient.Request{Endpoint: ep})
}

func (k *Kindergarten) Users(ctx context.Context) ([]models.User, error) {
	return query.Get[[]models.User](ctx, k.cache, apiclient.Request{Endpoint: usersPath})
}

func (k *Kindergarten) CreateUser(ctx context.Context, in models.UserCreate) (models.User, error) {
	fe := FieldErrors{}
	if blank(in.Username) {
		fe.add("username", "is required")
	}
	if len(in.Password) < 6 {
		fe.add("password", "must be at least 6 characters")
	}
	switch in.Role {
	case "", models.RoleAdmin, models.RoleChef, models.RoleManager:
	default:
		fe.add("role", "must be ADMIN, CHEF or MANAGER")
	}
	if err := fe.err(); err != nil {
		return models.User{}, err
	}
	return mutate[models.User](ctx, k.cache,
		apiclient.Request{Method: http.MethodPost, Endpoint: usersPath, Body: in},
		usersPath, logsPath)
}

func (k *Kindergarten) DeleteUser(ctx context.Context, id int64) error {
	_, err := k.cache.Mutate(ctx,
		apiclient.Request{Method: http.MethodDelete, Endpoint: fmt.Sprintf("/users/%d/", id)},
		usersPath, logsPath)
	return err
}

// PossiblePortions is how many whole portions of meal the stock allows:
// the smallest stock/recipe ratio over the meal's ingredients, rounded down.
// Recipe lines with zero quantity are ignored. A meal without usable lines
// yields 0. Ingredients missing from stock count as empty.
func PossiblePortions(meal models.Meal, stock map[int64]float64) int {
	portions := math.Inf(1)
	for _, line := range meal.Ingredients {
		if line.Quantity <= 0 {
			continue
		}
		portions = math.Min(portions, stock[line.IngredientID]/line.Quantity)
	}
	if math.IsInf(portions, 1) || portions < 0 {
		return 0
	}
	return int(math.Floor(portions))
}

// Stock indexes ingredient quantities by id.
func Stock(ingredients []models.Ingredient) map[int64]float64 {
	out := make(map[int64]float64, len(ingredients))
	for _, in := range ingredients {
		out[in.ID] = in.Quantity
	}
	return out
}

func LowStock(ingredients []models.Ingredient) []models.Ingredient {
	var out []models.Ingredient
	for _, in := range ingredients {
		if in.LowStock() {
			out = append(out, in)
		}
	}
	return out
}

// DifferencePercentage compares served portions with possible ones, rounded
// to two decimals. No possible portions means no difference.
func DifferencePercentage(served, possible int) float64 {
	if possible == 0 {
		return 0
	}
	d := float64(served-possible) / float64(possible) * 100
	return math.Round(d*100) / 100
}

// ReportWarning returns the warning a monthly report carries for the given
// difference, or "" when it is within 10%.
func ReportWarning(diffPercent float64) string {
	switch d := math.Abs(diffPercent); {
	case d > 15:
		return WarningMisuse
	case d > 10:
		return WarningCaution
	default:
		return ""
	}
}

func validateIngredient(in models.IngredientInput) error {
	fe := FieldErrors{}
	if blank(in.Name) {
		fe.add("name", "is required")
	}
	if in.Quantity < 0 {
		fe.add("quantity", "cannot be negative")
	}
	if in.MinimumQuantity != nil && *in.MinimumQuantity < 0 {
		fe.add("minimum_quantity", "cannot be negative")
	}
	if _, err := parseDate(in.DeliveryDate); err != nil {
		fe.add("delivery_date", "must be a date like 2025-03-01")
	}
	return fe.err()
}

func validateMeal(in models.MealInput) error {
	fe := FieldErrors{}
	if blank(in.Name) {
		fe.add("name", "is required")
	}
	if len(in.Ingredients) == 0 {
		fe.add("ingredients", "at least one ingredient is required")
	}
	seen := map[int64]bool{}
	for _, line := range in.Ingredients {
		if line.Quantity <= 0 {
			fe.add("ingredients", "quantities must be greater than 0")
		}
		if seen[line.IngredientID] {
			fe.add("ingredients", "an ingredient can only be listed once")
		}
		seen[line.IngredientID] = true
	}
	return fe.err()
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// mutate sends a write through the cache and decodes its response.
func mutate[T any](ctx context.Context, c *query.Cache, req apiclient.Request, invalidate ...string) (T, error) {
	var out T
	res, err := c.Mutate(ctx, req, invalidate...)
	if err != nil {
		return out, err
	}
	err = res.Decode(&out)
	return out, err
}
