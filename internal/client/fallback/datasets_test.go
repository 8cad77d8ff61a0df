package fallback

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/gophpantry/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, reg *Registry, method, endpoint string, body []byte) json.RawMessage {
	t.Helper()
	r, params, ok := reg.Match(method, endpoint)
	require.True(t, ok, "%s %s must have a fallback", method, endpoint)
	data, err := r.Serve(Input{Params: params, Body: body})
	require.NoError(t, err)
	return data
}

func TestForProfile_Kindergarten(t *testing.T) {
	reg, err := ForProfile(ProfileKindergarten)
	require.NoError(t, err)

	var ingredients []models.Ingredient
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/ingredients/", nil), &ingredients))
	require.Len(t, ingredients, 3)
	assert.Equal(t, "Un", ingredients[0].Name)
	assert.Equal(t, "2025-05-10", ingredients[0].DeliveryDate)

	var meals []models.Meal
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/meals/", nil), &meals))
	require.Len(t, meals, 2)
	assert.Len(t, meals[0].Ingredients, 2)

	var p models.MealPortions
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/meals/2/portions/", nil), &p))
	assert.Equal(t, models.MealPortions{MealID: 2, MealName: "Non", Portions: 50}, p)

	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/meals/99/portions/", nil), &p))
	assert.Equal(t, models.MealPortions{MealID: 99, MealName: "Unknown Meal"}, p)

	var report models.MonthlyReport
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/reports/monthly/2025/4/", nil), &report))
	require.NotNil(t, report.Warning)
	assert.Equal(t, 25.0, report.DifferencePercentage)

	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/reports/monthly/2025/5/", nil), &report))
	assert.Nil(t, report.Warning)
	assert.Equal(t, 340, report.TotalServed)

	var logs []models.LogEntry
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/logs/", nil), &logs))
	assert.Len(t, logs, 7)

	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/logs/ingredient/", nil), &logs))
	assert.Len(t, logs, 2)
	for _, l := range logs {
		assert.Contains(t, l.Action, "INGREDIENT")
	}

	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/logs/user/", nil), &logs))
	assert.Len(t, logs, 2)

	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/logs/meal/", nil), &logs))
	assert.Len(t, logs, 3)

	var serves []models.MealServe
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/serve-meals/me/", nil), &serves))
	require.Len(t, serves, 2)
	require.NotNil(t, serves[0].Meal)
	assert.Equal(t, "Palov", serves[0].Meal.Name)

	_, _, ok := reg.Match(http.MethodGet, "/users/me/")
	assert.False(t, ok, "identity is never substituted")
}

func TestForProfile_Kindergarten_ServeMealSimulation(t *testing.T) {
	reg, err := ForProfile(ProfileKindergarten)
	require.NoError(t, err)

	data := serve(t, reg, http.MethodPost, "/serve-meal/1/", []byte(`{"portions":3}`))
	assert.JSONEq(t, `{"success":true,"meal_id":1}`, string(data))

	r, params, ok := reg.Match(http.MethodPost, "/serve-meal/1/")
	require.True(t, ok)
	_, err = r.Serve(Input{Params: params, Body: []byte(`{"portions":11}`)})
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Contains(t, rejected.Message, "Not enough ingredients")
}

func TestForProfile_SurplusAndExpenses(t *testing.T) {
	reg, err := ForProfile(ProfileSurplus)
	require.NoError(t, err)

	var bags []models.SurpriseBag
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/surprise-bags/?min_price=1", nil), &bags))
	assert.Len(t, bags, 2)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/store/orders/", nil), &orders))
	assert.Empty(t, orders)

	var bal models.Balance
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/user/balance/", nil), &bal))
	assert.Zero(t, bal.Balance)

	reg, err = ForProfile(ProfileExpenses)
	require.NoError(t, err)
	var expenses []models.Expense
	require.NoError(t, json.Unmarshal(serve(t, reg, http.MethodGet, "/expenses/", nil), &expenses))
	require.Len(t, expenses, 3)
	assert.Nil(t, expenses[0].Description)
}

func TestForProfile_Unknown(t *testing.T) {
	_, err := ForProfile("bank")
	assert.Error(t, err)

	reg, err := ForProfile("")
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
}

func TestLoadDataset_Missing(t *testing.T) {
	_, err := LoadDataset("nope")
	assert.ErrorContains(t, err, `fallback dataset "nope"`)
}
