package services

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/client/models"
	"github.com/dmitrijs2005/gophpantry/internal/client/query"
)

const (
	expensesPath = "/expenses/"

	// Uncategorized groups expenses the backend could not classify.
	Uncategorized = "Other"
)

var supportedCurrencies = map[string]bool{"UZS": true, "USD": true, "EUR": true}

type ExpenseFilter struct {
	Category string
	// Date restricts the list to one day; zero means any day.
	Date time.Time
}

func (f ExpenseFilter) values() url.Values {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if !f.Date.IsZero() {
		v.Set("date", f.Date.Format("2006-01-02"))
	}
	return v
}

// Expenses is the personal expense tracker service. Its backend has no
// accounts.
type Expenses struct {
	cache *query.Cache
}

func NewExpenses(cache *query.Cache) *Expenses {
	return &Expenses{cache: cache}
}

func (e *Expenses) List(ctx context.Context, f ExpenseFilter) ([]models.Expense, error) {
	return query.Get[[]models.Expense](ctx, e.cache, apiclient.Request{Endpoint: expensesPath, Query: f.values()})
}

func (e *Expenses) Create(ctx context.Context, in models.ExpenseInput) (models.Expense, error) {
	if in.Currency == "" {
		in.Currency = "UZS"
	}
	if err := validateExpense(in); err != nil {
		return models.Expense{}, err
	}
	return mutate[models.Expense](ctx, e.cache,
		apiclient.Request{Method: http.MethodPost, Endpoint: expensesPath, Body: in},
		expensesPath)
}

func (e *Expenses) Update(ctx context.Context, id string, in models.ExpenseInput) (models.Expense, error) {
	if err := validateExpense(in); err != nil {
		return models.Expense{}, err
	}
	return mutate[models.Expense](ctx, e.cache,
		apiclient.Request{Method: http.MethodPut, Endpoint: "/expenses/" + url.PathEscape(id), Body: in},
		expensesPath)
}

func (e *Expenses) Delete(ctx context.Context, id string) error {
	if blank(id) {
		return FieldErrors{"id": "is required"}.err()
	}
	_, err := e.cache.Mutate(ctx,
		apiclient.Request{Method: http.MethodDelete, Endpoint: "/expenses/" + url.PathEscape(id)},
		expensesPath)
	return err
}

type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// Summary totals one month of expenses.
type Summary struct {
	Year       int
	Month      time.Month
	Total      float64
	Count      int
	Categories []CategoryTotal
}

// MonthlySummary totals the expenses created in the given month (UTC),
// per category. Categories are ordered by total, largest first.
func MonthlySummary(expenses []models.Expense, year int, month time.Month) Summary {
	s := Summary{Year: year, Month: month}
	byCat := map[string]*CategoryTotal{}
	for _, ex := range expenses {
		at := ex.CreatedAt.UTC()
		if at.Year() != year || at.Month() != month {
			continue
		}
		cat := Uncategorized
		if ex.Category != nil && !blank(*ex.Category) {
			cat = *ex.Category
		}
		ct, ok := byCat[cat]
		if !ok {
			ct = &CategoryTotal{Category: cat}
			byCat[cat] = ct
		}
		ct.Total += ex.Amount
		ct.Count++
		s.Total += ex.Amount
		s.Count++
	}

	for _, ct := range byCat {
		s.Categories = append(s.Categories, *ct)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if s.Categories[i].Total != s.Categories[j].Total {
			return s.Categories[i].Total > s.Categories[j].Total
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})
	return s
}

func validateExpense(in models.ExpenseInput) error {
	fe := FieldErrors{}
	if blank(in.Title) {
		fe.add("title", "is required")
	}
	if in.Amount <= 0 {
		fe.add("amount", "must be greater than 0")
	}
	if in.Currency != "" && !supportedCurrencies[in.Currency] {
		fe.add("currency", "must be UZS, USD or EUR")
	}
	return fe.err()
}
