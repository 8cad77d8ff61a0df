package fallback

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophpantry/internal/client/models"
	"gopkg.in/yaml.v3"
)

//go:embed datasets/*.yaml
var datasetFS embed.FS

// Profile names the bundled dataset sets.
const (
	ProfileKindergarten = "kindergarten"
	ProfileSurplus      = "surplus"
	ProfileExpenses     = "expenses"
)

// maxOfflinePortions mirrors the stock limit the kindergarten backend would
// enforce for a single serving.
const maxOfflinePortions = 10

// Dataset is one YAML file: top-level keys mapped to JSON payloads.
type Dataset map[string]json.RawMessage

// LoadDataset reads datasets/<name>.yaml and re-encodes each top-level value
// as JSON.
func LoadDataset(name string) (Dataset, error) {
	raw, err := datasetFS.ReadFile("datasets/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("fallback dataset %q: %w", name, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse dataset %q: %w", name, err)
	}

	ds := make(Dataset, len(doc))
	for key, v := range doc {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode dataset %q key %q: %w", name, key, err)
		}
		ds[key] = b
	}
	return ds, nil
}

func (d Dataset) decode(key string, v any) error {
	raw, ok := d[key]
	if !ok {
		return fmt.Errorf("dataset key %q missing", key)
	}
	return json.Unmarshal(raw, v)
}

func (d Dataset) raw(key string) json.RawMessage {
	return d[key]
}

// ForProfile builds the registry bundled for a profile. An unknown profile
// yields an empty registry.
func ForProfile(profile string) (*Registry, error) {
	switch profile {
	case ProfileKindergarten:
		return kindergarten()
	case ProfileSurplus:
		return surplus()
	case ProfileExpenses:
		return expenses()
	case "":
		return NewRegistry(), nil
	default:
		return nil, fmt.Errorf("unknown fallback profile %q", profile)
	}
}

func kindergarten() (*Registry, error) {
	ds, err := LoadDataset(ProfileKindergarten)
	if err != nil {
		return nil, err
	}

	var (
		meals    []models.Meal
		portions []models.MealPortions
		logs     []models.LogEntry
		users    []models.User
	)
	for key, dst := range map[string]any{"meals": &meals, "portions": &portions, "logs": &logs, "users": &users} {
		if err := ds.decode(key, dst); err != nil {
			return nil, err
		}
	}

	reg := NewRegistry()
	reg.Static(http.MethodGet, "/ingredients/", ds.raw("ingredients"))
	reg.Static(http.MethodGet, "/meals/", ds.raw("meals"))
	reg.Static(http.MethodGet, "/api/portions/", ds.raw("portions"))
	reg.Static(http.MethodGet, "/reports/ingredient-usage/", ds.raw("ingredient_usage"))
	reg.Static(http.MethodGet, "/users/", ds.raw("users"))
	reg.Static(http.MethodGet, "/logs/", ds.raw("logs"))

	reg.Handle(http.MethodGet, "/meals/{id}/portions/", func(in Input) (any, error) {
		id, _ := strconv.ParseInt(in.Params["id"], 10, 64)
		for _, p := range portions {
			if p.MealID == id {
				return p, nil
			}
		}
		return models.MealPortions{MealID: id, MealName: "Unknown Meal", Portions: 0}, nil
	})

	reg.Handle(http.MethodGet, "/reports/monthly/{year}/{month}/", func(in Input) (any, error) {
		if in.Params["month"] == "4" {
			return ds.raw("monthly_report_warning"), nil
		}
		return ds.raw("monthly_report"), nil
	})

	for _, kind := range []string{"user", "meal", "ingredient"} {
		kind := kind
		reg.Handle(http.MethodGet, "/logs/"+kind+"/", func(Input) (any, error) {
			return filterLogs(logs, kind), nil
		})
	}

	reg.Handle(http.MethodGet, "/serve-meals/me/", func(Input) (any, error) {
		admin := models.User{ID: 1, Username: "admin", Role: models.RoleAdmin}
		serves := make([]models.MealServe, 0, len(meals))
		for i := range meals {
			serves = append(serves, models.MealServe{
				ID:       meals[i].ID,
				MealID:   meals[i].ID,
				ServedAt: time.Now().UTC(),
				UserID:   admin.ID,
				Portions: 1,
				Meal:     &meals[i],
				User:     &admin,
			})
		}
		return serves, nil
	})

	reg.Handle(http.MethodPost, "/serve-meal/{id}/", func(in Input) (any, error) {
		var body models.MealServeInput
		if len(in.Body) > 0 {
			_ = json.Unmarshal(in.Body, &body)
		}
		if body.Portions > maxOfflinePortions {
			return nil, &RejectedError{Message: "Not enough ingredients available for this many portions"}
		}
		id, _ := strconv.ParseInt(in.Params["id"], 10, 64)
		return map[string]any{"success": true, "meal_id": id}, nil
	})

	reg.Handle(http.MethodPost, "/users/", func(in Input) (any, error) {
		var body models.UserCreate
		if len(in.Body) > 0 {
			_ = json.Unmarshal(in.Body, &body)
		}
		return models.User{ID: int64(len(users) + 1), Username: body.Username, Role: body.Role}, nil
	})

	reg.Handle(http.MethodDelete, "/users/{id}/", func(Input) (any, error) {
		return map[string]any{"success": true}, nil
	})

	return reg, nil
}

func filterLogs(logs []models.LogEntry, kind string) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(logs))
	for _, l := range logs {
		if strings.Contains(strings.ToLower(l.Action), kind) || strings.Contains(strings.ToLower(l.Details), kind) {
			out = append(out, l)
		}
	}
	return out
}

func surplus() (*Registry, error) {
	ds, err := LoadDataset(ProfileSurplus)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	reg.Static(http.MethodGet, "/surprise-bags/", ds.raw("surprise_bags"))
	reg.Static(http.MethodGet, "/orders/", ds.raw("orders"))
	reg.Static(http.MethodGet, "/store/orders/", ds.raw("store_orders"))
	reg.Static(http.MethodGet, "/user/balance/", ds.raw("balance"))
	reg.Static(http.MethodGet, "/user/profile/", ds.raw("profile"))
	return reg, nil
}

func expenses() (*Registry, error) {
	ds, err := LoadDataset(ProfileExpenses)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	reg.Static(http.MethodGet, "/expenses/", ds.raw("expenses"))
	return reg, nil
}
