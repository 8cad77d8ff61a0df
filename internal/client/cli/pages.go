package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophpantry/internal/client/fallback"
	"github.com/dmitrijs2005/gophpantry/internal/client/models"
	"github.com/dmitrijs2005/gophpantry/internal/client/services"
)

const timeLayout = "2006-01-02 15:04"

type page func(ctx context.Context, args []string) error

// pages returns the profile's table commands by name.
func (a *App) pages() map[string]page {
	switch a.config.Profile {
	case fallback.ProfileSurplus:
		return map[string]page{
			"bags":        a.bagsPage,
			"buy":         a.buyPage,
			"orders":      a.ordersPage(false),
			"storeorders": a.ordersPage(true),
			"order":       a.orderActionPage,
			"balance":     a.balancePage,
			"deposit":     a.depositPage,
			"profile":     a.profilePage,
		}
	case fallback.ProfileExpenses:
		return map[string]page{
			"expenses":  a.expensesPage,
			"spend":     a.spendPage,
			"summary":   a.summaryPage,
			"rmexpense": a.removeExpensePage,
		}
	default:
		return map[string]page{
			"ingredients": a.ingredientsPage(false),
			"lowstock":    a.ingredientsPage(true),
			"meals":       a.mealsPage,
			"portions":    a.portionsPage,
			"served":      a.servedPage,
			"serve":       a.servePage,
			"report":      a.reportPage,
			"usage":       a.usagePage,
			"logs":        a.logsPage,
			"users":       a.usersPage,
		}
	}
}

var pageHelp = map[string]string{
	fallback.ProfileKindergarten: "ingredients, lowstock, meals, portions, served, serve <meal> <n>, report <year> <month>, usage, logs [user|meal|ingredient], users",
	fallback.ProfileSurplus:      "bags [search], buy <bag> [qty], orders, storeorders, order <confirm|cancel|complete|refund> <id>, balance, deposit <amount>, profile",
	fallback.ProfileExpenses:     "expenses [category], spend <amount> <title...>, summary [year month], rmexpense <id>",
}

// Page runs a profile table command. It reports false for unknown names.
func (a *App) Page(ctx context.Context, name string, args []string) (bool, error) {
	p, ok := a.pages()[name]
	if !ok {
		return false, nil
	}
	if err := p(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			return true, err
		}
		return true, a.reportError(ctx, err)
	}
	return true, nil
}

func (a *App) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cols ...any) {
	s := make([]string, len(cols))
	for i, c := range cols {
		s[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(s, "\t"))
}

func (a *App) usage(text string) error {
	a.println("Usage:", text)
	return errUsage
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func money(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

func qty(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// kindergarten

func (a *App) ingredientsPage(lowOnly bool) page {
	return func(ctx context.Context, _ []string) error {
		list, err := a.kindergarten.Ingredients(ctx)
		if err != nil {
			return err
		}
		if lowOnly {
			list = services.LowStock(list)
		}
		tw := a.table("ID", "NAME", "QUANTITY", "MINIMUM", "DELIVERED", "")
		for _, in := range list {
			flag := ""
			if in.LowStock() {
				flag = "LOW"
			}
			row(tw, in.ID, in.Name, qty(in.Quantity), qty(in.MinimumQuantity), in.DeliveryDate, flag)
		}
		return tw.Flush()
	}
}

func (a *App) mealsPage(ctx context.Context, _ []string) error {
	meals, err := a.kindergarten.Meals(ctx)
	if err != nil {
		return err
	}
	ingredients, err := a.kindergarten.Ingredients(ctx)
	if err != nil {
		return err
	}
	stock := services.Stock(ingredients)

	tw := a.table("ID", "MEAL", "INGREDIENTS", "POSSIBLE")
	for _, m := range meals {
		parts := make([]string, 0, len(m.Ingredients))
		for _, line := range m.Ingredients {
			name := line.Ingredient.Name
			if name == "" {
				name = fmt.Sprintf("#%d", line.IngredientID)
			}
			parts = append(parts, fmt.Sprintf("%s x%s", name, qty(line.Quantity)))
		}
		row(tw, m.ID, m.Name, strings.Join(parts, ", "), services.PossiblePortions(m, stock))
	}
	return tw.Flush()
}

func (a *App) portionsPage(ctx context.Context, _ []string) error {
	list, err := a.kindergarten.Portions(ctx)
	if err != nil {
		return err
	}
	tw := a.table("MEAL", "NAME", "PORTIONS")
	for _, p := range list {
		row(tw, p.MealID, p.MealName, p.Portions)
	}
	return tw.Flush()
}

func (a *App) servedPage(ctx context.Context, _ []string) error {
	list, err := a.kindergarten.ServedMeals(ctx)
	if err != nil {
		return err
	}
	tw := a.table("ID", "MEAL", "PORTIONS", "SERVED AT")
	for _, s := range list {
		meal := strconv.FormatInt(s.MealID, 10)
		if s.Meal != nil && s.Meal.Name != "" {
			meal = s.Meal.Name
		}
		row(tw, s.ID, meal, s.Portions, s.ServedAt.Local().Format(timeLayout))
	}
	return tw.Flush()
}

func (a *App) servePage(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("serve <meal id> <portions>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return a.usage("serve <meal id> <portions>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return a.usage("serve <meal id> <portions>")
	}
	if err := a.kindergarten.ServeMeal(ctx, id, n); err != nil {
		return err
	}
	a.println(fmt.Sprintf("Served %d portion(s) of meal %d.", n, id))
	return nil
}

func (a *App) reportPage(ctx context.Context, args []string) error {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if len(args) == 2 {
		y, errY := strconv.Atoi(args[0])
		m, errM := strconv.Atoi(args[1])
		if errY != nil || errM != nil {
			return a.usage("report [year month]")
		}
		year, month = y, m
	} else if len(args) != 0 {
		return a.usage("report [year month]")
	}

	r, err := a.kindergarten.MonthlyReport(ctx, year, month)
	if err != nil {
		return err
	}
	a.println(fmt.Sprintf("Report %04d-%02d", r.Year, r.Month))
	a.println("Served:    ", r.TotalServed)
	a.println("Possible:  ", r.TotalPossible)
	a.println(fmt.Sprintf("Difference: %.2f%%", r.DifferencePercentage))
	warning := services.ReportWarning(r.DifferencePercentage)
	if r.Warning != nil && *r.Warning != "" {
		warning = *r.Warning
	}
	if warning != "" {
		a.println(warning)
	}
	return nil
}

func (a *App) usagePage(ctx context.Context, _ []string) error {
	list, err := a.kindergarten.IngredientUsage(ctx)
	if err != nil {
		return err
	}
	tw := a.table("ID", "INGREDIENT", "USED", "DELIVERED")
	for _, u := range list {
		row(tw, u.IngredientID, u.IngredientName, qty(u.TotalUsed), u.DeliveryDate)
	}
	return tw.Flush()
}

func (a *App) logsPage(ctx context.Context, args []string) error {
	kind := services.LogsAll
	if len(args) > 0 {
		switch k := services.LogKind(args[0]); k {
		case services.LogsUser, services.LogsMeal, services.LogsIngredient:
			kind = k
		default:
			return a.usage("logs [user|meal|ingredient]")
		}
	}
	list, err := a.kindergarten.Logs(ctx, kind)
	if err != nil {
		return err
	}
	tw := a.table("TIME", "USER", "ACTION", "DETAILS")
	for _, l := range list {
		row(tw, l.Timestamp.Local().Format(timeLayout), l.UserUsername, l.Action, l.Details)
	}
	return tw.Flush()
}

func (a *App) usersPage(ctx context.Context, _ []string) error {
	list, err := a.kindergarten.Users(ctx)
	if err != nil {
		return err
	}
	tw := a.table("ID", "USERNAME", "ROLE")
	for _, u := range list {
		row(tw, u.ID, u.Username, u.Role)
	}
	return tw.Flush()
}

// surplus

func (a *App) bagsPage(ctx context.Context, args []string) error {
	list, err := a.surplus.Bags(ctx, services.BagFilter{Search: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	tw := a.table("ID", "TITLE", "STORE", "PRICE", "WAS", "LEFT", "STATUS")
	for _, b := range list {
		row(tw, b.ID, b.Title, b.StoreName, money(b.DiscountPrice), money(b.OriginalPrice), b.Quantity, b.Status)
	}
	return tw.Flush()
}

func (a *App) buyPage(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return a.usage("buy <bag id> [quantity]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return a.usage("buy <bag id> [quantity]")
	}
	n := 1
	if len(args) == 2 {
		if n, err = strconv.Atoi(args[1]); err != nil {
			return a.usage("buy <bag id> [quantity]")
		}
	}
	order, err := a.surplus.Buy(ctx, id, n)
	if err != nil {
		return err
	}
	a.println(fmt.Sprintf("Order %d placed: %s, total %s.", order.ID, order.Status, money(order.TotalPrice)))
	return nil
}

func (a *App) ordersPage(store bool) page {
	return func(ctx context.Context, _ []string) error {
		list, err := a.orders(ctx, store)
		if err != nil {
			return err
		}
		tw := a.table("ID", "STATUS", "TOTAL", "ITEMS", "CREATED")
		for _, o := range list {
			items := make([]string, 0, len(o.Items))
			for _, it := range o.Items {
				items = append(items, fmt.Sprintf("%s x%d", it.SurpriseBag.Title, it.Quantity))
			}
			row(tw, o.ID, o.Status, money(o.TotalPrice), strings.Join(items, ", "), o.CreatedAt.Local().Format(timeLayout))
		}
		return tw.Flush()
	}
}

func (a *App) orders(ctx context.Context, store bool) ([]models.Order, error) {
	if store {
		return a.surplus.StoreOrders(ctx)
	}
	return a.surplus.Orders(ctx)
}

// orderActionPage looks the order up first so the transition is checked
// against its current status before anything is sent.
func (a *App) orderActionPage(ctx context.Context, args []string) error {
	const u = "order <confirm|cancel|complete|refund> <id>"
	if len(args) != 2 {
		return a.usage(u)
	}
	action := services.OrderAction(args[0])
	id, err := parseID(args[1])
	if err != nil {
		return a.usage(u)
	}

	// Customers cancel their own orders; the other actions are the store's.
	store := action != services.ActionCancel
	if user, ok := a.client.Session().User(); ok && user.Role == string(models.RoleStore) {
		store = true
	}
	list, err := a.orders(ctx, store)
	if err != nil {
		return err
	}
	for _, o := range list {
		if o.ID != id {
			continue
		}
		updated, err := a.surplus.Transition(ctx, o, action)
		if err != nil {
			return err
		}
		a.println(fmt.Sprintf("Order %d is now %s.", updated.ID, updated.Status))
		return nil
	}
	a.println(fmt.Sprintf("Order %d not found.", id))
	return nil
}

func (a *App) balancePage(ctx context.Context, _ []string) error {
	b, err := a.surplus.Balance(ctx)
	if err != nil {
		return err
	}
	a.println("Balance:", money(b.Balance))
	return nil
}

func (a *App) depositPage(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("deposit <amount>")
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return a.usage("deposit <amount>")
	}
	res, err := a.surplus.Deposit(ctx, amount)
	if err != nil {
		return err
	}
	if res.Message != "" {
		a.println(res.Message)
	}
	a.println("Balance:", money(res.NewBalance))
	return nil
}

func (a *App) profilePage(ctx context.Context, _ []string) error {
	p, err := a.surplus.Profile(ctx)
	if err != nil {
		return err
	}
	a.println("Name:   ", p.Name)
	a.println("Email:  ", p.Email)
	if p.Phone != "" {
		a.println("Phone:  ", p.Phone)
	}
	a.println("Role:   ", p.Role)
	a.println("Balance:", money(p.Balance))
	return nil
}

// expenses

func (a *App) expensesPage(ctx context.Context, args []string) error {
	list, err := a.expenses.List(ctx, services.ExpenseFilter{Category: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	tw := a.table("ID", "DATE", "TITLE", "CATEGORY", "AMOUNT")
	for _, e := range list {
		cat := services.Uncategorized
		if e.Category != nil && *e.Category != "" {
			cat = *e.Category
		}
		row(tw, e.ID, e.CreatedAt.Local().Format("2006-01-02"), e.Title, cat, money(e.Amount))
	}
	return tw.Flush()
}

func (a *App) spendPage(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("spend <amount> <title...>")
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return a.usage("spend <amount> <title...>")
	}
	e, err := a.expenses.Create(ctx, models.ExpenseInput{Title: strings.Join(args[1:], " "), Amount: amount})
	if err != nil {
		return err
	}
	a.println(fmt.Sprintf("Recorded %s %s (%s).", money(e.Amount), e.Title, e.ID))
	return nil
}

func (a *App) removeExpensePage(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("rmexpense <id>")
	}
	if err := a.expenses.Delete(ctx, args[0]); err != nil {
		return err
	}
	a.println("Deleted.")
	return nil
}

func (a *App) summaryPage(ctx context.Context, args []string) error {
	now := time.Now()
	year, month := now.Year(), now.Month()
	if len(args) == 2 {
		y, errY := strconv.Atoi(args[0])
		m, errM := strconv.Atoi(args[1])
		if errY != nil || errM != nil || m < 1 || m > 12 {
			return a.usage("summary [year month]")
		}
		year, month = y, time.Month(m)
	} else if len(args) != 0 {
		return a.usage("summary [year month]")
	}

	list, err := a.expenses.List(ctx, services.ExpenseFilter{})
	if err != nil {
		return err
	}
	s := services.MonthlySummary(list, year, month)
	a.println(fmt.Sprintf("%s %d: %d expense(s), total %s", s.Month, s.Year, s.Count, money(s.Total)))
	tw := a.table("CATEGORY", "COUNT", "TOTAL")
	for _, c := range s.Categories {
		row(tw, c.Category, c.Count, money(c.Total))
	}
	return tw.Flush()
}
