package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
	"github.com/dmitrijs2005/gophpantry/internal/client/config"
	"github.com/dmitrijs2005/gophpantry/internal/client/fallback"
	"github.com/dmitrijs2005/gophpantry/internal/client/models"
	"github.com/dmitrijs2005/gophpantry/internal/client/notify"
	"github.com/dmitrijs2005/gophpantry/internal/client/query"
	"github.com/dmitrijs2005/gophpantry/internal/client/services"
	"github.com/dmitrijs2005/gophpantry/internal/client/storage"
	"github.com/dmitrijs2005/gophpantry/internal/client/tokenstore"
	"github.com/dmitrijs2005/gophpantry/internal/logging"
	"github.com/dmitrijs2005/gophpantry/internal/metrics"
)

type Mode string

const (
	ModeSignedOut   Mode = "signed out"
	ModeOnline      Mode = "online"
	ModeFallback    Mode = "fallback"
	ModePlaceholder Mode = "offline"
)

type App struct {
	config *config.Config
	log    logging.Logger

	client       *apiclient.Client
	cache        *query.Cache
	kindergarten *services.Kindergarten
	surplus      *services.Surplus
	expenses     *services.Expenses
	registry     *prometheus.Registry

	Mode   Mode
	reader *bufio.Reader
	out    io.Writer

	closers []func() error
}

// NewApp wires every client component from c. in and out are the
// terminal; notifications are printed to out.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	a := &App{
		config:   c,
		log:      log,
		reader:   bufio.NewReader(in),
		out:      out,
		registry: prometheus.NewRegistry(),
		Mode:     ModeSignedOut,
	}

	store, err := a.openTokenStore(ctx)
	if err != nil {
		return nil, err
	}

	notifiers := notify.Multi{notify.NewWriterNotifier(out), notify.NewLogNotifier(log)}
	if c.NATSURL != "" {
		nc, err := notify.ConnectNATS(c.NATSURL, "pantry-"+c.Profile)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { nc.Close(); return nil })
		notifiers = append(notifiers, notify.NewNATSNotifier(nc, c.NATSSubject, c.Profile))
	}

	fallbacks, err := fallback.ForProfile(c.Profile)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	opts := []apiclient.Option{
		apiclient.WithTimeout(c.RequestTimeout),
		apiclient.WithFallbacks(fallbacks),
		apiclient.WithTokenStore(store),
		apiclient.WithNotifier(notifiers),
		apiclient.WithLogger(log.With("component", "apiclient")),
		apiclient.WithMetrics(metrics.NewPrometheus(a.registry, c.Profile)),
	}
	opts = append(opts, profileOptions(c.Profile)...)
	if c.OfflineLogin {
		opts = append(opts, apiclient.WithOfflineLogin(placeholderRole(c.Profile)))
	}

	a.client = apiclient.New(c.BaseURL, opts...)
	a.cache = query.NewCache(a.client, query.WithStaleTime(c.StaleTime), query.WithLogger(log.With("component", "query")))
	a.client.Session().OnClear(a.cache.Reset)

	a.kindergarten = services.NewKindergarten(a.cache)
	a.surplus = services.NewSurplus(a.cache)
	a.expenses = services.NewExpenses(a.cache)
	return a, nil
}

func (a *App) openTokenStore(ctx context.Context) (tokenstore.Store, error) {
	if a.config.DBPath == "" {
		return tokenstore.NewMemoryStore(), nil
	}
	db, err := storage.InitDatabase(ctx, a.config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open token database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return tokenstore.NewSQLiteStore(db), nil
}

func profileOptions(profile string) []apiclient.Option {
	switch profile {
	case fallback.ProfileSurplus:
		return []apiclient.Option{apiclient.WithIdentity(apiclient.ClaimsResolver{})}
	case fallback.ProfileExpenses:
		return []apiclient.Option{apiclient.WithoutAuth()}
	default:
		return []apiclient.Option{apiclient.WithIdentity(apiclient.WhoAmIResolver{Path: "/users/me/"})}
	}
}

// placeholderRole guesses a role for the offline placeholder user from the
// typed username.
func placeholderRole(profile string) func(string) string {
	return func(username string) string {
		u := strings.ToLower(username)
		switch profile {
		case fallback.ProfileSurplus:
			if strings.Contains(u, "store") || strings.Contains(u, "shop") {
				return string(models.RoleStore)
			}
			return string(models.RoleCustomer)
		default:
			switch {
			case strings.Contains(u, "admin"):
				return string(models.RoleAdmin)
			case strings.Contains(u, "manager"):
				return string(models.RoleManager)
			default:
				return string(models.RoleChef)
			}
		}
	}
}

// Close releases the database and the NATS connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run restores the previous session, asks for a login when there is none,
// and then serves the REPL until the user quits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.println(fmt.Sprintf("Welcome to the pantry client (%s). Type 'help' for commands.", a.config.Profile))

	if a.authRequired() {
		if _, err := a.client.Restore(ctx); err == nil {
			a.println("Session restored.")
		} else if !errors.Is(err, apiclient.ErrNoStoredSession) {
			a.log.Info(ctx, "stored session not restored", "error", err)
		}
		if !a.isLoggedIn() {
			_ = a.Login(ctx)
		}
	}
	a.refreshMode()

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(&lineReader{r: a.reader}))
}

// lineReader hands the scanner one line per Read so prompts issued by
// commands (login) can keep reading from the shared bufio.Reader.
type lineReader struct {
	r       *bufio.Reader
	pending []byte
}

func (l *lineReader) Read(p []byte) (int, error) {
	if len(l.pending) == 0 {
		line, err := l.r.ReadBytes('\n')
		if len(line) == 0 {
			return 0, err
		}
		l.pending = line
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}

func (a *App) authRequired() bool {
	return a.config.Profile != fallback.ProfileExpenses
}

func (a *App) isLoggedIn() bool {
	if !a.authRequired() {
		return true
	}
	_, ok := a.client.Session().User()
	return ok
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(context.Background(), "mode changed", "mode", string(mode))
	}
}

// refreshMode derives the mode from the session after each command.
func (a *App) refreshMode() {
	sess := a.client.Session()
	user, ok := sess.User()
	switch {
	case !ok && a.authRequired():
		a.setMode(ModeSignedOut)
	case user.Placeholder:
		a.setMode(ModePlaceholder)
	case sess.FallbackMode():
		a.setMode(ModeFallback)
	default:
		a.setMode(ModeOnline)
	}
}

func (a *App) getStatus() string {
	a.refreshMode()
	s := ""
	if user, ok := a.client.Session().User(); ok {
		s = user.Username + " "
	}
	s += string(a.Mode)
	return fmt.Sprintf("(%s)", s)
}

// StartMetricsServer serves /metrics and /healthz on the configured address
// until ctx is done. It is a no-op without an address.
func (a *App) StartMetricsServer(ctx context.Context) {
	if a.config.MetricsAddr == "" {
		return
	}
	srv := &http.Server{
		Addr:              a.config.MetricsAddr,
		Handler:           metrics.Handler(a.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		a.log.Info(ctx, "metrics listener started", "addr", a.config.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(ctx, "metrics listener stopped", "error", err)
		}
	}()
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
