package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophpantry/internal/client/fallback"
	"github.com/dmitrijs2005/gophpantry/internal/client/notify"
	"github.com/dmitrijs2005/gophpantry/internal/client/tokenstore"
	"github.com/dmitrijs2005/gophpantry/internal/common"
	"github.com/dmitrijs2005/gophpantry/internal/logging"
	"github.com/dmitrijs2005/gophpantry/internal/metrics"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultLoginPath = "/login/"

	maxResponseSize = 10 << 20
)

const (
	titleAuthRequired = "Authentication Required"
	titleRequestFail  = "Request Failed"
	titleUnavailable  = "Backend Not Available"
	titleLoginFailed  = "Login Failed"
	titleOfflineData  = "Using Offline Data"
	titleOfflineLogin = "Offline Mode"

	msgUnavailable   = "This feature requires a connected backend."
	msgOfflineData   = "The server could not be reached. Showing sample data instead."
	msgOfflineLogin  = "Signed in with a local placeholder identity. Nothing shown is live data."
	msgNotLoggedIn   = "Not authenticated, please log in."
	placeholderToken = "offline-"
)

// Client is the resilient API client shared by every page. It is safe for
// concurrent use.
type Client struct {
	baseURL         string
	http            *http.Client
	timeout         time.Duration
	loginPath       string
	requireAuth     bool
	offlineLogin    bool
	placeholderRole func(username string) string

	fallbacks *fallback.Registry
	identity  IdentityResolver
	store     tokenstore.Store
	notifier  notify.Notifier
	log       logging.Logger
	metrics   metrics.Recorder

	session *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLoginPath(p string) Option {
	return func(c *Client) { c.loginPath = p }
}

// WithoutAuth is for backends that have no accounts: requests never need a
// token and no Authorization header is sent.
func WithoutAuth() Option {
	return func(c *Client) {
		c.requireAuth = false
		c.identity = NoIdentity{}
	}
}

// WithOfflineLogin enables the placeholder session synthesised when the
// login endpoint cannot be reached. role maps the typed username to the
// placeholder's role; nil leaves it empty.
func WithOfflineLogin(role func(username string) string) Option {
	return func(c *Client) {
		c.offlineLogin = true
		c.placeholderRole = role
	}
}

func WithFallbacks(reg *fallback.Registry) Option {
	return func(c *Client) { c.fallbacks = reg }
}

func WithIdentity(r IdentityResolver) Option {
	return func(c *Client) { c.identity = r }
}

func WithTokenStore(s tokenstore.Store) Option {
	return func(c *Client) { c.store = s }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{},
		timeout:     DefaultTimeout,
		loginPath:   DefaultLoginPath,
		requireAuth: true,
		identity:    WhoAmIResolver{},
		store:       tokenstore.NewMemoryStore(),
		notifier:    notify.Discard{},
		log:         logging.Discard(),
		metrics:     metrics.Nop{},
		session:     NewSession(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) FallbackMode() bool { return c.session.FallbackMode() }

// Authenticate exchanges credentials for a token, resolves the user and
// commits the session. On failure the session is left as it was and exactly
// one notification is sent.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validationError("username and password are required")
	}
	if !c.session.beginAuth() {
		return nil, validationError("login already in progress")
	}
	defer c.session.endAuth()

	token, err := c.login(ctx, username, password)
	if err != nil {
		if c.offlineLogin && KindOf(err) == KindNetwork {
			return c.placeholder(ctx, username), nil
		}
		c.failLogin(ctx, err)
		return nil, err
	}

	user, err := c.identity.Resolve(ctx, token, username, c.fetchWith(token))
	if err != nil {
		c.failLogin(ctx, err)
		return nil, err
	}

	if err := c.store.Save(ctx, tokenstore.Record{Token: token, Username: username}); err != nil {
		c.log.Warn(ctx, "persist token failed", "error", err)
	}
	c.session.Init(token, user)
	c.log.Info(ctx, "logged in", "user", user.Username, "role", user.Role)
	return c.session, nil
}

// Restore resumes the session kept in durable storage. A token the backend
// rejects, or one that has expired, is dropped from storage.
func (c *Client) Restore(ctx context.Context) (*Session, error) {
	rec, ok, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if !ok || rec.Token == "" {
		return nil, &Error{Kind: KindAuthRequired, Message: "no stored session", Err: ErrNoStoredSession}
	}

	user, err := c.identity.Resolve(ctx, rec.Token, rec.Username, c.fetchWith(rec.Token))
	if err != nil {
		if KindOf(err) == KindAuthRequired {
			if cerr := c.store.Clear(ctx); cerr != nil {
				c.log.Warn(ctx, "drop stale token failed", "error", cerr)
			}
		}
		return nil, err
	}

	c.session.Init(rec.Token, user)
	c.log.Info(ctx, "session restored", "user", user.Username)
	return c.session, nil
}

// Logout forgets the token in memory and in durable storage. No request is
// made to the backend.
func (c *Client) Logout(ctx context.Context) error {
	c.session.Clear()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Request performs req against the backend.
//
// GET requests to an endpoint class already marked unreachable are answered
// from the fallback registry without touching the network. Otherwise the
// request goes out live; a network failure or 404 on an endpoint that has
// fallback data marks its class and returns the substitute payload.
func (c *Client) Request(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	method := req.method()
	req.Method = method

	route, params, hasFallback := c.fallbacks.Match(method, req.Endpoint)
	class := ""
	if hasFallback {
		class = route.Class()
	}

	if strings.TrimSpace(req.Endpoint) == "" {
		err := validationError("endpoint is required")
		c.metrics.ObserveRequest(method, class, err.Kind.outcome(), time.Since(start))
		return Result{}, err
	}

	token, epoch := c.session.snapshot()
	if c.requireAuth && token == "" {
		err := &Error{Kind: KindAuthRequired, Method: method, Endpoint: req.Endpoint, Message: msgNotLoggedIn}
		c.fail(ctx, err, class, start)
		return Result{}, err
	}
	if !c.requireAuth {
		token = ""
	}

	body, contentType, jsonBody, err := encodeBody(req.Body)
	if err != nil {
		verr := &Error{Kind: KindValidation, Method: method, Endpoint: req.Endpoint, Message: err.Error(), Err: err}
		c.metrics.ObserveRequest(method, class, verr.Kind.outcome(), time.Since(start))
		return Result{}, verr
	}

	if hasFallback && method == http.MethodGet && c.session.unreachableClass(class) {
		return c.serveFallback(ctx, req, route, params, jsonBody, epoch, start)
	}

	res, err := c.send(ctx, token, req, body, contentType)
	if err == nil {
		c.log.Debug(ctx, "request done", "method", method, "endpoint", req.Endpoint, "status", res.Status, "request_id", res.RequestID)
		c.metrics.ObserveRequest(method, class, "live", time.Since(start))
		return res, nil
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		c.metrics.ObserveRequest(method, class, "canceled", time.Since(start))
		return Result{}, err
	}

	if hasFallback && (apiErr.Kind == KindNetwork || apiErr.Kind == KindNotFound) {
		if c.session.markUnreachable(epoch, class) {
			c.log.Warn(ctx, "endpoint class unreachable, using fallback data",
				"class", class, "endpoint", req.Endpoint, "kind", apiErr.Kind.String())
		} else {
			c.log.Debug(ctx, "session changed while in flight, fallback state untouched", "class", class)
		}
		return c.serveFallback(ctx, req, route, params, jsonBody, epoch, start)
	}

	if apiErr.Kind == KindNetwork {
		apiErr.Message = msgUnavailable
	}
	c.fail(ctx, apiErr, class, start)
	return Result{}, apiErr
}

func (c *Client) serveFallback(ctx context.Context, req Request, route *fallback.Route, params fallback.Params, body []byte, epoch uint64, start time.Time) (Result, error) {
	data, err := route.Serve(fallback.Input{Params: params, Body: body})
	if err != nil {
		apiErr := &Error{Kind: KindServer, Method: req.Method, Endpoint: req.Endpoint, Message: err.Error(), Err: err}
		var rejected *fallback.RejectedError
		if !errors.As(err, &rejected) {
			apiErr.Message = "offline data unavailable"
		}
		c.fail(ctx, apiErr, route.Class(), start)
		return Result{}, apiErr
	}

	if c.session.claimFallbackNotice(epoch) {
		c.notify(ctx, notify.Notification{Title: titleOfflineData, Description: msgOfflineData, Variant: notify.VariantDefault})
	}
	c.metrics.ObserveRequest(req.Method, route.Class(), "fallback", time.Since(start))
	return Result{Data: data, Status: http.StatusOK, Source: SourceFallback}, nil
}

// send performs one live exchange and classifies the answer. The returned
// error is a *Error unless the caller's context was cancelled.
func (c *Client) send(ctx context.Context, token string, req Request, body io.Reader, contentType string) (Result, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqID := uuid.NewString()
	hreq, err := http.NewRequestWithContext(ctx, req.method(), c.baseURL+req.target(), body)
	if err != nil {
		return Result{}, &Error{Kind: KindValidation, Method: req.Method, Endpoint: req.Endpoint, Message: "invalid request", Err: err}
	}
	hreq.Header.Set("Content-Type", contentType)
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set(common.RequestIDHeader, reqID)
	if token != "" {
		hreq.Header.Set(common.AuthorizationHeader, common.BearerScheme+" "+token)
	}
	for k, vs := range req.Headers {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	return c.do(parent, hreq, req.Endpoint, reqID)
}

func (c *Client) do(parent context.Context, hreq *http.Request, endpoint, reqID string) (Result, error) {
	resp, err := c.http.Do(hreq)
	if err != nil {
		if perr := parent.Err(); perr != nil {
			return Result{}, fmt.Errorf("%s %s: %w", hreq.Method, endpoint, perr)
		}
		msg := "backend unavailable"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		return Result{}, &Error{Kind: KindNetwork, Method: hreq.Method, Endpoint: endpoint, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, &Error{Kind: KindNetwork, Method: hreq.Method, Endpoint: endpoint, Status: resp.StatusCode, Message: "read response failed", Err: err}
	}

	return classify(hreq.Method, endpoint, resp.StatusCode, data, reqID)
}

func classify(method, endpoint string, status int, data []byte, reqID string) (Result, error) {
	switch {
	case status == http.StatusNoContent:
		return Result{Status: status, RequestID: reqID}, nil
	case status >= 200 && status < 300:
		return Result{Data: data, Status: status, RequestID: reqID}, nil
	}

	e := &Error{Method: method, Endpoint: endpoint, Status: status, Message: ParseErrorBody(data)}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = KindAuthRequired
		if e.Message == "" {
			e.Message = "authentication required"
		}
	case http.StatusNotFound:
		e.Kind = KindNotFound
		if e.Message == "" {
			e.Message = "resource not found"
		}
	default:
		e.Kind = KindServer
		if e.Message == "" {
			e.Message = fmt.Sprintf("request failed with status %d", status)
		}
	}
	return Result{}, e
}

// fetchWith builds a FetchFunc bound to a token that is not yet committed.
func (c *Client) fetchWith(token string) FetchFunc {
	return func(ctx context.Context, req Request) (Result, error) {
		body, ct, _, err := encodeBody(req.Body)
		if err != nil {
			return Result{}, validationError(err.Error())
		}
		return c.send(ctx, token, req, body, ct)
	}
}

func (c *Client) login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqID := uuid.NewString()
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Kind: KindValidation, Method: http.MethodPost, Endpoint: c.loginPath, Message: "invalid login request", Err: err}
	}
	hreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set(common.RequestIDHeader, reqID)

	res, err := c.do(parent, hreq, c.loginPath, reqID)
	if err != nil {
		return "", err
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := res.Decode(&tok); err != nil || tok.AccessToken == "" {
		return "", &Error{Kind: KindServer, Method: http.MethodPost, Endpoint: c.loginPath, Status: res.Status, Message: "login response carried no token", Err: err}
	}
	return tok.AccessToken, nil
}

func (c *Client) placeholder(ctx context.Context, username string) *Session {
	role := ""
	if c.placeholderRole != nil {
		role = c.placeholderRole(username)
	}
	user := User{
		ID:          "offline",
		Username:    username,
		DisplayName: username,
		Role:        role,
		Placeholder: true,
	}
	c.session.Init(placeholderToken+uuid.NewString(), user)
	c.log.Warn(ctx, "backend unreachable, placeholder session created", "user", username, "role", role)
	c.notify(ctx, notify.Notification{Title: titleOfflineLogin, Description: msgOfflineLogin, Variant: notify.VariantDefault})
	return c.session
}

func (c *Client) failLogin(ctx context.Context, err error) {
	if KindOf(err) == KindUnknown {
		return
	}
	c.log.Info(ctx, "login failed", "error", err)
	c.notify(ctx, notify.Notification{Title: titleLoginFailed, Description: err.Error(), Variant: notify.VariantDestructive})
}

// fail records and announces a classified failure.
func (c *Client) fail(ctx context.Context, err *Error, class string, start time.Time) {
	c.metrics.ObserveRequest(err.Method, class, err.Kind.outcome(), time.Since(start))

	title := titleRequestFail
	switch err.Kind {
	case KindAuthRequired:
		title = titleAuthRequired
	case KindNetwork:
		title = titleUnavailable
	}
	if err.Kind == KindServer {
		c.log.Error(ctx, "request failed", "method", err.Method, "endpoint", err.Endpoint, "status", err.Status, "error", err.Message)
	} else {
		c.log.Info(ctx, "request failed", "method", err.Method, "endpoint", err.Endpoint, "kind", err.Kind.String())
	}
	c.notify(ctx, notify.Notification{Title: title, Description: err.Error(), Variant: notify.VariantDestructive})
}

func (c *Client) notify(ctx context.Context, n notify.Notification) {
	c.metrics.Notified(string(n.Variant))
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.log.Warn(ctx, "notification not delivered", "title", n.Title, "error", err)
	}
}
