package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FetchFunc performs a live request with a token that is not yet committed
// to the session. It never substitutes fallback data.
type FetchFunc func(ctx context.Context, req Request) (Result, error)

// IdentityResolver turns a freshly issued (or restored) token into a User.
type IdentityResolver interface {
	Resolve(ctx context.Context, token, username string, fetch FetchFunc) (User, error)
}

// WhoAmIResolver asks the backend who the token belongs to.
type WhoAmIResolver struct {
	Path string
}

type whoAmI struct {
	ID       json64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

func (w WhoAmIResolver) Resolve(ctx context.Context, _ string, username string, fetch FetchFunc) (User, error) {
	path := w.Path
	if path == "" {
		path = "/users/me/"
	}
	res, err := fetch(ctx, Request{Method: http.MethodGet, Endpoint: path})
	if err != nil {
		return User{}, err
	}
	var me whoAmI
	if err := res.Decode(&me); err != nil {
		return User{}, &Error{Kind: KindServer, Status: res.Status, Endpoint: path, Message: "malformed user record", Err: err}
	}
	u := User{
		ID:          string(me.ID),
		Username:    me.Username,
		DisplayName: me.Name,
		Role:        me.Role,
	}
	if u.Username == "" {
		u.Username = username
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return u, nil
}

// json64 accepts numeric or string ids.
type json64 string

func (j *json64) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*j = json64(s)
		return nil
	}
	if string(b) == "null" {
		*j = ""
		return nil
	}
	*j = json64(b)
	return nil
}

// ClaimsResolver reads the identity out of the token's JWT claims. The
// signature is not checked: the backend does that on every request.
type ClaimsResolver struct {
	// Now is used for the expiry check; nil means time.Now.
	Now func() time.Time
}

type pantryClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var errTokenExpired = errors.New("token expired")

func (c ClaimsResolver) Resolve(_ context.Context, token, username string, _ FetchFunc) (User, error) {
	var claims pantryClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return User{}, &Error{Kind: KindAuthRequired, Message: "malformed token", Err: fmt.Errorf("parse claims: %w", err)}
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	u := User{
		ID:          claims.Subject,
		Username:    claims.Email,
		DisplayName: claims.Name,
		Role:        claims.Role,
	}
	if claims.ExpiresAt != nil {
		u.ExpiresAt = claims.ExpiresAt.Time
		if !u.ExpiresAt.After(now()) {
			return User{}, &Error{Kind: KindAuthRequired, Message: "session expired, please log in again", Err: errTokenExpired}
		}
	}
	if u.Username == "" {
		u.Username = username
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return u, nil
}

// NoIdentity is for backends without accounts.
type NoIdentity struct{}

func (NoIdentity) Resolve(_ context.Context, _, username string, _ FetchFunc) (User, error) {
	return User{Username: username, DisplayName: username}, nil
}
