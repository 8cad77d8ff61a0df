package cli

import (
	"context"
	"strings"
	"time"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and authenticates against the backend.
//
// Failures are already announced through the notifier, so they are only
// logged here. With offline login enabled an unreachable backend yields a
// placeholder session; App.Mode then reads "offline".
func (a *App) Login(ctx context.Context) error {
	if !a.authRequired() {
		a.println("This backend does not require a login.")
		return nil
	}

	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	sess, err := a.client.Authenticate(ctx, userName, string(password))
	if err != nil {
		a.log.Info(ctx, "login unsuccessful", "user", userName, "error", err)
		a.refreshMode()
		return err
	}

	user, _ := sess.User()
	if user.Placeholder {
		a.println("Signed in offline as", user.Username)
	} else {
		a.println("Success!")
	}
	a.refreshMode()
	return nil
}

// Logout drops the session, the stored token and every cached response.
func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		a.log.Error(ctx, "logout", "error", err)
		return err
	}
	a.println("Logged out.")
	a.refreshMode()
	return nil
}

func (a *App) Whoami(_ context.Context) error {
	user, ok := a.client.Session().User()
	if !ok {
		a.println("Not logged in.")
		return nil
	}
	name := user.Username
	if user.DisplayName != "" && user.DisplayName != user.Username {
		name += " (" + user.DisplayName + ")"
	}
	a.println("User:", name)
	if user.ID != "" {
		a.println("ID:  ", user.ID)
	}
	if user.Role != "" {
		a.println("Role:", user.Role)
	}
	if !user.ExpiresAt.IsZero() {
		a.println("Token expires:", user.ExpiresAt.Local().Format(time.RFC1123))
	}
	if user.Placeholder {
		a.println("Signed in offline: data shown is sample data.")
	}
	return nil
}

// Status prints connectivity details: mode, session state and the endpoint
// classes currently served from fallback data.
func (a *App) Status(_ context.Context) error {
	sess := a.client.Session()
	a.println("Profile: ", a.config.Profile)
	a.println("Backend: ", a.config.BaseURL)
	a.println("Mode:    ", string(a.Mode))
	a.println("Session: ", sess.State().String())
	a.println("Cached:  ", a.cache.Len())
	if classes := sess.UnreachableClasses(); len(classes) > 0 {
		a.println("Offline: ", strings.Join(classes, ", "))
	}
	return nil
}
