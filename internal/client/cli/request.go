package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
)

var errUsage = errors.New("usage")

// parseTarget splits "path?query" into a request. Paths are made absolute.
func parseTarget(method, raw string) (apiclient.Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return apiclient.Request{}, fmt.Errorf("bad path %q: %w", raw, err)
	}
	if u.IsAbs() || u.Host != "" {
		return apiclient.Request{}, fmt.Errorf("path %q must be relative to the backend", raw)
	}
	path := u.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req := apiclient.Request{Method: method, Endpoint: path}
	if q := u.Query(); len(q) > 0 {
		req.Query = q
	}
	return req, nil
}

// collection is the cache prefix a mutation of path invalidates: its first
// segment, e.g. "/meals/" for "/meals/3/".
func collection(path string) string {
	seg := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	if seg == "" {
		return "/"
	}
	return "/" + seg + "/"
}

// Raw issues a free-form request. GETs go through the query cache; other
// methods are mutations that invalidate the touched collection.
func (a *App) Raw(ctx context.Context, method string, args []string) error {
	if len(args) == 0 {
		a.println(fmt.Sprintf("Usage: %s <path> [json]", strings.ToLower(method)))
		return errUsage
	}
	req, err := parseTarget(method, args[0])
	if err != nil {
		a.println(err.Error())
		return err
	}

	if body := strings.TrimSpace(strings.Join(args[1:], " ")); body != "" {
		if method == http.MethodGet || method == http.MethodDelete {
			a.println(fmt.Sprintf("%s does not take a body", method))
			return errUsage
		}
		if !json.Valid([]byte(body)) {
			a.println("Body is not valid JSON.")
			return errUsage
		}
		req.Body = json.RawMessage(body)
	}

	var res apiclient.Result
	if method == http.MethodGet {
		res, err = a.cache.Query(ctx, req)
	} else {
		res, err = a.cache.Mutate(ctx, req, collection(req.Endpoint))
	}
	if err != nil {
		return a.reportError(ctx, err)
	}
	a.printResult(res)
	return nil
}

// Upload sends a multipart form. Arguments are name=value fields; a value
// starting with '@' names a file to attach (one file per request).
func (a *App) Upload(ctx context.Context, args []string) error {
	method := http.MethodPost
	if len(args) > 0 && args[0] == "-put" {
		method, args = http.MethodPut, args[1:]
	}
	if len(args) == 0 {
		a.println("Usage: upload [-put] <path> name=value... [image=@file]")
		return errUsage
	}
	req, err := parseTarget(method, args[0])
	if err != nil {
		a.println(err.Error())
		return err
	}
	kv, err := splitKV(args[1:])
	if err != nil {
		a.println(err.Error())
		return err
	}

	form := &apiclient.Multipart{Fields: map[string]string{}}
	for k, v := range kv {
		if !strings.HasPrefix(v, "@") {
			form.Fields[k] = v
			continue
		}
		if form.File != nil {
			a.println("Only one file can be attached.")
			return errUsage
		}
		name := strings.TrimPrefix(v, "@")
		content, err := os.ReadFile(name)
		if err != nil {
			a.println("Cannot read file:", err.Error())
			return err
		}
		form.File = &apiclient.FilePart{Field: k, Filename: filepath.Base(name), Content: content}
	}
	req.Body = form

	res, err := a.cache.Mutate(ctx, req, collection(req.Endpoint))
	if err != nil {
		return a.reportError(ctx, err)
	}
	a.printResult(res)
	return nil
}

func (a *App) printResult(res apiclient.Result) {
	header := fmt.Sprintf("%d", res.Status)
	if res.Source == apiclient.SourceFallback {
		header += " (offline data)"
	}
	a.println(header)
	if res.Empty() {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, res.Data, "", "  "); err != nil {
		a.println(string(res.Data))
		return
	}
	a.println(buf.String())
}

// reportError prints what the notifier does not: validation problems and
// cancellation. Classified failures were already announced.
func (a *App) reportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		a.println("Cancelled.")
	case errors.Is(err, apiclient.ErrValidation):
		a.println("Invalid input:", err.Error())
	default:
		a.log.Debug(ctx, "command failed", "error", err)
	}
	return err
}
