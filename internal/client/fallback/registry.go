// Package fallback holds the static substitute payloads served when a
// backend endpoint is unreachable or missing.
//
// A Registry maps (method, pattern) routes to handlers. Patterns are slash
// paths where a "{name}" segment captures one path segment:
//
//	reg.Static(http.MethodGet, "/ingredients/", ingredients)
//	reg.Handle(http.MethodGet, "/meals/{id}/portions/", portionsFor)
//
// The route pattern doubles as the endpoint class the API client marks as
// unreachable.
package fallback

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Params are the values captured by "{name}" segments.
type Params map[string]string

// Input is what a handler sees of the original request.
type Input struct {
	Params Params
	Body   []byte
}

// Handler produces a substitute payload. A returned *RejectedError models a
// business rule the live backend would also enforce.
type Handler func(in Input) (any, error)

// RejectedError is returned by handlers that refuse a simulated request.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

type Route struct {
	Method   string
	Pattern  string
	segments []string
	literals int
	handler  Handler
}

// Class names the group of endpoints sharing this route.
func (r *Route) Class() string { return r.Pattern }

// Serve runs the handler and returns its payload as JSON.
func (r *Route) Serve(in Input) (json.RawMessage, error) {
	payload, err := r.handler(in)
	if err != nil {
		return nil, err
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode fallback %s %s: %w", r.Method, r.Pattern, err)
	}
	return data, nil
}

func (r *Route) match(segments []string) (Params, bool) {
	if len(segments) != len(r.segments) {
		return nil, false
	}
	var params Params
	for i, seg := range r.segments {
		if name, ok := placeholder(seg); ok {
			if params == nil {
				params = Params{}
			}
			params[name] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

type Registry struct {
	routes []*Route
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (reg *Registry) Handle(method, pattern string, h Handler) {
	segs := split(pattern)
	literals := 0
	for _, s := range segs {
		if _, ok := placeholder(s); !ok {
			literals++
		}
	}
	reg.routes = append(reg.routes, &Route{
		Method:   strings.ToUpper(method),
		Pattern:  pattern,
		segments: segs,
		literals: literals,
		handler:  h,
	})
}

// Static registers a route that always returns payload.
func (reg *Registry) Static(method, pattern string, payload any) {
	reg.Handle(method, pattern, func(Input) (any, error) { return payload, nil })
}

// Match finds the route for an endpoint. The query string is ignored and
// leading/trailing slashes are not significant. When several routes match,
// the one with the most literal segments wins.
func (reg *Registry) Match(method, endpoint string) (*Route, Params, bool) {
	if reg == nil {
		return nil, nil, false
	}
	path, _, _ := strings.Cut(endpoint, "?")
	segs := split(path)
	method = strings.ToUpper(method)

	var (
		best       *Route
		bestParams Params
	)
	for _, r := range reg.routes {
		if r.Method != method {
			continue
		}
		params, ok := r.match(segs)
		if !ok {
			continue
		}
		if best == nil || r.literals > best.literals {
			best, bestParams = r, params
		}
	}
	return best, bestParams, best != nil
}

func (reg *Registry) Len() int {
	if reg == nil {
		return 0
	}
	return len(reg.routes)
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func placeholder(seg string) (string, bool) {
	if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}
