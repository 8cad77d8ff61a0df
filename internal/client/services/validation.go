package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophpantry/internal/client/apiclient"
)

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return strings.Join(parts, "; ")
}

func (f FieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// err returns nil when nothing was recorded, otherwise a ValidationError
// that unwraps to f.
func (f FieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &apiclient.Error{Kind: apiclient.KindValidation, Message: f.Error(), Err: f}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
