package apiclient

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DetailKind tags the shape of an error body's "detail" field.
type DetailKind int

const (
	DetailNone DetailKind = iota
	// DetailString: {"detail": "Incorrect username or password"}
	DetailString
	// DetailList: {"detail": [{"msg": "field required"}, ...]}
	DetailList
	// DetailOther: any other JSON value, kept as compact text.
	DetailOther
)

type DetailItem struct {
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
	Loc  []any  `json:"loc,omitempty"`
}

// ErrorDetail is the decoded "detail" of a backend error body.
type ErrorDetail struct {
	Kind    DetailKind
	Message string
	Items   []DetailItem
}

func (d *ErrorDetail) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*d = ErrorDetail{}

	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		d.Kind = DetailString
		return json.Unmarshal(b, &d.Message)
	case b[0] == '[':
		var items []DetailItem
		if err := json.Unmarshal(b, &items); err == nil {
			d.Kind = DetailList
			d.Items = items
			return nil
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	d.Kind = DetailOther
	d.Message = buf.String()
	return nil
}

// Text folds the detail into one message. List items are joined with ", ".
func (d ErrorDetail) Text() string {
	switch d.Kind {
	case DetailString, DetailOther:
		return d.Message
	case DetailList:
		msgs := make([]string, 0, len(d.Items))
		for _, it := range d.Items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, ", ")
	default:
		return ""
	}
}

type errorBody struct {
	Detail ErrorDetail `json:"detail"`
}

// ParseErrorBody extracts the detail message from an error response body.
// It returns "" when the body is not JSON or carries no usable detail.
func ParseErrorBody(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return strings.TrimSpace(eb.Detail.Text())
}
