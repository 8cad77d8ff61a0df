package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// Request describes one call against the backend. Endpoint is a path
// relative to the base URL ("/meals/", "/orders/7/confirm/"). Body is either
// a JSON-encodable value, raw JSON ([]byte or json.RawMessage) or a
// *Multipart payload. A nil Body sends no body.
type Request struct {
	Method   string
	Endpoint string
	Body     any
	Query    url.Values
	Headers  http.Header
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) target() string {
	if len(r.Query) == 0 {
		return r.Endpoint
	}
	return r.Endpoint + "?" + r.Query.Encode()
}

// FilePart is a binary file attached to a multipart request.
type FilePart struct {
	Field    string
	Filename string
	Content  []byte
}

// Multipart is a form-data body: named text fields plus an optional file.
// The content type, boundary included, comes from the multipart writer.
type Multipart struct {
	Fields map[string]string
	File   *FilePart
}

func (m *Multipart) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if m.File != nil {
		field := m.File.Field
		if field == "" {
			field = "image"
		}
		fw, err := w.CreateFormFile(field, m.File.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(m.File.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// encodeBody returns the wire body and its content type. jsonBody is the
// JSON form handed to fallback handlers, nil for multipart.
func encodeBody(body any) (wire io.Reader, contentType string, jsonBody []byte, err error) {
	switch b := body.(type) {
	case nil:
		return nil, "application/json", nil, nil
	case *Multipart:
		data, ct, err := b.encode()
		if err != nil {
			return nil, "", nil, fmt.Errorf("encode multipart: %w", err)
		}
		return bytes.NewReader(data), ct, nil, nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", b, nil
	case []byte:
		return bytes.NewReader(b), "application/json", b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", nil, fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(data), "application/json", data, nil
	}
}

type Source int

const (
	SourceLive Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "live"
}

// Result is a successful response. Data is empty for 204 No Content.
type Result struct {
	Data      json.RawMessage
	Status    int
	Source    Source
	RequestID string
}

func (r Result) Empty() bool {
	d := bytes.TrimSpace(r.Data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}

// Decode unmarshals Data into v. An empty result leaves v untouched.
func (r Result) Decode(v any) error {
	if r.Empty() {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Requester is satisfied by *Client and by anything that wraps it.
type Requester interface {
	Request(ctx context.Context, req Request) (Result, error)
}

// Fetch performs req and decodes the payload into a T.
func Fetch[T any](ctx context.Context, r Requester, req Request) (T, error) {
	var out T
	res, err := r.Request(ctx, req)
	if err != nil {
		return out, err
	}
	err = res.Decode(&out)
	return out, err
}
