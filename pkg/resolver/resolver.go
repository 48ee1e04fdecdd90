// Package resolver turns chat arguments into an image URL by walking a remote
// keyed JSON document.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBase is the document API every query is sent to.
const DefaultBase = "https://api.thefyrewire.com/twitch/pastebin/"

const (
	defaultKey  = "default"
	maxBodySize = 1 << 20
)

var (
	// ErrValidation reports a document URL without an ID.
	ErrValidation = errors.New("resolver: invalid document url")

	// ErrLoad covers transport failures, bad status codes and malformed bodies.
	ErrLoad = errors.New("resolver: load failed")

	// ErrNotFound means the walk ended without a URL.
	ErrNotFound = errors.New("resolver: not found")
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithBase overrides DefaultBase.
func WithBase(base string) Option {
	return func(r *Resolver) { r.base = base }
}

// WithHTTPClient sets the client used for document fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// Resolver queries one document.
type Resolver struct {
	id     string
	base   string
	client *http.Client
}

// New extracts the document ID after the last '/' of documentURL.
func New(documentURL string, opts ...Option) (*Resolver, error) {
	id := documentURL[strings.LastIndex(documentURL, "/")+1:]
	if id == "" {
		return nil, fmt.Errorf("%w: no id in %q", ErrValidation, documentURL)
	}
	r := &Resolver{
		id:     id,
		base:   DefaultBase,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ID returns the document identifier.
func (r *Resolver) ID() string { return r.id }

// URL is the fetch address for a query starting with filter.
func (r *Resolver) URL(filter string) string {
	return r.base + r.id + "?" + url.Values{"filter": {filter}}.Encode()
}

// Query fetches the entry selected by args[0] and narrows it with the
// remaining arguments.
func (r *Resolver) Query(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: no arguments", ErrNotFound)
	}
	doc, err := r.fetch(ctx, args[0])
	if err != nil {
		return "", err
	}
	return Resolve(doc, args[1:])
}

func (r *Resolver) fetch(ctx context.Context, filter string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrLoad, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrLoad, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrLoad)
	}
	return body, nil
}

// Resolve walks doc with keys. Only non-empty string leaves are URLs.
func Resolve(doc []byte, keys []string) (string, error) {
	leaf, ok := Descend(gjson.ParseBytes(doc), keys, defaultKey, isBranch, lookupFold)
	if !ok || leaf.Type != gjson.String || leaf.Str == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, strings.Join(keys, " "))
	}
	return leaf.Str, nil
}

func isBranch(r gjson.Result) bool {
	return r.IsObject() || r.IsArray()
}

// lookupFold matches key against member names ignoring case. The first match
// in document order wins. Array elements are addressed by index.
func lookupFold(node gjson.Result, key string) (gjson.Result, bool) {
	var (
		found gjson.Result
		ok    bool
		index int
	)
	node.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if node.IsArray() {
			name = strconv.Itoa(index)
			index++
		}
		if strings.EqualFold(name, key) {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}
