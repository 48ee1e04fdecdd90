// Package resolve looks a name up the way a chat command would.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/teamviz/pkg/resolver"
)

// Result is the JSON form of a lookup.
type Result struct {
	Args  []string `json:"args"`
	Query string   `json:"query"`
	URL   string   `json:"url"`
}

// Resolve runs one lookup against Resolver.
type Resolve struct {
	Resolver *resolver.Resolver
	Args     []string
	JSON     bool

	Out io.Writer
}

func (r *Resolve) Do(ctx context.Context) error {
	if r.Resolver == nil {
		return errors.New("resolve: no document configured, set widget.documentUrl")
	}
	args := make([]string, len(r.Args))
	for i, a := range r.Args {
		// Chat text is lowercased before lookup.
		args[i] = strings.ToLower(a)
	}
	res := Result{Args: args}
	if len(args) > 0 {
		res.Query = r.Resolver.URL(args[0])
	}

	url, err := r.Resolver.Query(ctx, args)
	if err != nil {
		return err
	}
	res.URL = url

	out := r.Out
	if out == nil {
		out = color.Output
	}
	if r.JSON {
		return json.NewEncoder(out).Encode(res)
	}
	_, _ = fmt.Fprintln(out, res.URL)
	return nil
}
