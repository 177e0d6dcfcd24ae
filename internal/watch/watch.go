// Package watch models a standing subscription to a remote collection.
// The core only needs equality and a text round-trip: a watch serializes as
// "owner/category" or "owner/category/selector".
package watch

import (
	"fmt"
	"strings"
)

type Watch struct {
	Owner    string
	Category string
	Selector string
}

func (w Watch) String() string {
	if w.Selector == "" {
		return w.Owner + "/" + w.Category
	}
	return w.Owner + "/" + w.Category + "/" + w.Selector
}

// Parse reverses String. The selector part is optional.
func Parse(s string) (Watch, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Watch{}, fmt.Errorf("invalid watch %q: want owner/category[/selector]", s)
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return Watch{}, fmt.Errorf("invalid watch %q: empty segment", s)
		}
	}

	w := Watch{Owner: parts[0], Category: parts[1]}
	if len(parts) == 3 {
		w.Selector = parts[2]
	}
	return w, nil
}
