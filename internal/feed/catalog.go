package feed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var sourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

// DefaultSourceNames is the built-in catalog, numbered from 1 in this order.
func DefaultSourceNames() []string {
	return []string{"memes", "combatfootage", "greentext", "dankmemes", "pics"}
}

// ValidSourceName reports whether name is a syntactically valid subreddit.
func ValidSourceName(name string) bool {
	return sourceNamePattern.MatchString(name)
}

// Source is a numbered catalog entry.
type Source struct {
	Number int
	Name   string
}

// Catalog maps menu numbers to subreddit names.
type Catalog struct {
	entries []Source
}

// NewCatalog numbers names from 1 and validates every entry.
func NewCatalog(names []string) (*Catalog, error) {
	if len(names) == 0 {
		return nil, errors.New("source catalog is empty")
	}
	seen := make(map[string]int, len(names))
	entries := make([]Source, 0, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "r/"))
		if !ValidSourceName(name) {
			return nil, fmt.Errorf("source %d: invalid name %q", i+1, raw)
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("source %d: %q duplicates source %d", i+1, name, prev)
		}
		seen[key] = i + 1
		entries = append(entries, Source{Number: i + 1, Name: name})
	}
	return &Catalog{entries: entries}, nil
}

// Lookup returns the source registered under number.
func (c *Catalog) Lookup(number int) (Source, bool) {
	if c == nil || number < 1 || number > len(c.entries) {
		return Source{}, false
	}
	return c.entries[number-1], true
}

// Find matches a source by name, ignoring case and an "r/" prefix.
func (c *Catalog) Find(name string) (Source, bool) {
	if c == nil {
		return Source{}, false
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "r/")
	for _, entry := range c.entries {
		if strings.EqualFold(entry.Name, name) {
			return entry, true
		}
	}
	return Source{}, false
}

// Sources returns a copy of the catalog in menu order.
func (c *Catalog) Sources() []Source {
	if c == nil {
		return nil
	}
	return append([]Source(nil), c.entries...)
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}
