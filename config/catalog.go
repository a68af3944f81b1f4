package config

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed catalog.toml
var defaultCatalog []byte

type catalogFile struct {
	Categories  map[string]string `toml:"categories"`
	Sorts       map[string]string `toml:"sorts"`
	PriceRanges map[string]string `toml:"price_ranges"`
	Discounts   map[string]string `toml:"discounts"`
	Headers     map[string]string `toml:"headers"`
}

// Catalog holds the name -> code tables used to build criteria and request
// headers. It is read-only after LoadCatalog returns.
type Catalog struct {
	categories  map[string]string
	sorts       map[string]string
	priceRanges map[string]string
	discounts   map[string]string
	headers     map[string]string
}

// LoadCatalog parses the embedded defaults and overlays the TOML file at path, if any.
func LoadCatalog(path string) (*Catalog, error) {
	var base catalogFile
	if err := toml.Unmarshal(defaultCatalog, &base); err != nil {
		return nil, fmt.Errorf("parse default catalog: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		var overlay catalogFile
		if err := toml.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("parse catalog file: %w", err)
		}
		base.Categories = merge(base.Categories, overlay.Categories)
		base.Sorts = merge(base.Sorts, overlay.Sorts)
		base.PriceRanges = merge(base.PriceRanges, overlay.PriceRanges)
		base.Discounts = merge(base.Discounts, overlay.Discounts)
		base.Headers = merge(base.Headers, overlay.Headers)
	}

	return &Catalog{
		categories:  base.Categories,
		sorts:       base.Sorts,
		priceRanges: base.PriceRanges,
		discounts:   base.Discounts,
		headers:     base.Headers,
	}, nil
}

func merge(dst, src map[string]string) map[string]string {
	out := make(map[string]string, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Category returns the category code for name.
func (c *Catalog) Category(name string) (string, error) {
	return lookup("category", c.categories, name)
}

// Sort returns the sort mode for name.
func (c *Catalog) Sort(name string) (string, error) {
	return lookup("sort", c.sorts, name)
}

// PriceRange returns the "<minCents>-<maxCents>" preset for name. The "all"
// preset maps to the empty string.
func (c *Catalog) PriceRange(name string) (string, error) {
	return lookup("price range", c.priceRanges, name)
}

// Discount resolves a discount preset or a literal "low-high" range. The
// returned ok is false when no discount filter applies.
func (c *Catalog) Discount(name string) (low, high int, ok bool, err error) {
	value, lookupErr := lookup("discount", c.discounts, name)
	if lookupErr != nil {
		if !strings.Contains(name, "-") {
			return 0, 0, false, lookupErr
		}
		value = name
	}
	if value == "" {
		return 0, 0, false, nil
	}
	low, high, err = ParseRange(value)
	if err != nil {
		return 0, 0, false, fmt.Errorf("discount %q: %w", name, err)
	}
	return low, high, true, nil
}

// Header returns a fresh copy of the fixed request headers.
func (c *Catalog) Header() http.Header {
	h := make(http.Header, len(c.headers))
	for k, v := range c.headers {
		h.Set(k, v)
	}
	return h
}

// Names lists the known names of a table, sorted, for help output.
func (c *Catalog) Names(table string) []string {
	var m map[string]string
	switch table {
	case "categories":
		m = c.categories
	case "sorts":
		m = c.sorts
	case "price_ranges":
		m = c.priceRanges
	case "discounts":
		m = c.discounts
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParseRange splits "low-high" into two integers.
func ParseRange(value string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected <low>-<high>, got %q", value)
	}
	low, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid low bound: %w", err)
	}
	high, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid high bound: %w", err)
	}
	if low > high {
		return 0, 0, fmt.Errorf("low bound %d exceeds high bound %d", low, high)
	}
	return low, high, nil
}

func lookup(kind string, table map[string]string, name string) (string, error) {
	value, ok := table[strings.TrimSpace(name)]
	if !ok {
		return "", fmt.Errorf("unknown %s %q", kind, name)
	}
	return value, nil
}
