package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// CatalogFile is the file name looked up inside a templates directory.
const CatalogFile = "catalog.yaml"

var (
	ErrNotFound       = errors.New("template not found")
	ErrInvalidCatalog = errors.New("invalid template catalog")

	idPattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,39}$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Template is a résumé layout in the gallery.
type Template struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Category     string   `yaml:"category" json:"category"`
	Premium      bool     `yaml:"premium" json:"premium"`
	AccentColor  string   `yaml:"accentColor" json:"accentColor"`
	FontFamily   string   `yaml:"fontFamily" json:"fontFamily"`
	SectionOrder []string `yaml:"sectionOrder" json:"sectionOrder"`
}

type catalogDoc struct {
	Templates []Template `yaml:"templates"`
}

// Catalog is the set of available templates. It is safe for concurrent use
// and can be swapped wholesale by Replace.
type Catalog struct {
	mu    sync.RWMutex
	items []Template
	byID  map[string]Template
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("%w: no templates", ErrInvalidCatalog)
	}
	byID := make(map[string]Template, len(doc.Templates))
	for i, t := range doc.Templates {
		if !idPattern.MatchString(t.ID) {
			return nil, fmt.Errorf("%w: templates[%d]: bad id %q", ErrInvalidCatalog, i, t.ID)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, t.ID)
		}
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("%w: template %q has no name", ErrInvalidCatalog, t.ID)
		}
		if t.AccentColor != "" && !colorPattern.MatchString(t.AccentColor) {
			return nil, fmt.Errorf("%w: template %q: bad accent color %q", ErrInvalidCatalog, t.ID, t.AccentColor)
		}
		// Font and accent are written into a style block unescaped.
		if strings.ContainsAny(t.FontFamily, "<>{};\\/") {
			return nil, fmt.Errorf("%w: template %q: bad font family", ErrInvalidCatalog, t.ID)
		}
		t.Category = strings.ToLower(strings.TrimSpace(t.Category))
		doc.Templates[i] = t
		byID[t.ID] = t
	}
	return &Catalog{items: doc.Templates, byID: byID}, nil
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(embeddedCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads dir/catalog.yaml, falling back to the embedded catalog when dir is empty.
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filepath.Join(dir, CatalogFile))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Replace swaps in the templates of next.
func (c *Catalog) Replace(next *Catalog) {
	next.mu.RLock()
	items, byID := next.items, next.byID
	next.mu.RUnlock()

	c.mu.Lock()
	c.items, c.byID = items, byID
	c.mu.Unlock()
}

// Exists reports whether id names a template.
func (c *Catalog) Exists(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Get(id string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return t, nil
}

// List returns templates in catalog order, optionally filtered by category.
func (c *Catalog) List(category string) []Template {
	category = strings.ToLower(strings.TrimSpace(category))
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Template, 0, len(c.items))
	for _, t := range c.items {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, t := range c.items {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	sort.Strings(out)
	return out
}
