// Package catalog holds the named collections declared in the config file
// and is what the HTTP, MCP and CLI surfaces query.
package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/typedmdx/pkg/apperr"
	"github.com/starford/typedmdx/pkg/collection"
	"github.com/starford/typedmdx/pkg/schema"
	"github.com/starford/typedmdx/pkg/storage"
)

// Collection is a collection whose entries are plain validated records.
type Collection = collection.Collection[schema.Record]

// Entry is one validated record.
type Entry = collection.Entry[schema.Record]

// Spec declares one collection.
type Spec struct {
	Name      string
	Folder    string
	Strict    bool
	Extension string
	Ignore    []string
	Shape     schema.Decl
}

// Info describes a registered collection.
type Info struct {
	Name      string `json:"name"`
	Folder    string `json:"folder"`
	Extension string `json:"extension"`
	Strict    bool   `json:"strict"`
	// Fields maps each top-level field to its type, e.g. "string[]?".
	Fields map[string]string `json:"fields"`
}

// Catalog is an immutable set of named collections over one store.
type Catalog struct {
	names  []string
	byName map[string]*Collection
}

// New defines every spec against store. opts apply to all collections;
// per-spec strictness, extension and ignore patterns are added after them.
func New(store storage.Provider, specs []Spec, opts ...collection.Option) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]*Collection, len(specs)),
	}
	for _, spec := range specs {
		if _, dup := c.byName[spec.Name]; dup {
			return nil, apperr.Configuration(collection.OpDefine, "duplicate collection %q", spec.Name)
		}
		shape, err := spec.Shape.Build()
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", spec.Name, err)
		}

		copts := slices.Clone(opts)
		copts = append(copts, collection.WithStrict(spec.Strict), collection.WithIgnore(spec.Ignore...))
		if spec.Extension != "" {
			copts = append(copts, collection.WithExtension(spec.Extension))
		}
		coll, err := collection.Define[schema.Record](store, spec.Folder, shape, copts...)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", spec.Name, err)
		}

		c.byName[spec.Name] = coll
		c.names = append(c.names, spec.Name)
	}
	slices.Sort(c.names)
	return c, nil
}

// Names returns the collection names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Collection returns the named collection.
func (c *Catalog) Collection(name string) (*Collection, error) {
	coll, ok := c.byName[name]
	if !ok {
		return nil, apperr.NotFound("catalog", name, fmt.Errorf("unknown collection %q", name))
	}
	return coll, nil
}

// Describe returns info about every collection, sorted by name.
func (c *Catalog) Describe() []Info {
	out := make([]Info, 0, len(c.names))
	for _, name := range c.names {
		info, _ := c.Info(name)
		out = append(out, info)
	}
	return out
}

// Info describes the named collection.
func (c *Catalog) Info(name string) (Info, error) {
	coll, err := c.Collection(name)
	if err != nil {
		return Info{}, err
	}
	shape := coll.Shape()
	fields := make(map[string]string, len(shape.Keys()))
	for key, t := range shape.Fields() {
		fields[key] = t.Describe()
	}
	return Info{
		Name:      name,
		Folder:    coll.Folder(),
		Extension: coll.Extension(),
		Strict:    !shape.IsLoose(),
		Fields:    fields,
	}, nil
}

// List returns the valid entries of the named collection.
func (c *Catalog) List(ctx context.Context, name string) ([]Entry, error) {
	coll, err := c.Collection(name)
	if err != nil {
		return nil, err
	}
	return coll.ListAll(ctx)
}

// Scan is List that also reports skipped documents.
func (c *Catalog) Scan(ctx context.Context, name string) (*collection.ScanResult[schema.Record], error) {
	coll, err := c.Collection(name)
	if err != nil {
		return nil, err
	}
	return coll.Scan(ctx)
}

// Get loads one entry by slug.
func (c *Catalog) Get(ctx context.Context, name, slug string) (Entry, error) {
	coll, err := c.Collection(name)
	if err != nil {
		return Entry{}, err
	}
	return coll.GetBySlug(ctx, slug)
}

// Locate maps a storage path to the collection and slug it belongs to.
func (c *Catalog) Locate(storagePath string) (name, slug string, ok bool) {
	for _, name := range c.names {
		if slug, ok := c.byName[name].SlugFor(storagePath); ok {
			return name, slug, true
		}
	}
	return "", "", false
}
