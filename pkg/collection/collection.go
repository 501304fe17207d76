// Package collection loads folders of frontmatter documents as typed,
// validated entries.
//
//	blog, err := collection.Define[Post](store, "blog", schema.Object(schema.Fields{
//		"title":  schema.String(),
//		"author": schema.String(),
//	}))
//	posts, err := blog.ListAll(ctx)
//	post, err := blog.GetBySlug(ctx, "hello-world")
//
// A Collection holds no state between calls: every query re-reads the store.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/starford/typedmdx/internal/parser"
	"github.com/starford/typedmdx/pkg/apperr"
	"github.com/starford/typedmdx/pkg/schema"
	"github.com/starford/typedmdx/pkg/storage"
)

// Metadata is derived from a document's location, not its frontmatter.
type Metadata struct {
	Slug        string `json:"slug"`
	StoragePath string `json:"storagePath"`
}

// Entry is one validated document.
type Entry[T any] struct {
	Data     T        `json:"data"`
	Body     string   `json:"body"`
	Metadata Metadata `json:"metadata"`
}

// Skipped is a document left out of a listing, with the reason.
type Skipped struct {
	Metadata
	Err error
}

// ScanResult is a listing plus the documents that were left out of it.
type ScanResult[T any] struct {
	Entries []Entry[T]
	Skipped []Skipped
}

// Collection is a folder of documents validated against one shape.
// It is immutable and safe for concurrent use.
type Collection[T any] struct {
	store       storage.Provider
	folder      string
	shape       schema.Type
	ext         string
	ignore      []string
	logger      *slog.Logger
	observer    Observer
	concurrency int
}

// Define binds a folder (relative to the store's content root) and an
// object shape into a Collection. Invalid arguments fail here with
// apperr.ErrConfiguration rather than at query time.
func Define[T any](store storage.Provider, folder string, shape schema.Type, opts ...Option) (*Collection[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if store == nil {
		return nil, apperr.Configuration(OpDefine, "storage provider is required")
	}
	if !shape.IsObject() {
		return nil, apperr.Configuration(OpDefine, "shape must be an object, got %s", shape.Kind())
	}
	cleaned, err := cleanFolder(folder)
	if err != nil {
		return nil, err
	}
	if len(o.ext) < 2 || o.ext[0] != '.' || strings.ContainsAny(o.ext, `/\`) {
		return nil, apperr.Configuration(OpDefine, "invalid document extension %q", o.ext)
	}
	for _, p := range o.ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, apperr.Configuration(OpDefine, "invalid ignore pattern %q", p)
		}
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	if o.strict {
		shape = shape.Strict()
	} else {
		shape = shape.Loose()
	}

	return &Collection[T]{
		store:       store,
		folder:      cleaned,
		shape:       shape,
		ext:         o.ext,
		ignore:      slices.Clone(o.ignore),
		logger:      o.logger,
		observer:    o.observer,
		concurrency: o.concurrency,
	}, nil
}

func cleanFolder(folder string) (string, error) {
	slashed := filepath.ToSlash(strings.TrimSpace(folder))
	if slashed == "" {
		return "", apperr.Configuration(OpDefine, "folder is required")
	}
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(folder) {
		return "", apperr.Configuration(OpDefine, "folder %q must be relative to the content root", folder)
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", apperr.Configuration(OpDefine, "folder %q escapes the content root", folder)
	}
	return cleaned, nil
}

// Folder returns the collection folder relative to the content root.
func (c *Collection[T]) Folder() string { return c.folder }

// Shape returns the resolved shape, with the strict/loose mode applied.
func (c *Collection[T]) Shape() schema.Type { return c.shape }

// Extension returns the document extension the collection matches.
func (c *Collection[T]) Extension() string { return c.ext }

// SlugFor reports whether storagePath names a document this collection
// would list, and its slug. The path is not checked against the store.
func (c *Collection[T]) SlugFor(storagePath string) (string, bool) {
	dir, name := path.Split(path.Clean(filepath.ToSlash(storagePath)))
	if strings.TrimSuffix(dir, "/") != c.folder || len(c.documents([]string{name})) == 0 {
		return "", false
	}
	return c.metadata(name).Slug, true
}

// ListAll loads every valid document in the folder, ordered by filename.
// Documents that cannot be read, parsed or validated are left out and
// logged; they never fail the call. A missing folder does.
func (c *Collection[T]) ListAll(ctx context.Context) ([]Entry[T], error) {
	res, err := c.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// Scan is ListAll that also reports the documents it left out.
func (c *Collection[T]) Scan(ctx context.Context) (*ScanResult[T], error) {
	start := time.Now()
	res, err := c.scan(ctx)
	c.observer.ObserveQuery(c.folder, OpList, time.Since(start), err)
	return res, err
}

func (c *Collection[T]) scan(ctx context.Context) (*ScanResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !storage.IsDir(c.store, c.folder) {
		return nil, apperr.NotFound(OpList, c.folder, fmt.Errorf("folder %s not found", c.folder))
	}
	names, err := c.store.ReadDir(c.folder)
	if err != nil {
		return nil, fmt.Errorf("collection: list %s: %w", c.folder, err)
	}
	names = c.documents(names)

	type outcome struct {
		entry   Entry[T]
		err     error
		notFile bool
	}
	outcomes := make([]outcome, len(names))

	// Pipelines never return an error, so one failing document cannot
	// cancel the others.
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			if !storage.IsFile(c.store, c.metadata(name).StoragePath) {
				outcomes[i].notFile = true
				return nil
			}
			entry, err := c.load(name)
			outcomes[i] = outcome{entry: entry, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &ScanResult[T]{Entries: make([]Entry[T], 0, len(names))}
	for i, out := range outcomes {
		if out.notFile {
			continue
		}
		if out.err != nil {
			skipped := Skipped{Metadata: c.metadata(names[i]), Err: out.err}
			res.Skipped = append(res.Skipped, skipped)
			c.reportSkip(skipped)
			continue
		}
		res.Entries = append(res.Entries, out.entry)
	}
	return res, nil
}

// GetBySlug loads exactly one document: any slug ListAll can return is
// found, and ignored documents are not. Unlike ListAll, any read, parse or
// validation failure is returned to the caller.
func (c *Collection[T]) GetBySlug(ctx context.Context, slug string) (Entry[T], error) {
	start := time.Now()
	entry, err := c.get(ctx, slug)
	c.observer.ObserveQuery(c.folder, OpGet, time.Since(start), err)
	return entry, err
}

func (c *Collection[T]) get(ctx context.Context, slug string) (Entry[T], error) {
	if err := ctx.Err(); err != nil {
		return Entry[T]{}, err
	}
	if !validSlug(slug) {
		return Entry[T]{}, apperr.NotFound(OpGet, c.folder, fmt.Errorf("invalid slug %q", slug))
	}
	name := slug + c.ext
	p := c.folder + "/" + name
	if c.ignored(name) {
		return Entry[T]{}, apperr.NotFound(OpGet, p, fmt.Errorf("file %s is ignored", p))
	}
	if !storage.IsFile(c.store, p) {
		found, ok := c.lookup(slug)
		if !ok {
			return Entry[T]{}, apperr.NotFound(OpGet, p, fmt.Errorf("file %s not found", p))
		}
		name = found
	}
	return c.load(name)
}

// lookup finds the listed document for slug whose extension differs from
// c.ext only in case, such as Post.MDX for ".mdx".
func (c *Collection[T]) lookup(slug string) (string, bool) {
	names, err := c.store.ReadDir(c.folder)
	if err != nil {
		return "", false
	}
	for _, name := range c.documents(names) {
		if c.metadata(name).Slug == slug && storage.IsFile(c.store, c.folder+"/"+name) {
			return name, true
		}
	}
	return "", false
}

// load runs read, parse and validate for one filename in the folder.
func (c *Collection[T]) load(name string) (Entry[T], error) {
	meta := c.metadata(name)

	data, err := c.store.ReadFile(meta.StoragePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry[T]{}, apperr.NotFound(OpGet, meta.StoragePath, err)
		}
		return Entry[T]{}, fmt.Errorf("collection: %w", err)
	}
	doc, err := parser.Parse(data)
	if err != nil {
		return Entry[T]{}, fmt.Errorf("collection: %s: %w", meta.StoragePath, err)
	}
	val, err := schema.Decode[T](c.shape, doc.Frontmatter)
	if err != nil {
		return Entry[T]{}, fmt.Errorf("collection: %s: %w", meta.StoragePath, err)
	}
	return Entry[T]{Data: val, Body: doc.Body, Metadata: meta}, nil
}

func (c *Collection[T]) metadata(name string) Metadata {
	return Metadata{
		Slug:        strings.TrimSuffix(name, path.Ext(name)),
		StoragePath: c.folder + "/" + name,
	}
}

// documents keeps names with the collection extension that no ignore
// pattern matches, sorted by name.
func (c *Collection[T]) documents(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !strings.EqualFold(path.Ext(name), c.ext) || c.ignored(name) {
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (c *Collection[T]) ignored(name string) bool {
	for _, p := range c.ignore {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (c *Collection[T]) reportSkip(s Skipped) {
	c.observer.ObserveSkip(c.folder, s.StoragePath, s.Err)

	attrs := []any{
		slog.String("collection", c.folder),
		slog.String("path", s.StoragePath),
	}
	var verr *schema.ValidationError
	if errors.As(s.Err, &verr) {
		paths, grouped := verr.FieldErrors()
		fields := make([]any, 0, len(paths))
		for _, p := range paths {
			fields = append(fields, slog.String(p, strings.Join(grouped[p], "; ")))
		}
		attrs = append(attrs, slog.Group("fields", fields...))
	} else {
		attrs = append(attrs, slog.String("error", s.Err.Error()))
	}
	c.logger.Warn("collection: skipping document", attrs...)
}

func validSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, "/\\\x00")
}
