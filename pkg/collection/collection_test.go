package collection

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/typedmdx/pkg/apperr"
	"github.com/starford/typedmdx/pkg/schema"
	"github.com/starford/typedmdx/pkg/storage"
)

func blogShape() schema.Type {
	return schema.Object(schema.Fields{
		"title":       schema.String(),
		"publishedAt": schema.Date(),
		"author":      schema.String(),
	})
}

func doc(matter, body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("---\n" + matter + "---\n" + body)}
}

func blogStore() storage.Provider {
	return storage.NewIOFS(fstest.MapFS{
		"blog/a.mdx": doc("title: Hello\npublishedAt: 2024-01-15\nauthor: ann\n", "# Hello\n"),
		"blog/b.mdx": doc("publishedAt: 2024-02-01\nauthor: bob\n", "no title\n"),
		"blog/notes.txt": &fstest.MapFile{
			Data: []byte("not a document"),
		},
		"authors/ann.mdx": doc("name: Ann\n", ""),
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func defineBlog(t *testing.T, store storage.Provider, opts ...Option) *Collection[schema.Record] {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := Define[schema.Record](store, "blog", blogShape(), opts...)
	require.NoError(t, err)
	return c
}

func slugs[T any](entries []Entry[T]) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Metadata.Slug
	}
	return out
}

func TestListAll_ExcludesInvalid(t *testing.T) {
	c := defineBlog(t, blogStore())

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "Hello", e.Data["title"])
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), e.Data["publishedAt"])
	assert.Equal(t, "# Hello\n", e.Body)
	assert.Equal(t, Metadata{Slug: "a", StoragePath: "blog/a.mdx"}, e.Metadata)
}

func TestScan_ReportsSkipped(t *testing.T) {
	c := defineBlog(t, blogStore())

	res, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, slugs(res.Entries))
	require.Len(t, res.Skipped, 1)

	s := res.Skipped[0]
	assert.Equal(t, "b", s.Slug)
	assert.Equal(t, "blog/b.mdx", s.StoragePath)
	var verr *schema.ValidationError
	require.ErrorAs(t, s.Err, &verr)
	assert.True(t, verr.Has("title"))
}

func TestListAll_LogsSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := defineBlog(t, blogStore(), WithLogger(logger))

	_, err := c.ListAll(context.Background())
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "skipping document")
	assert.Contains(t, out, "path=blog/b.mdx")
	assert.Contains(t, out, "fields.title=required")
}

func TestGetBySlug(t *testing.T) {
	c := defineBlog(t, blogStore())
	ctx := context.Background()

	e, err := c.GetBySlug(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Hello", e.Data["title"])
	assert.Equal(t, "blog/a.mdx", e.Metadata.StoragePath)

	_, err = c.GetBySlug(ctx, "b")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("title"))

	_, err = c.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "blog/missing.mdx")
}

func TestGetBySlug_InvalidSlug(t *testing.T) {
	c := defineBlog(t, blogStore())
	for _, slug := range []string{"", ".", "..", "../authors/ann", "a/b", `a\b`} {
		_, err := c.GetBySlug(context.Background(), slug)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "slug %q", slug)
	}
}

func TestGetBySlug_DirectoryIsNotFound(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog/a.mdx/inner.txt": &fstest.MapFile{Data: []byte("x")},
	})
	c := defineBlog(t, store)
	_, err := c.GetBySlug(context.Background(), "a")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	res, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Skipped, "directories are not documents")
}

func TestGetBySlug_ParseError(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog/broken.mdx": &fstest.MapFile{Data: []byte("---\ntitle: [unclosed\n---\n")},
	})
	c := defineBlog(t, store)

	_, err := c.GetBySlug(context.Background(), "broken")
	assert.ErrorIs(t, err, apperr.ErrParse)

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListAll_MissingFolder(t *testing.T) {
	c, err := Define[schema.Record](storage.NewIOFS(fstest.MapFS{}), "blog", blogShape())
	require.NoError(t, err)

	_, err = c.ListAll(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAll_EmptyFolder(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog": &fstest.MapFile{Mode: os.ModeDir},
	})
	c := defineBlog(t, store)

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListAll_Idempotent(t *testing.T) {
	c := defineBlog(t, blogStore())
	ctx := context.Background()

	first, err := c.ListAll(ctx)
	require.NoError(t, err)
	second, err := c.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListAll_OrderedByFilename(t *testing.T) {
	fsys := fstest.MapFS{}
	for _, name := range []string{"zeta", "alpha", "Mid", "beta-2", "beta-10"} {
		fsys["blog/"+name+".mdx"] = doc("title: "+name+"\npublishedAt: 2024-01-01\nauthor: x\n", "")
	}
	c := defineBlog(t, storage.NewIOFS(fsys), WithConcurrency(2))

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mid", "alpha", "beta-10", "beta-2", "zeta"}, slugs(entries))
}

func TestListAll_ExtensionCaseInsensitive(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog/a.mdx":  doc("title: A\npublishedAt: 2024-01-01\nauthor: x\n", ""),
		"blog/B.MDX":  doc("title: B\npublishedAt: 2024-01-01\nauthor: x\n", ""),
		"blog/c.md":   doc("title: C\npublishedAt: 2024-01-01\nauthor: x\n", ""),
		"blog/d.mdx~": doc("title: D\npublishedAt: 2024-01-01\nauthor: x\n", ""),
	})
	c := defineBlog(t, store)

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "a"}, slugs(entries))
}

func TestWithExtension(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog/a.mdx": doc("title: A\npublishedAt: 2024-01-01\nauthor: x\n", ""),
		"blog/c.md":  doc("title: C\npublishedAt: 2024-01-01\nauthor: x\n", ""),
	})
	c := defineBlog(t, store, WithExtension(".md"))
	assert.Equal(t, ".md", c.Extension())

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, slugs(entries))

	e, err := c.GetBySlug(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "blog/c.md", e.Metadata.StoragePath)
}

func TestWithIgnore(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog/a.mdx":       doc("title: A\npublishedAt: 2024-01-01\nauthor: x\n", ""),
		"blog/_draft.mdx":  doc("title: D\npublishedAt: 2024-01-01\nauthor: x\n", ""),
		"blog/wip.old.mdx": doc("title: W\npublishedAt: 2024-01-01\nauthor: x\n", ""),
	})
	c := defineBlog(t, store, WithIgnore("_*", "*.old.mdx"))

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, slugs(entries))

	for _, slug := range []string{"_draft", "wip.old"} {
		_, err := c.GetBySlug(context.Background(), slug)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "ignored %q", slug)
	}
}

func TestGetBySlug_FindsEveryListedSlug(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog/Up.MDX":  doc("title: Up\npublishedAt: 2024-01-01\nauthor: x\n", "upper\n"),
		"blog/low.mdx": doc("title: Low\npublishedAt: 2024-01-01\nauthor: x\n", "lower\n"),
	})
	c := defineBlog(t, store)
	ctx := context.Background()

	entries, err := c.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Up", "low"}, slugs(entries))

	for _, listed := range entries {
		e, err := c.GetBySlug(ctx, listed.Metadata.Slug)
		require.NoError(t, err, listed.Metadata.Slug)
		assert.Equal(t, listed, e)
	}

	_, err = c.GetBySlug(ctx, "up")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "slugs stay case-sensitive")
}

func TestClosedMode_RejectsUnknownKeys(t *testing.T) {
	store := storage.NewIOFS(fstest.MapFS{
		"blog/a.mdx": doc("title: A\npublishedAt: 2024-01-01\nauthor: x\ndraft: true\n", ""),
	})
	ctx := context.Background()

	strict := defineBlog(t, store)
	_, err := strict.GetBySlug(ctx, "a")
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("draft"))

	loose := defineBlog(t, store, WithStrict(false))
	e, err := loose.GetBySlug(ctx, "a")
	require.NoError(t, err)
	assert.NotContains(t, e.Data, "draft")
	assert.True(t, loose.Shape().IsLoose())
}

func TestDefine_Errors(t *testing.T) {
	store := blogStore()
	cases := map[string]func() error{
		"nil store": func() error {
			_, err := Define[schema.Record](nil, "blog", blogShape())
			return err
		},
		"non-object shape": func() error {
			_, err := Define[schema.Record](store, "blog", schema.String())
			return err
		},
		"empty folder": func() error {
			_, err := Define[schema.Record](store, "  ", blogShape())
			return err
		},
		"root folder": func() error {
			_, err := Define[schema.Record](store, "./", blogShape())
			return err
		},
		"absolute folder": func() error {
			_, err := Define[schema.Record](store, "/etc", blogShape())
			return err
		},
		"escaping folder": func() error {
			_, err := Define[schema.Record](store, "blog/../../x", blogShape())
			return err
		},
		"bad extension": func() error {
			_, err := Define[schema.Record](store, "blog", blogShape(), WithExtension("mdx"))
			return err
		},
		"bad ignore": func() error {
			_, err := Define[schema.Record](store, "blog", blogShape(), WithIgnore("[a-"))
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, fn(), apperr.ErrConfiguration)
		})
	}
}

func TestDefine_CleansFolder(t *testing.T) {
	c, err := Define[schema.Record](blogStore(), "./blog/", blogShape())
	require.NoError(t, err)
	assert.Equal(t, "blog", c.Folder())
}

type post struct {
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Author      string    `json:"author"`
}

func TestDefine_TypedEntries(t *testing.T) {
	c, err := Define[post](blogStore(), "blog", blogShape(), WithLogger(quietLogger()))
	require.NoError(t, err)

	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, post{
		Title:       "Hello",
		PublishedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Author:      "ann",
	}, entries[0].Data)
}

func TestCrossCollectionLookup(t *testing.T) {
	store := blogStore()
	ctx := context.Background()

	blog, err := Define[post](store, "blog", blogShape(), WithLogger(quietLogger()))
	require.NoError(t, err)
	authors, err := Define[schema.Record](store, "authors", schema.Object(schema.Fields{
		"name": schema.String(),
	}))
	require.NoError(t, err)

	posts, err := blog.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	author, err := authors.GetBySlug(ctx, posts[0].Data.Author)
	require.NoError(t, err)
	assert.Equal(t, "Ann", author.Data["name"])
}

func TestListAll_OSStore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog"), 0o755))
	for name, content := range map[string]string{
		"a.mdx": "---\ntitle: A\npublishedAt: 2024-01-01\nauthor: x\n---\nbody a\n",
		"b.mdx": "---\ntitle: B\npublishedAt: 2024-01-02\nauthor: y\n---\nbody b\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "blog", name), []byte(content), 0o644))
	}
	store, err := storage.NewFS(root)
	require.NoError(t, err)

	c := defineBlog(t, store)
	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, slugs(entries))
	assert.Equal(t, "body b\n", entries[1].Body)
}

func TestListAll_Canceled(t *testing.T) {
	c := defineBlog(t, blogStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	mu      sync.Mutex
	queries []string
	skips   []string
}

func (o *recordingObserver) ObserveQuery(folder, op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries = append(o.queries, folder+":"+op+":"+strings.ToLower(errString(err)))
}

func (o *recordingObserver) ObserveSkip(folder, storagePath string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skips = append(o.skips, storagePath)
}

func errString(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "notfound"
	default:
		return "error"
	}
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	c := defineBlog(t, blogStore(), WithObserver(obs))
	ctx := context.Background()

	_, _ = c.ListAll(ctx)
	_, _ = c.GetBySlug(ctx, "missing")

	assert.Equal(t, []string{"blog:list:ok", "blog:get:notfound"}, obs.queries)
	assert.Equal(t, []string{"blog/b.mdx"}, obs.skips)
}

func TestCompile(t *testing.T) {
	c := defineBlog(t, blogStore())
	entries, err := c.ListAll(context.Background())
	require.NoError(t, err)

	upper := func(_ context.Context, body string) (string, error) {
		return strings.ToUpper(body), nil
	}
	compiled, err := CompileAll(context.Background(), entries, upper)
	require.NoError(t, err)
	require.Len(t, compiled, 1)
	assert.Equal(t, "# HELLO\n", compiled[0].Body)
	assert.Equal(t, entries[0].Metadata, compiled[0].Metadata)

	failing := func(context.Context, string) (int, error) { return 0, errors.New("boom") }
	_, err = Compile(context.Background(), entries[0], failing)
	assert.ErrorContains(t, err, "blog/a.mdx")
}

func TestSlugFor(t *testing.T) {
	c := defineBlog(t, blogStore(), WithIgnore("_*"))
	cases := map[string]struct {
		slug string
		ok   bool
	}{
		"blog/a.mdx":        {"a", true},
		"./blog/Post.MDX":   {"Post", true},
		"blog/_draft.mdx":   {"", false},
		"blog/notes.txt":    {"", false},
		"blog/nested/x.mdx": {"", false},
		"authors/ann.mdx":   {"", false},
		"blogroll/a.mdx":    {"", false},
	}
	for p, want := range cases {
		slug, ok := c.SlugFor(p)
		assert.Equal(t, want.ok, ok, p)
		assert.Equal(t, want.slug, slug, p)
	}
}
