// Package testutil provides shared test helpers for setting up content trees
// and catalogs.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/typedmdx/internal/catalog"
	"github.com/starford/typedmdx/pkg/schema"
	"github.com/starford/typedmdx/pkg/storage"
)

// Blog documents: hello is valid, untitled is missing its title.
const (
	HelloPost = `---
title: Hello
publishedAt: 2024-01-15
author: ann
tags: [go, mdx]
---
# Hello

First post.
`
	UntitledPost = `---
publishedAt: 2024-02-01
author: bob
---
No title here.
`
	AnnAuthor = `---
name: Ann
socials:
  - type: x
    href: https://x.com/ann
---
`
)

// TestContent creates a temporary content root with a storage.Provider.
func TestContent(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteFile writes content to rel under root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Specs declares the blog and authors collections.
func Specs() []catalog.Spec {
	return []catalog.Spec{
		{
			Name:   "blog",
			Folder: "blog",
			Strict: true,
			Shape: schema.Decl{Type: "object", Fields: map[string]schema.Decl{
				"title":       {Type: "string"},
				"publishedAt": {Type: "date"},
				"author":      {Type: "string"},
				"tags":        {Type: "array", Optional: true, Items: &schema.Decl{Type: "string"}},
			}},
		},
		{
			Name:   "authors",
			Folder: "authors",
			Strict: true,
			Shape: schema.Decl{Type: "object", Fields: map[string]schema.Decl{
				"name": {Type: "string"},
				"socials": {Type: "array", Items: &schema.Decl{Type: "object", Fields: map[string]schema.Decl{
					"type": {Type: "enum", Values: []string{"x", "linkedin"}},
					"href": {Type: "string", Format: schema.FormatURL},
				}}},
			}},
		},
	}
}

// TestCatalog writes the blog fixture to a temporary root and builds a
// catalog over it.
func TestCatalog(t *testing.T) (string, *catalog.Catalog) {
	t.Helper()
	root, store := TestContent(t)
	WriteFile(t, root, "blog/hello.mdx", HelloPost)
	WriteFile(t, root, "blog/untitled.mdx", UntitledPost)
	WriteFile(t, root, "authors/ann.mdx", AnnAuthor)

	cat, err := catalog.New(store, Specs())
	if err != nil {
		t.Fatal(err)
	}
	return root, cat
}
