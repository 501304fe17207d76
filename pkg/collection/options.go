package collection

import (
	"log/slog"
	"runtime"
)

// DefaultExtension is the document extension collections match by default.
const DefaultExtension = ".mdx"

// Option is a functional option for Define.
type Option func(*options)

type options struct {
	strict      bool
	ext         string
	ignore      []string
	logger      *slog.Logger
	observer    Observer
	concurrency int
}

func defaultOptions() options {
	return options{
		strict:      true,
		ext:         DefaultExtension,
		logger:      slog.Default(),
		observer:    nopObserver{},
		concurrency: runtime.GOMAXPROCS(0) * 4,
	}
}

// WithStrict selects closed (true, the default) or loose shape mode.
// Loose mode drops unknown frontmatter keys instead of rejecting them.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithExtension sets the document extension, e.g. ".md".
func WithExtension(ext string) Option {
	return func(o *options) {
		o.ext = ext
	}
}

// WithIgnore excludes filenames matching any of the doublestar patterns
// (e.g. "_*", "*.draft.mdx") from listings.
func WithIgnore(patterns ...string) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, patterns...)
	}
}

// WithLogger sets the logger used to report skipped documents.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver installs a hook notified of queries and skipped documents.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithConcurrency bounds the number of documents loaded at once by ListAll.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}
