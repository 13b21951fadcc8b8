package parser

// Selector breaks a tie when a union's structural discriminator still
// matches more than one variant at seal time. It receives the candidate
// variant names and returns the one to use; returning "" accepts the
// engine's own default (the first candidate).
type Selector func(candidates []string) string

// Options configures an Engine.
type Options struct {
	IgnoredTags []string
	StrictMode  bool
	MaxDepth    int
	Selector    Selector
}

// defaultIgnoredTags is the provider-defined small set of reasoning-
// preamble tag names absorbed before any frame is created, regardless of
// schema. Callers parsing a model that doesn't emit these (or that uses
// different ones) should replace this with WithIgnoredTags.
func defaultIgnoredTags() []string {
	return []string{"think", "thinking", "scratchpad"}
}

// DefaultOptions returns the documented defaults: a small reasoning-tag
// ignore set, non-strict mode, a max nesting depth of 128, and the
// engine's own first-candidate tie-break.
func DefaultOptions() Options {
	return Options{
		IgnoredTags: defaultIgnoredTags(),
		StrictMode:  false,
		MaxDepth:    128,
	}
}

// WithIgnoredTags returns a copy of o with IgnoredTags replaced.
func (o Options) WithIgnoredTags(tags ...string) Options {
	o.IgnoredTags = tags
	return o
}

// WithStrictMode returns a copy of o with StrictMode set.
func (o Options) WithStrictMode(strict bool) Options {
	o.StrictMode = strict
	return o
}

// WithMaxDepth returns a copy of o with MaxDepth set. Zero means unlimited.
func (o Options) WithMaxDepth(depth int) Options {
	o.MaxDepth = depth
	return o
}

// WithSelector returns a copy of o with Selector set.
func (o Options) WithSelector(s Selector) Options {
	o.Selector = s
	return o
}
