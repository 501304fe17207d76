package collection

import (
	"context"
	"fmt"
)

// CompileFunc renders a raw document body into B. The engine never calls
// one itself; callers pass it to Compile when they need rendered output.
type CompileFunc[B any] func(ctx context.Context, body string) (B, error)

// Compiled is an Entry whose body went through a CompileFunc.
type Compiled[T, B any] struct {
	Data     T        `json:"data"`
	Body     B        `json:"body"`
	Metadata Metadata `json:"metadata"`
}

// Compile runs fn over the entry body.
func Compile[T, B any](ctx context.Context, e Entry[T], fn CompileFunc[B]) (Compiled[T, B], error) {
	body, err := fn(ctx, e.Body)
	if err != nil {
		return Compiled[T, B]{}, fmt.Errorf("collection: compile %s: %w", e.Metadata.StoragePath, err)
	}
	return Compiled[T, B]{Data: e.Data, Body: body, Metadata: e.Metadata}, nil
}

// CompileAll compiles entries in order, stopping at the first failure.
func CompileAll[T, B any](ctx context.Context, entries []Entry[T], fn CompileFunc[B]) ([]Compiled[T, B], error) {
	out := make([]Compiled[T, B], 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := Compile(ctx, e, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
