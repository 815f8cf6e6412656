// Package content retrieves the text addressed by parsed references.
//
// A Provider maps one validated reference to zero or more lines of text.
// A one-field reference addresses a whole chapter; a three-field reference
// addresses a verse range inside a chapter. Providers are used concurrently
// and must be safe for that.
package content

import (
	"context"

	"github.com/FocuswithJustin/versefinder/core/refparse"
)

// Provider retrieves the text of one reference.
type Provider interface {
	// Name identifies the provider kind in logs and errors.
	Name() string

	// Lookup returns the lines addressed by ref, in verse order.
	Lookup(ctx context.Context, ref refparse.Reference) ([]string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, ref refparse.Reference) ([]string, error)

// Name implements Provider.
func (f ProviderFunc) Name() string { return "func" }

// Lookup implements Provider.
func (f ProviderFunc) Lookup(ctx context.Context, ref refparse.Reference) ([]string, error) {
	return f(ctx, ref)
}
