package pubfile

import (
	"go.uber.org/zap"

	"github.com/zcyzhu/node-guardtime/compliance"
)

// Options controls decoding and verification behavior.
//
// Default behavior is Permissive, eager and anchored to DefaultTrustAnchor
// when Options{} is used.
type Options struct {
	Mode compliance.ComplianceMode

	// LazyPublications skips materializing the publication table. Each
	// query then decodes only the cells it visits. Ignored in Strict mode,
	// which needs the whole table to check ordering.
	LazyPublications bool

	// Anchor replaces DefaultTrustAnchor for Verify.
	Anchor *TrustAnchor

	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Anchor == nil {
		a := DefaultTrustAnchor
		o.Anchor = &a
	}
	if o.Mode == compliance.Strict {
		o.LazyPublications = false
	}
	return o
}
