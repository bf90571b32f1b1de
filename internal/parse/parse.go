// Package parse decodes raw SOS observation payloads into the uniform
// feature model. Two wire encodings are supported: the tagged O&M 1.0 XML
// block format and its JSON variant.
package parse

import "github.com/pesekon2/sosflow/internal/ports"

// Options parameterize both parsers.
type Options struct {
	// ObservedProperty is the requested phenomenon; the parser resolves
	// the one data field whose definition (XML) or name (JSON) contains
	// it as a substring.
	ObservedProperty string
	// ImportEmpty keeps procedures that reported no observations,
	// emitting a single synthetic zero value instead of skipping them.
	ImportEmpty bool
	// Obs receives non-fatal warnings; nil means discard.
	Obs ports.Observability
}

func (o Options) obs() ports.Observability {
	if o.Obs == nil {
		return ports.Nop{}
	}
	return o.Obs
}
