package ot

import "github.com/npillmayer/schuko/tracing"

// T returns the package-level tracer, selected by key "ot.variation".
// The parse functions that log diagnostics (fvar, avar, IVS, delta-set
// index maps, HVAR, VVAR, MVAR) and the IVS query methods take an explicit
// trace parameter as their last argument (nil accepted); traceOrDefault
// falls back to this one whenever that argument is nil. The hmtx/vmtx/VORG
// parsers, the build-side API and the HVAR/VVAR/MVAR getters take none.
func T() tracing.Trace {
	return tracing.Select("ot.variation")
}

// traceOrDefault returns t if non-nil, otherwise the package tracer.
// Every diagnostic call site in this package goes through this so that
// callers may pass nil freely without special-casing it.
func traceOrDefault(t tracing.Trace) tracing.Trace {
	if t != nil {
		return t
	}
	return T()
}
