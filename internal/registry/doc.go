// Package registry looks up images referenced by a product report in OCI
// distribution registries.
//
// A Client answers three questions about a reference: whether it exists,
// which manifest digest it resolves to and which labels its image config
// carries. "Not found" is an answer, not an error: Exists reports it as
// false and the other calls return an error matching ErrNotFound. Every other
// failure, such as an unreachable or unauthorized registry, matches
// ErrTransport.
//
// Results are cached for the lifetime of a Remote. A Remote is created per
// report run and must not be reused across runs, since credentials may
// rotate in between.
package registry
