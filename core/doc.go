// Package core contains the canonical token vault contracts, entities, and
// orchestration logic. Lower-level adapters must depend on this package; core
// must not depend on storage-specific or provider-specific adapters.
package core
