// Package pricing resolves budget items against merged cost libraries.
//
// A ResolutionContext collects source fragments in priority order into a
// composition Graph and a LeafPrices table. Solve prices compositions by an
// iterative fixpoint bounded by a pass cap, Closure selects every
// sub-composition reachable from the requested codes, and Assemble resolves
// each item through the CALCULATED, CATALOG_DIRECT, QUOTATION and MANUAL
// tiers while producing the composition detail rows.
//
// Everything here is synchronous and owned by the context; callers that
// recalculate concurrently must serialize runs themselves.
package pricing
