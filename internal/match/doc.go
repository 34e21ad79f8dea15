// Package match provides the records exchanged between the extractors, the store and
// the orchestrator.
//
// Summary is what a listing page yields for one match, Detail is what a match page
// yields, and Match is the persisted row with resolved team and tournament references.
// Records carry no storage identity of their own; the external match identifier
// assigned by the source is the only key shared across packages.
package match
