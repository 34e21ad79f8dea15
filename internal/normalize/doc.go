// Package normalize provides the pure text, time and URL helpers used by the extractors
// and the store.
//
// Source pages mix display text with pick/ban annotations, clock readouts and
// irregular whitespace. CleanText strips those so that the same team or tournament
// always reduces to the same name, and NameKey exposes that reduction for grouping.
package normalize
