// Package tags attaches small sets of descriptive labels to stored
// objects, keyed by the object's address string.
//
// Tag sets are overwritten wholesale on update, never merged, and a
// missing entry reads as an empty set. The store is deliberately
// best-effort at call sites: tagging failures must never block an upload
// or a download, so callers log and continue.
package tags
