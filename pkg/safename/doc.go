// Package safename normalizes user-supplied file and path segment names.
//
// Clean reduces arbitrary input to a single safe path segment: directory
// components are stripped, every character outside [A-Za-z0-9._-] is
// replaced with an underscore, and empty input falls back to "file".
// The function is total and idempotent, so it can be applied defensively
// at every trust boundary without double-mangling names.
package safename
