// Package service composes the storage, quota, tagging, and derivation
// packages into the tenant-facing media operations: Upload, ListObjects,
// Download, Derivative, and RegisterTenant.
//
// All input segments (tenant, collection, owner, file name) are sanitized
// before touching storage, and every operation emits structured log events.
// Tagging is best-effort and never fails an upload.
package service
