// Package httpapi binds the media service to HTTP with a chi router.
//
// Routes:
//
//	POST /register                                                 — mint an API key (unauthenticated)
//	POST /api/v1/{tenant}/collections/{collection}/upload          — multipart upload
//	GET  /api/v1/{tenant}/collections/{collection}/files           — list originals
//	GET  /api/v1/{tenant}/collections/{collection}/download/{name} — download as attachment
//	GET  /api/v1/{tenant}/collections/{collection}/optimize/{name} — produce/fetch derivative info
//	GET  /api/v1/{tenant}/collections/{collection}/derived/{name}  — stream a derivative
//	GET  /health/live, /health/ready                               — probes (unauthenticated)
//
// Everything under /api/v1 passes the API-key quota middleware: the key comes
// from X-API-Key or an Authorization bearer token, must belong to the tenant
// in the path, and each request consumes one unit of the key's daily quota.
package httpapi
