// Package storage provides tenant-scoped object storage with two backends.
//
// All objects are addressed by an ObjectRef: a (tenant, collection, name)
// triple, optionally flagged as a derived object. The same addressing
// scheme maps onto a local filesystem tree or an S3-compatible bucket, so
// higher layers depend only on the Storage interface and the backend is
// resolved once at startup.
//
// # Basic Usage
//
//	store, err := storage.NewLocal(storage.LocalConfig{BaseDir: "uploads"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ref := storage.ObjectRef{Tenant: "acme", Collection: "surveyA", Name: "u1_photo.jpg"}
//	info, err := store.Put(ctx, ref, bytes.NewReader(data), int64(len(data)))
//
// # Backend Semantics
//
// The two backends deliberately differ on collisions. The local backend
// never overwrites: a colliding name gets an incrementing numeric suffix
// and Put reports the final name in the returned ObjectInfo. The S3
// backend writes to the deterministic key and overwrites whatever is
// there, which is the native object-store behavior.
//
// # URL Generation
//
// URL returns a pre-signed, time-limited URL for the S3 backend and an
// internal download-route path for the local backend (the route applies
// its own confinement checks).
package storage
