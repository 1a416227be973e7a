// Package derive produces cached, size-reduced derivatives of stored
// media objects.
//
// A derivative is deterministically named from its source ("photo.jpg"
// -> "opt_photo.jpg", "clip.mov" -> "opt_clip.mp4") and lives in the
// derived sub-namespace of the source's collection. Derivatives are
// idempotent by name: once one exists it is trusted as complete and never
// regenerated, re-verified, or invalidated when the source changes.
//
// The actual media work is behind the Transcoder interface with one
// implementation for still images (in-process resize and re-encode) and
// one for video (external ffprobe/ffmpeg invocations). Both are
// injectable so tests never spawn real processes.
//
//	cache := derive.NewCache(store, derive.NewImageTranscoder(), derive.NewVideoTranscoder())
//	ref, err := cache.GetOrCreate(ctx, "acme", "surveyA", "u1_photo.jpg")
//
// Concurrent first requests for the same derivative are collapsed with
// singleflight, so the expensive transcode runs at most once per process.
package derive
