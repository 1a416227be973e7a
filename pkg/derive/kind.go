package derive

import (
	"path/filepath"
	"strings"
)

// Kind classifies a source object by what derivation applies to it.
type Kind int

const (
	// KindImage covers everything that is not a recognized video;
	// actual decodability is only discovered at derivation time.
	KindImage Kind = iota

	// KindVideo is recognized purely by file extension.
	KindVideo
)

// videoExts is the fixed set of recognized video extensions.
var videoExts = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".ogg":  {},
	".mov":  {},
	".m4v":  {},
}

// KindOf classifies a source name by its extension.
func KindOf(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := videoExts[ext]; ok {
		return KindVideo
	}
	return KindImage
}

// Derivative output extensions, fixed per media kind.
const (
	imageDerivativeExt = ".jpg"
	videoDerivativeExt = ".mp4"
	derivativePrefix   = "opt_"
)

// DerivativeName returns the deterministic derivative name for a source:
// a fixed prefix plus the source stem, with the extension determined by
// the media kind.
func DerivativeName(source string) string {
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(source, ext)

	out := imageDerivativeExt
	if KindOf(source) == KindVideo {
		out = videoDerivativeExt
	}
	return derivativePrefix + stem + out
}
