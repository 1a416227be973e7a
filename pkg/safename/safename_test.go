package safename_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveylens/mediastore/pkg/safename"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain filename", in: "photo.jpg", want: "photo.jpg"},
		{name: "keeps dashes underscores dots", in: "a-b_c.d", want: "a-b_c.d"},
		{name: "strips directory", in: "dir/sub/photo.jpg", want: "photo.jpg"},
		{name: "strips windows directory", in: `dir\sub\photo.jpg`, want: "photo.jpg"},
		{name: "traversal collapses to fallback", in: "../../etc/passwd", want: "passwd"},
		{name: "bare dot dot", in: "..", want: "file"},
		{name: "single dot", in: ".", want: "file"},
		{name: "empty", in: "", want: "file"},
		{name: "spaces replaced", in: "my photo.jpg", want: "my_photo.jpg"},
		{name: "unicode replaced", in: "фото.jpg", want: "____.jpg"},
		{name: "control chars replaced", in: "a\x00b\nc", want: "a_b_c"},
		{name: "only punctuation", in: "-_-", want: "file"},
		{name: "trailing slash", in: "dir/", want: "file"},
		{name: "query-ish input", in: "x?y=1&z=2", want: "x_y_1_z_2"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, safename.Clean(tt.in))
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"photo.jpg", "../../x", "a b c", "", "..", "абв", `C:\tmp\f.png`,
		"weird<>|:*.mov", "....", "nested/dir/name.tar.gz",
	}
	for _, in := range inputs {
		once := safename.Clean(in)
		require.Equal(t, once, safename.Clean(once), "Clean must be idempotent for %q", in)
	}
}

func TestClean_OutputCharset(t *testing.T) {
	t.Parallel()

	inputs := []string{"a b", "x/y\\z", "\x7f\x01", "file.name-ok_1", "💾.bin"}
	for _, in := range inputs {
		out := safename.Clean(in)
		require.NotEmpty(t, out)
		for _, r := range out {
			ok := r == '.' || r == '_' || r == '-' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			require.True(t, ok, "Clean(%q) produced disallowed rune %q", in, r)
		}
	}
}
