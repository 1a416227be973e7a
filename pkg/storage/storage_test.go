package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectRef_Key(t *testing.T) {
	t.Parallel()

	t.Run("original", func(t *testing.T) {
		t.Parallel()
		ref := ObjectRef{Tenant: "acme", Collection: "surveyA", Name: "u1_photo.jpg"}
		require.Equal(t, "acme/surveyA/u1_photo.jpg", ref.Key())
	})

	t.Run("derived", func(t *testing.T) {
		t.Parallel()
		ref := ObjectRef{Tenant: "acme", Collection: "surveyA", Name: "opt_photo.jpg", Derived: true}
		require.Equal(t, "acme/surveyA/derived/opt_photo.jpg", ref.Key())
	})
}

func TestObjectRef_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ref     ObjectRef
		wantErr bool
	}{
		{
			name: "valid",
			ref:  ObjectRef{Tenant: "acme", Collection: "surveyA", Name: "photo.jpg"},
		},
		{
			name:    "empty tenant",
			ref:     ObjectRef{Collection: "surveyA", Name: "photo.jpg"},
			wantErr: true,
		},
		{
			name:    "empty name",
			ref:     ObjectRef{Tenant: "acme", Collection: "surveyA"},
			wantErr: true,
		},
		{
			name:    "traversal in name",
			ref:     ObjectRef{Tenant: "acme", Collection: "surveyA", Name: "../secret"},
			wantErr: true,
		},
		{
			name:    "separator in collection",
			ref:     ObjectRef{Tenant: "acme", Collection: "a/b", Name: "photo.jpg"},
			wantErr: true,
		},
		{
			name:    "bare dot dot name",
			ref:     ObjectRef{Tenant: "acme", Collection: "surveyA", Name: ".."},
			wantErr: true,
		},
		{
			name:    "reserved collection",
			ref:     ObjectRef{Tenant: "acme", Collection: "derived", Name: "photo.jpg"},
			wantErr: true,
		},
		{
			name:    "unsafe tenant",
			ref:     ObjectRef{Tenant: "a b", Collection: "surveyA", Name: "photo.jpg"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.ref.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRef)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSplitExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, stem, ext string
	}{
		{"photo.jpg", "photo", ".jpg"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"noext", "noext", ""},
		{"trailing.", "trailing", "."},
	}
	for _, tt := range tests {
		stem, ext := splitExt(tt.in)
		require.Equal(t, tt.stem, stem)
		require.Equal(t, tt.ext, ext)
	}
}
