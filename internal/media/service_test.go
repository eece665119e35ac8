package media

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
	gifBytes  = append([]byte("GIF89a"), make([]byte, 32)...)
)

type stubStore struct {
	stored      []byte
	name        string
	contentType string
	storeErr    error
	destroyed   []string
	destroyErr  error
}

func (s *stubStore) Store(ctx context.Context, data []byte, name, contentType string) (types.Image, error) {
	if s.storeErr != nil {
		return types.Image{}, s.storeErr
	}
	s.stored = data
	s.name = name
	s.contentType = contentType
	return types.Image{URL: "https://cdn.example.com/" + name, Filename: "ecobridge/" + name}, nil
}

func (s *stubStore) Destroy(ctx context.Context, filename string) error {
	s.destroyed = append(s.destroyed, filename)
	return s.destroyErr
}

func newTestService(t *testing.T, store *stubStore) Service {
	t.Helper()
	svc, err := NewService(store, 1<<20, "https://example.com/default.jpg", nil)
	require.NoError(t, err)
	return svc
}

func TestSaveSniffsContentType(t *testing.T) {
	cases := map[string]struct {
		data []byte
		want string
	}{
		"png":  {pngBytes, "image/png"},
		"jpeg": {jpegBytes, "image/jpeg"},
		"gif":  {gifBytes, "image/gif"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := &stubStore{}
			image, err := newTestService(t, store).Save(context.Background(), "my photo."+name, bytes.NewReader(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, store.contentType)
			assert.Equal(t, "my-photo."+name, store.name)
			assert.Equal(t, "ecobridge/my-photo."+name, image.Filename)
		})
	}
}

func TestSaveRejectsNonImages(t *testing.T) {
	store := &stubStore{}
	_, err := newTestService(t, store).Save(context.Background(), "notes.png", strings.NewReader("just some text pretending"))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "PNG, JPEG, WebP, or GIF")
	assert.Nil(t, store.stored)
}

func TestSaveRejectsOversizedAndEmpty(t *testing.T) {
	store := &stubStore{}
	svc, err := NewService(store, 16, "", nil)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), "big.png", bytes.NewReader(pngBytes))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Save(context.Background(), "empty.png", bytes.NewReader(nil))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Save(context.Background(), "nil.png", nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSaveMapsStoreFailureToDependency(t *testing.T) {
	store := &stubStore{storeErr: errors.New("bucket unavailable")}
	_, err := newTestService(t, store).Save(context.Background(), "a.png", bytes.NewReader(pngBytes))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestDiscardSkipsPlaceholder(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Discard(ctx, types.Image{}))
	require.NoError(t, svc.Discard(ctx, types.Image{URL: "https://example.com/default.jpg"}))
	assert.Empty(t, store.destroyed)

	require.NoError(t, svc.Discard(ctx, types.Image{URL: "https://cdn/x.png", Filename: "ecobridge/x.png"}))
	assert.Equal(t, []string{"ecobridge/x.png"}, store.destroyed)

	store.destroyErr = errors.New("gone wrong")
	assert.Error(t, svc.Discard(ctx, types.Image{URL: "https://cdn/y.png", Filename: "ecobridge/y.png"}))
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"":                    "",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.png`: "a-b.png",
		"  .hidden.  ":        "hidden",
	}
	for input, want := range cases {
		if got := sanitizeFileName(input); got != want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(nil, 10, "", nil); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewService(&stubStore{}, 0, "", nil); err == nil {
		t.Fatal("expected error for zero size")
	}
}
