package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	pkgerrors "github.com/ecobridge/ecobridge-server/pkg/errors"
	"github.com/ecobridge/ecobridge-server/pkg/logger"
	"github.com/ecobridge/ecobridge-server/pkg/types"
)

// ImageStore is the binary storage backend.
type ImageStore interface {
	Store(ctx context.Context, data []byte, name, contentType string) (types.Image, error)
	Destroy(ctx context.Context, filename string) error
}

// Service validates and stores user images.
type Service interface {
	Save(ctx context.Context, fileName string, r io.Reader) (types.Image, error)
	Discard(ctx context.Context, image types.Image) error
}

type service struct {
	store         ImageStore
	maxBytes      int64
	defaultAvatar string
	logg          *logger.Logger
}

// NewService constructs a media service backed by the provided image store.
// defaultAvatar is the shared placeholder that Discard never destroys.
func NewService(store ImageStore, maxBytes int64, defaultAvatar string, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("image store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &service{
		store:         store,
		maxBytes:      maxBytes,
		defaultAvatar: defaultAvatar,
		logg:          logg,
	}, nil
}

func (s *service) Save(ctx context.Context, fileName string, r io.Reader) (types.Image, error) {
	if r == nil {
		return types.Image{}, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return types.Image{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image")
	}
	if int64(len(data)) > s.maxBytes {
		return types.Image{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image must be at most %d MB", s.maxBytes>>20))
	}
	contentType, err := sniffImageType(data)
	if err != nil {
		return types.Image{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	name := sanitizeFileName(fileName)
	if name == "" {
		name = "image"
	}
	image, err := s.store.Store(ctx, data, name, contentType)
	if err != nil {
		return types.Image{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}
	return image, nil
}

// Discard destroys a stored image. The default avatar and empty references
// are skipped.
func (s *service) Discard(ctx context.Context, image types.Image) error {
	if image.IsZero() || image.IsPlaceholder(s.defaultAvatar) {
		return nil
	}
	if err := s.store.Destroy(ctx, image.Filename); err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "filename", image.Filename)
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "image destroy failed")
		}
		return fmt.Errorf("destroy image %s: %w", image.Filename, err)
	}
	return nil
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "" || clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
