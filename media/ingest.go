package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"danang-green/models"

	"github.com/apex/log"
	"github.com/gabriel-vasile/mimetype"
)

// maxImagePixels bounds the canvas decoded for a still frame
const maxImagePixels = 40_000_000

var accepted = map[string]models.MediaKind{
	"image/png":       models.MediaImage,
	"image/jpeg":      models.MediaImage,
	"image/webp":      models.MediaImage,
	"video/mp4":       models.MediaVideo,
	"video/webm":      models.MediaVideo,
	"video/quicktime": models.MediaVideo,
}

var extensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

// File is one user upload
type File struct {
	Name         string
	DeclaredMIME string
	Reader       io.Reader
}

// Ingested is the result of a successful ingest
type Ingested struct {
	Name           string
	DisplayURL     string
	Kind           models.MediaKind
	MIME           string
	StillFrame     []byte
	StillFrameMIME string
}

// Ingestor turns uploads into stored media plus a still frame for the classifier
type Ingestor struct {
	store         Store
	extractor     FrameExtractor
	decodeTimeout time.Duration
	maxBytes      int64
}

func NewIngestor(store Store, extractor FrameExtractor, decodeTimeout time.Duration, maxBytes int64) *Ingestor {
	return &Ingestor{
		store:         store,
		extractor:     extractor,
		decodeTimeout: decodeTimeout,
		maxBytes:      maxBytes,
	}
}

// Ingest reads, type-checks and stores the file, then produces the still frame.
// Every failure is a *models.MediaError and leaves nothing stored.
func (in *Ingestor) Ingest(ctx context.Context, f File) (*Ingested, error) {
	if f.Reader == nil {
		return nil, &models.MediaError{Cause: "file is unreadable"}
	}
	r := f.Reader
	if in.maxBytes > 0 {
		r = io.LimitReader(r, in.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &models.MediaError{Cause: "file is unreadable", Err: err}
	}
	if len(data) == 0 {
		return nil, &models.MediaError{Cause: "file is empty"}
	}
	if in.maxBytes > 0 && int64(len(data)) > in.maxBytes {
		return nil, &models.MediaError{Cause: fmt.Sprintf("file exceeds %d bytes", in.maxBytes)}
	}

	mimeType, kind, ok := detect(data, f.DeclaredMIME)
	if !ok {
		return nil, &models.MediaError{Cause: fmt.Sprintf("unsupported media type %s", mimeType), Err: models.ErrUnsupportedMedia}
	}

	var still []byte
	stillMIME := "image/jpeg"
	switch kind {
	case models.MediaImage:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &models.MediaError{Cause: "image could not be decoded", Err: err}
		}
		if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
			return nil, &models.MediaError{Cause: fmt.Sprintf("image of %dx%d pixels is too large", cfg.Width, cfg.Height)}
		}
		still, err = NormalizeStill(data)
		if err != nil {
			log.WithError(err).Warn("Falling back to original image bytes for still frame")
			still, stillMIME = data, mimeType
		}
	case models.MediaVideo:
		still, err = in.extractStill(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	name, err := in.store.Save(ctx, extensions[mimeType], data)
	if err != nil {
		return nil, &models.MediaError{Cause: "media could not be stored", Err: err}
	}

	return &Ingested{
		Name:           name,
		DisplayURL:     in.store.URL(name),
		Kind:           kind,
		MIME:           mimeType,
		StillFrame:     still,
		StillFrameMIME: stillMIME,
	}, nil
}

// Discard removes media stored by Ingest for a submission that did not produce a record
func (in *Ingestor) Discard(ctx context.Context, ing *Ingested) {
	if ing == nil || ing.Name == "" {
		return
	}
	if err := in.store.Remove(ctx, ing.Name); err != nil {
		log.WithError(err).WithField("media", ing.Name).Warn("Failed to discard media")
	}
}

func (in *Ingestor) extractStill(ctx context.Context, video []byte) ([]byte, error) {
	if in.extractor == nil {
		return nil, &models.MediaError{Cause: "video decoding is not available"}
	}
	if in.decodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.decodeTimeout)
		defer cancel()
	}
	frame, err := in.extractor.ExtractFrame(ctx, video)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &models.MediaError{Cause: "video decoding timed out", Err: err}
		}
		return nil, &models.MediaError{Cause: "video could not be decoded", Err: err}
	}
	if len(frame) == 0 {
		return nil, &models.MediaError{Cause: "video produced no frame"}
	}
	// re-encode through the same path as photos so the classifier sees bounded JPEGs
	if norm, err := NormalizeStill(frame); err == nil {
		frame = norm
	}
	return frame, nil
}

// detect sniffs the content type and falls back to the declared type
// only when sniffing is inconclusive.
func detect(data []byte, declared string) (string, models.MediaKind, bool) {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		for t, kind := range accepted {
			if m.Is(t) {
				return t, kind, true
			}
		}
		if m.Is("application/octet-stream") {
			break
		}
	}
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	sniffed := mimetype.Detect(data).String()
	if kind, ok := accepted[declared]; ok && strings.HasPrefix(sniffed, "application/octet-stream") {
		return declared, kind, true
	}
	return strings.SplitN(sniffed, ";", 2)[0], "", false
}
