package document

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

const (
	// MIMETypeJPEG is the media type of every payload produced by the preprocessor.
	MIMETypeJPEG = "image/jpeg"

	// DefaultDPI renders the page at mupdf's native 1:1 scale.
	DefaultDPI     = 72
	DefaultQuality = 90
)

var (
	// ErrEmptyInput is returned when no document was supplied.
	ErrEmptyInput = errors.New("no file uploaded")
	// ErrUnreadableDocument is returned when the bytes are not a paged document or it has no pages.
	ErrUnreadableDocument = errors.New("unreadable document")
)

// Config controls rasterization of the first page.
type Config struct {
	DPI     float64 `mapstructure:"dpi"`
	Quality int     `mapstructure:"quality"`
}

// Payload is a transport-ready image: base64 encoded bytes plus the declared media type.
type Payload struct {
	MIMEType string
	Data     string
	Width    int
	Height   int
}

// Bytes decodes the payload data back to raw image bytes.
func (p *Payload) Bytes() ([]byte, error) {
	if p == nil {
		return nil, errors.New("payload is nil")
	}
	return base64.StdEncoding.DecodeString(p.Data)
}

// DataURI formats the payload for inline embedding in HTML.
func (p *Payload) DataURI() string {
	if p == nil || p.Data == "" {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", p.MIMEType, p.Data)
}

// Preprocessor turns uploaded PDF bytes into an image of the first page.
type Preprocessor struct {
	dpi     float64
	quality int
	logger  *zap.Logger
}

func NewPreprocessor(cfg Config, logger *zap.Logger) *Preprocessor {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Preprocessor{
		dpi:     cfg.DPI,
		quality: cfg.Quality,
		logger:  logger,
	}
}

// Process renders page 1 of the document and encodes it as JPEG.
// Pages after the first are ignored.
func (p *Preprocessor) Process(ctx context.Context, data []byte) (*Payload, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", ErrUnreadableDocument, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrUnreadableDocument)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := doc.ImageDPI(0, p.dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: render first page: %v", ErrUnreadableDocument, err)
	}

	payload, err := Encode(flatten(img), p.quality)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("rendered first page",
		zap.Int("pages", pages),
		zap.Int("width", payload.Width),
		zap.Int("height", payload.Height),
		zap.Int("encoded_length", len(payload.Data)),
	)

	return payload, nil
}

// Encode compresses img as JPEG and wraps it into a Payload.
func Encode(img image.Image, quality int) (*Payload, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	bounds := img.Bounds()
	return &Payload{
		MIMEType: MIMETypeJPEG,
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

// DecodeImage decodes the payload bytes back to an image.
func DecodeImage(p *Payload) (image.Image, error) {
	raw, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}

// flatten composes the page over white so transparent regions do not turn black.
func flatten(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}
