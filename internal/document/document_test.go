package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// buildPDF writes a minimal PDF with one blank page per size (width, height in points).
func buildPDF(t *testing.T, sizes ...[2]int) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 0, len(sizes)+2)
	write := func(obj string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}

	kids := make([]string, 0, len(sizes))
	for i := range sizes {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}

	buf.WriteString("%PDF-1.4\n")
	write("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	write(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), len(sizes)))
	for i, size := range sizes {
		write(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] >>\nendobj\n", i+3, size[0], size[1]))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func TestProcessRendersOnlyFirstPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		pages [][2]int
	}{
		{name: "single page", pages: [][2]int{{200, 100}}},
		{name: "two pages", pages: [][2]int{{200, 100}, {120, 300}}},
		{name: "many pages", pages: [][2]int{{200, 100}, {50, 50}, {300, 400}, {612, 792}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPreprocessor(Config{}, zap.NewNop())
			payload, err := p.Process(context.Background(), buildPDF(t, tt.pages...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if payload.MIMEType != MIMETypeJPEG {
				t.Fatalf("unexpected mime type: %s", payload.MIMEType)
			}

			if payload.Width != 200 || payload.Height != 100 {
				t.Fatalf("expected first page dimensions 200x100, got %dx%d", payload.Width, payload.Height)
			}

			img, err := DecodeImage(payload)
			if err != nil {
				t.Fatalf("decoding payload: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
				t.Fatalf("decoded image has dimensions %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestProcessScalesWithDPI(t *testing.T) {
	t.Parallel()

	p := NewPreprocessor(Config{DPI: 144}, zap.NewNop())
	payload, err := p.Process(context.Background(), buildPDF(t, [2]int{100, 50}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payload.Width != 200 || payload.Height != 100 {
		t.Fatalf("expected 200x100 at 144 dpi, got %dx%d", payload.Width, payload.Height)
	}
}

func TestProcessEmptyInput(t *testing.T) {
	t.Parallel()

	p := NewPreprocessor(Config{}, nil)
	for _, data := range [][]byte{nil, {}} {
		if _, err := p.Process(context.Background(), data); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
	}
}

func TestProcessUnreadableDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "not a pdf", data: []byte("this is definitely not a pdf document")},
		{name: "no pages", data: buildPDF(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPreprocessor(Config{}, zap.NewNop())
			_, err := p.Process(context.Background(), tt.data)
			if !errors.Is(err, ErrUnreadableDocument) {
				t.Fatalf("expected ErrUnreadableDocument, got %v", err)
			}
		})
	}
}

func TestProcessCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPreprocessor(Config{}, zap.NewNop())
	if _, err := p.Process(ctx, buildPDF(t, [2]int{10, 10})); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 37, 23))
	for x := 0; x < 37; x++ {
		for y := 0; y < 23; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 10), B: 128, A: 255})
		}
	}

	payload, err := Encode(src, DefaultQuality)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeImage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decoded.Bounds().Dx() != 37 || decoded.Bounds().Dy() != 23 {
		t.Fatalf("round trip changed dimensions: %v", decoded.Bounds())
	}
}

func TestPayloadDataURI(t *testing.T) {
	t.Parallel()

	p := &Payload{MIMEType: MIMETypeJPEG, Data: "QUJD"}
	if got := p.DataURI(); got != "data:image/jpeg;base64,QUJD" {
		t.Fatalf("unexpected data uri: %q", got)
	}

	raw, err := p.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != "ABC" {
		t.Fatalf("unexpected bytes: %q", raw)
	}

	var empty *Payload
	if empty.DataURI() != "" {
		t.Fatalf("expected empty data uri for nil payload")
	}
}
