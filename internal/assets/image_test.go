package assets

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestResize_CapsLargerDimension(t *testing.T) {
	svc := NewImageService()

	out, err := svc.Resize(context.Background(), pngBytes(t, 3000, 2000), 1500, 1500)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}

	w, h := decodeSize(t, out)
	if w != 1500 || h != 1000 {
		t.Errorf("got %dx%d, want 1500x1000", w, h)
	}
}

func TestResize_SmallImageKeepsDimensions(t *testing.T) {
	svc := NewImageService()

	out, err := svc.Resize(context.Background(), pngBytes(t, 400, 300), 1500, 1500)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}

	w, h := decodeSize(t, out)
	if w != 400 || h != 300 {
		t.Errorf("got %dx%d, want 400x300", w, h)
	}
}

func TestConvertToJPEG(t *testing.T) {
	svc := NewImageService()

	out, err := svc.ConvertToJPEG(context.Background(), pngBytes(t, 10, 10))
	if err != nil {
		t.Fatalf("ConvertToJPEG: %v", err)
	}
	decodeSize(t, out)

	if _, err := svc.ConvertToJPEG(context.Background(), []byte("not an image")); err == nil {
		t.Error("expected an error for undecodable input")
	}
}

func TestNormalizeFile_RenamesAndRemovesOriginal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "01_diagram.png")
	if err := os.WriteFile(src, pngBytes(t, 2000, 2000), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewImageService()
	out, err := svc.NormalizeFile(context.Background(), src, 800)
	if err != nil {
		t.Fatalf("NormalizeFile: %v", err)
	}
	if out != filepath.Join(dir, "01_diagram.jpg") {
		t.Errorf("out = %s", out)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("original should be removed")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := decodeSize(t, data); w != 800 || h != 800 {
		t.Errorf("got %dx%d, want 800x800", w, h)
	}
}

func TestNormalizeFile_ZeroMaxSizeConvertsWithoutResizing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "chart.png")
	if err := os.WriteFile(src, pngBytes(t, 2000, 1200), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewImageService()
	out, err := svc.NormalizeFile(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("NormalizeFile: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := decodeSize(t, data); w != 2000 || h != 1200 {
		t.Errorf("got %dx%d, want the original 2000x1200", w, h)
	}
}
