package routes_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"pagediff/internal/capture"
	"strings"
	"sync"
	"testing"
)

func serve(pattern string, handler http.HandlerFunc, method string, target string, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(method, target, strings.NewReader(body)))
	return recorder
}

// pagePNG renders a 10x10 white page with the first rows painted black.
func pagePNG(t *testing.T, blackRows int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, 10, blackRows), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pageBase64(t *testing.T, blackRows int) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(pagePNG(t, blackRows))
}

type fakeBrowser struct {
	pages map[string][]byte
}

func (f *fakeBrowser) Capture(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error) {
	data, ok := f.pages[url]
	if !ok {
		return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return &capture.CaptureResult{Screenshot: data}, nil
}

func (f *fakeBrowser) Inspect(ctx context.Context, url string, x float64, y float64, options capture.CaptureOptions) (*capture.Element, error) {
	if _, ok := f.pages[url]; !ok {
		return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return &capture.Element{Selector: "#hero", TagName: "DIV", InnerText: "Welcome"}, nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "mem://" + key, nil
}

func (m *memStorage) Get(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[strings.TrimPrefix(url, "mem://")]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}
