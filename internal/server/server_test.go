package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/gnemet/SlideLens/internal/compose"
	"github.com/gnemet/SlideLens/internal/config"
	"github.com/gnemet/SlideLens/internal/convert"
	"github.com/gnemet/SlideLens/internal/pipeline"
	"github.com/gnemet/SlideLens/internal/pptx"
	"github.com/gnemet/SlideLens/internal/raster"
)

// fakeConverter parses the tag like the real pipeline and returns a fixed result.
type fakeConverter struct {
	err     error
	gotTag  string
	gotData []byte
}

func (f *fakeConverter) Convert(_ context.Context, data []byte, tag string) (*pipeline.Result, error) {
	f.gotTag, f.gotData = tag, data
	format, err := pipeline.ParseFormat(tag)
	if err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	enc, err := compose.Encode(image.NewRGBA(image.Rect(0, 0, 20, 10)))
	if err != nil {
		return nil, err
	}
	res := &pipeline.Result{
		Format:  format,
		Pages:   []pipeline.PageSize{{Width: 10, Height: 10}, {Width: 10, Height: 10}},
		Width:   20,
		Height:  10,
		Encoded: enc,
	}
	if format == pipeline.FormatPPTX {
		res.Theme = pptx.ThemeFonts{Major: "Georgia", Minor: "Verdana"}
		res.Fonts = pptx.SlideFontReport{1: {"Georgia", "Arial"}, 2: {""}}
	}
	return res, nil
}

func newTestServer(t *testing.T, conv pipeline.Converter) http.Handler {
	t.Helper()
	cfg := config.ApplicationConfig{Name: "SlideLens", Version: "test", MaxUploadMB: 1}
	return New(cfg, conv, nil, zaptest.NewLogger(t)).Routes()
}

func uploadRequest(t *testing.T, filename string, body []byte, format string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(body)
	}
	if format != "" {
		mw.WriteField("format", format)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/convert", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeConverter{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["database"] != false {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if langs, ok := body["languages"].([]any); !ok || len(langs) != 2 || langs[0] != "en" || langs[1] != "ru" {
		t.Errorf("languages = %v", body["languages"])
	}
}

func TestConvert_Deck(t *testing.T) {
	conv := &fakeConverter{}
	h := newTestServer(t, conv)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "talk.pptx", []byte("deck"), ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if conv.gotTag != "pptx" || string(conv.gotData) != "deck" {
		t.Errorf("converter got tag %q data %q", conv.gotTag, conv.gotData)
	}

	var out struct {
		ID        string               `json:"id"`
		Format    string               `json:"format"`
		Width     int                  `json:"width"`
		Height    int                  `json:"height"`
		Pages     []pipeline.PageSize  `json:"pages"`
		Image     string               `json:"image"`
		Theme     *pptx.ThemeFonts     `json:"theme"`
		Fonts     map[string][]*string `json:"fonts"`
		FontsText string               `json:"fonts_text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.ID == "" || out.Format != "pptx" || out.Width != 20 || out.Height != 10 || len(out.Pages) != 2 {
		t.Errorf("response = %+v", out)
	}
	if len(out.Image) < 4 || out.Image[:4] != "/9j/" {
		t.Errorf("image is not base64 jpeg: %.10s", out.Image)
	}
	if out.Theme == nil || out.Theme.Major != "Georgia" {
		t.Errorf("theme = %+v", out.Theme)
	}
	if f := out.Fonts["2"]; len(f) != 1 || f[0] != nil {
		t.Errorf("unresolved font should be null: %v", out.Fonts)
	}
	if out.FontsText != "Slide 1: Georgia, Arial\nSlide 2: unknown" {
		t.Errorf("fonts_text = %q", out.FontsText)
	}
}

func TestConvert_ExplicitFormatWins(t *testing.T) {
	conv := &fakeConverter{}
	h := newTestServer(t, conv)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "scan.bin", []byte("%PDF"), "PDF"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if conv.gotTag != "PDF" {
		t.Errorf("tag = %q", conv.gotTag)
	}
	if body := decode(t, rec); body["fonts_text"] != "" {
		t.Errorf("pdf response carries fonts: %v", body["fonts_text"])
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		format   string
		err      error
		lang     string
		status   int
		wantBody string
	}{
		{"unsupported", "notes.txt", "", nil, "", http.StatusBadRequest, "format not supported: txt"},
		{"unsupported ru", "notes.txt", "", nil, "ru", http.StatusBadRequest, "формат не поддерживается: txt"},
		{"missing file", "", "pdf", nil, "", http.StatusBadRequest, "missing \"file\" field in upload"},
		{"conversion failed", "a.pptx", "", fmt.Errorf("soffice: %w", convert.ErrConversionFailed), "", http.StatusBadGateway, "the document could not be converted"},
		{"empty document", "a.pdf", "", raster.ErrEmptyDocument, "", http.StatusUnprocessableEntity, "the document has no pages"},
		{"not a deck", "a.pptx", "", fmt.Errorf("read fonts: %w", pptx.ErrInvalidPackage), "", http.StatusUnprocessableEntity, "the file is not a valid presentation"},
		{"no office suite", "a.pptx", "", pipeline.ErrNoDeckConverter, "", http.StatusBadGateway, "the document could not be converted"},
		{"staging failure", "a.pptx", "", &convert.IOError{Op: "write", Path: "/tmp/x", Err: fmt.Errorf("disk full")}, "", http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeConverter{err: tt.err})
			req := uploadRequest(t, tt.file, []byte("x"), tt.format)
			if tt.lang != "" {
				req.Header.Set("Accept-Language", tt.lang)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decode(t, rec)
			if body["error"] != tt.wantBody {
				t.Errorf("error = %q, want %q", body["error"], tt.wantBody)
			}
			if body["request_id"] == "" {
				t.Error("missing request id")
			}
		})
	}
}

func TestConversions_NoDatabase(t *testing.T) {
	h := newTestServer(t, &fakeConverter{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversions", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestModels(t *testing.T) {
	h := newTestServer(t, &fakeConverter{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))

	var models []map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &models); err != nil {
		t.Fatal(err)
	}
	if len(models) == 0 || models[0]["id"] == "" {
		t.Errorf("models = %v", models)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestServer(t, &fakeConverter{})
	const id = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}
}
