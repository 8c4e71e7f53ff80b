package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/posterkit/config"
	"github.com/ByLCY/posterkit/export"
	"github.com/ByLCY/posterkit/layout"
	"github.com/ByLCY/posterkit/slide"
)

const posterDSL = `poster Launch {
  canvas 720 360 {
    text headline {
      rect: [0, 0, 720, 60]
      prompt: "Main headline"
      "Hello ${name}"
    }
    text tagline {
      rect: [0, 100, 720, 40]
      "placeholder"
    }
  }
}`

type fakeSnapshotter struct {
	err    error
	poster *layout.Poster
}

func (f *fakeSnapshotter) Snapshot(_ context.Context, p *layout.Poster) (image.Image, error) {
	f.poster = p
	if f.err != nil {
		return nil, f.err
	}
	return image.NewNRGBA(image.Rect(0, 0, 8, 4)), nil
}

type fakeWriter struct {
	err error
	doc *slide.Document
}

func (f *fakeWriter) WriteDocument(_ context.Context, doc *slide.Document, w io.Writer) error {
	f.doc = doc
	if f.err != nil {
		return f.err
	}
	zw := zip.NewWriter(w)
	if _, err := zw.Create("ppt/presentation.xml"); err != nil {
		return err
	}
	return zw.Close()
}

func newTestServer(snap *fakeSnapshotter, writer *fakeWriter) *echo.Echo {
	cfg := config.Default().Server
	cfg.LogRequest = false
	return NewServer(cfg, &Dependencies{
		Preparer: &export.Preparer{},
		Exporter: export.New(export.Options{Snapshotter: snap, Writer: writer}),
		Version:  "test",
	})
}

func postJSON(t *testing.T, e *echo.Echo, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestServer(&fakeSnapshotter{}, &fakeWriter{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestExportPNG(t *testing.T) {
	snap := &fakeSnapshotter{}
	e := newTestServer(snap, &fakeWriter{})

	rec := postJSON(t, e, "/api/export/png", ExportRequest{
		Source: posterDSL,
		Data:   map[string]any{"name": "Acme"},
		Params: map[string]string{"tagline": "Big sale", "missing": "x"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="poster.png"`)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "1", rec.Header().Get(HeaderDiagnostics))

	cfg, err := png.DecodeConfig(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)

	require.NotNil(t, snap.poster)
	assert.Equal(t, "Hello Acme", snap.poster.Children[0].Text)
	assert.Equal(t, "Big sale", snap.poster.Children[1].Text)
}

func TestExportPPTX(t *testing.T) {
	writer := &fakeWriter{}
	e := newTestServer(&fakeSnapshotter{}, writer)

	rec := postJSON(t, e, "/api/export/pptx", ExportRequest{
		Source:   posterDSL,
		Brand:    "Acme",
		Brief:    "Spring",
		Template: "Bold",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentTypePPTX, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="poster.pptx"`)

	_, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	require.NotNil(t, writer.doc)
	assert.Equal(t, "Acme Spring. Template: Bold", writer.doc.Title)
	assert.Equal(t, 10.0, writer.doc.PageWidth)
	assert.Len(t, writer.doc.Shapes, 2)
}

func TestExportValidation(t *testing.T) {
	e := newTestServer(&fakeSnapshotter{}, &fakeWriter{})

	rec := postJSON(t, e, "/api/export/png", ExportRequest{Source: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = postJSON(t, e, "/api/export/png", ExportRequest{Source: "poster {"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_REQUEST")

	req := httptest.NewRequest(http.MethodPost, "/api/export/pptx", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestExportBoundaryFailures(t *testing.T) {
	e := newTestServer(&fakeSnapshotter{err: errors.New("gpu lost")}, &fakeWriter{err: errors.New("disk full")})

	rec := postJSON(t, e, "/api/export/png", ExportRequest{Source: posterDSL})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "SNAPSHOT_FAILED")
	assert.Contains(t, rec.Body.String(), "gpu lost")

	rec = postJSON(t, e, "/api/export/pptx", ExportRequest{Source: posterDSL})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "SERIALIZE_FAILED")
}

func TestComponents(t *testing.T) {
	e := newTestServer(&fakeSnapshotter{}, &fakeWriter{})

	rec := postJSON(t, e, "/api/components", ExportRequest{Source: posterDSL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ComponentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Components, 2)
	assert.Equal(t, "headline", resp.Components[0].Name)
	assert.Equal(t, "text", resp.Components[0].Kind)
	assert.Equal(t, "headline: Main headline", resp.Prompt)
}

func TestErrorHandlerMapsExportErrors(t *testing.T) {
	e := echo.New()
	cases := map[string]struct {
		err  error
		code int
	}{
		"invalid source": {err: export.ErrInvalidSource, code: http.StatusBadRequest},
		"snapshot":       {err: &export.BoundaryError{Stage: export.StageSnapshot, Err: errors.New("x")}, code: http.StatusBadGateway},
		"http error":     {err: echo.ErrNotFound, code: http.StatusNotFound},
		"unknown":        {err: errors.New("boom"), code: http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			ErrorHandler(tc.err, c)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestExportTextUpdates(t *testing.T) {
	snap := &fakeSnapshotter{}
	e := newTestServer(snap, &fakeWriter{})

	rec := postJSON(t, e, "/api/export/png", ExportRequest{
		Source: posterDSL,
		Texts:  map[string]string{"tagline": "Only text", "nope": "x"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get(HeaderDiagnostics))
	require.NotNil(t, snap.poster)
	assert.Equal(t, "Only text", snap.poster.Children[1].Text)
}
