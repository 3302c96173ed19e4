package frontend

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/enhancement"
	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
	"github.com/jo-hoe/fingerprint-enhancer/internal/core"
	"github.com/jo-hoe/fingerprint-enhancer/internal/ridge"
	"github.com/labstack/echo/v4"
)

func newTestFrontend(t *testing.T) *echo.Echo {
	t.Helper()
	config := core.DefaultConfig()
	config.ThumbnailWidth = 4
	coreService, err := core.NewCoreService(config, enhancement.WithRidgeEnhancer(ridge.Identity{}))
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = common.NewGenericEchoValidator()
	NewFrontendService(config, coreService).SetRoutes(e)
	return e
}

func scanPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 4)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func submitRequest(t *testing.T, name, id string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("name", name)
	_ = writer.WriteField("id", id)
	for filename, data := range files {
		part, err := writer.CreateFormFile("images", filename)
		if err != nil {
			t.Fatalf("CreateFormFile error: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/htmx/students", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRootRedirect(t *testing.T) {
	rec := serve(newTestFrontend(t), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/"+MainPageName {
		t.Errorf("expected redirect to /%s, got %d %s", MainPageName, rec.Code, rec.Header().Get("Location"))
	}
}

func TestIndex_Empty(t *testing.T) {
	rec := serve(newTestFrontend(t), httptest.NewRequest(http.MethodGet, "/"+MainPageName, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`hx-post="/htmx/students"`, `href="/api/export"`, `type="reset"`, "No students recorded yet."} {
		if !strings.Contains(body, want) {
			t.Errorf("expected index to contain %q", want)
		}
	}
}

func TestSubmit_RendersResultAndTable(t *testing.T) {
	e := newTestFrontend(t)

	rec := serve(e, submitRequest(t, "Asha <Rao>", "S001", map[string][]byte{"scan.png": scanPNG(t)}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<th>Delete</th>") {
		t.Error("expected table header with Delete column")
	}
	if !strings.Contains(body, "Sign No 1") {
		t.Errorf("expected confirmation, got %s", body)
	}
	if !strings.Contains(body, `hx-swap-oob="true"`) {
		t.Error("expected out of band table update")
	}
	if strings.Contains(body, "<Rao>") || !strings.Contains(body, "Asha &lt;Rao&gt;") {
		t.Error("expected the name to be escaped")
	}
	if strings.Count(body, "No image uploaded.") != 2 {
		t.Errorf("expected two empty slots, got %s", body)
	}
	if !strings.Contains(body, "/htmx/students/0/thumb/0") {
		t.Error("expected thumbnail link for slot 0")
	}

	thumb := serve(e, httptest.NewRequest(http.MethodGet, "/htmx/students/0/thumb/0", nil))
	if thumb.Code != http.StatusOK {
		t.Fatalf("expected thumbnail, got %d", thumb.Code)
	}
	img, err := png.Decode(thumb.Body)
	if err != nil {
		t.Fatalf("expected png thumbnail: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("expected thumbnail width 4, got %d", img.Bounds().Dx())
	}

	if missing := serve(e, httptest.NewRequest(http.MethodGet, "/htmx/students/0/thumb/1", nil)); missing.Code != http.StatusNotFound {
		t.Errorf("expected 404 for empty slot, got %d", missing.Code)
	}
}

func TestSubmit_ShowsEnhancementErrors(t *testing.T) {
	rec := serve(newTestFrontend(t), submitRequest(t, "Ben", "S002", map[string][]byte{"broken.jpg": []byte("xx")}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error enhancing image 1 (broken.jpg)") {
		t.Errorf("expected enhancement error, got %s", rec.Body.String())
	}
}

func TestSubmit_TooManyImages(t *testing.T) {
	e := newTestFrontend(t)
	files := map[string][]byte{"1.png": scanPNG(t), "2.png": scanPNG(t), "3.png": scanPNG(t), "4.png": scanPNG(t)}

	rec := serve(e, submitRequest(t, "C", "S003", files))
	if !strings.Contains(rec.Body.String(), "A maximum of 3 images can be uploaded.") {
		t.Errorf("expected warning, got %s", rec.Body.String())
	}

	list := serve(e, httptest.NewRequest(http.MethodGet, "/htmx/students", nil))
	if !strings.Contains(list.Body.String(), "No students recorded yet.") {
		t.Error("expected nothing to be stored")
	}
}

func TestDelete(t *testing.T) {
	e := newTestFrontend(t)
	for _, name := range []string{"First", "Second"} {
		if rec := serve(e, submitRequest(t, name, name, nil)); rec.Code != http.StatusOK {
			t.Fatalf("submit %s: expected 200, got %d", name, rec.Code)
		}
	}

	rec := serve(e, httptest.NewRequest(http.MethodDelete, "/htmx/students/0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "First") || !strings.Contains(body, "Second") {
		t.Errorf("expected only Second to remain, got %s", body)
	}
	if !strings.Contains(body, `hx-delete="/htmx/students/0"`) {
		t.Error("expected Second to move to index 0")
	}

	if rec := serve(e, httptest.NewRequest(http.MethodDelete, "/htmx/students/3", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
