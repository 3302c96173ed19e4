package backend

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/enhancement"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/export"
	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
	"github.com/jo-hoe/fingerprint-enhancer/internal/core"
	"github.com/jo-hoe/fingerprint-enhancer/internal/ridge"

	"github.com/labstack/echo/v4"
)

type upload struct {
	field    string
	filename string
	data     []byte
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	config := core.DefaultConfig()
	coreService, err := core.NewCoreService(config, enhancement.WithRidgeEnhancer(ridge.Identity{}))
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = common.NewGenericEchoValidator()
	NewAPIService(config, coreService).SetRoutes(e)
	return e
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 6, 4))
	for x := 0; x < 3; x++ {
		for y := 0; y < 4; y++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files []upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField error: %v", err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatalf("CreateFormFile error: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func listStudents(t *testing.T, e *echo.Echo) []StudentResponse {
	t.Helper()
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var students []StudentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	return students
}

func TestProbe(t *testing.T) {
	rec := serve(newTestServer(t), httptest.NewRequest(http.MethodGet, "/probe", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSubmitStudent_ReportsFailedUploads(t *testing.T) {
	e := newTestServer(t)
	req := multipartRequest(t, http.MethodPost, "/api/students",
		map[string]string{"name": "Asha Rao", "id": "S001"},
		[]upload{
			{"images", "good.png", testPNG(t)},
			{"images", "bad.bmp", []byte("garbage")},
		})

	rec := serve(e, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var response SubmissionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Student.SignNo != 1 || response.Student.Name != "Asha Rao" || response.Student.StudentID != "S001" {
		t.Errorf("unexpected student %+v", response.Student)
	}
	if response.Student.Images != [3]bool{true, false, false} {
		t.Errorf("expected only slot 0 filled, got %v", response.Student.Images)
	}
	if len(response.Failures) != 1 || !strings.Contains(response.Failures[0], "bad.bmp") {
		t.Errorf("expected failure for bad.bmp, got %v", response.Failures)
	}

	students := listStudents(t, e)
	if len(students) != 1 || students[0].Index != 0 {
		t.Errorf("expected one listed student, got %v", students)
	}
}

func TestSubmitStudent_TooManyImages(t *testing.T) {
	e := newTestServer(t)
	files := make([]upload, 4)
	for i := range files {
		files[i] = upload{"images", "scan.png", testPNG(t)}
	}

	rec := serve(e, multipartRequest(t, http.MethodPost, "/api/students", map[string]string{"name": "A", "id": "1"}, files))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "maximum of 3 images") {
		t.Errorf("expected maximum warning, got %s", rec.Body.String())
	}
	if len(listStudents(t, e)) != 0 {
		t.Error("expected no student to be stored")
	}
}

func TestStudentImageAndDelete(t *testing.T) {
	e := newTestServer(t)
	for _, name := range []string{"A", "B"} {
		req := multipartRequest(t, http.MethodPost, "/api/students", map[string]string{"name": name, "id": name},
			[]upload{{"images", "scan.png", testPNG(t)}})
		if rec := serve(e, req); rec.Code != http.StatusCreated {
			t.Fatalf("submit %s: expected 201, got %d", name, rec.Code)
		}
	}

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/students/1/images/0", nil))
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != mimePNG {
		t.Fatalf("expected png, got %d %s", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("expected decodable png: %v", err)
	}

	tests := []struct {
		target string
		status int
	}{
		{"/api/students/1/images/1", http.StatusNotFound},
		{"/api/students/7/images/0", http.StatusNotFound},
		{"/api/students/0/images/3", http.StatusBadRequest},
		{"/api/students/x/images/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, tt.target, nil)); rec.Code != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.status, rec.Code)
		}
	}

	if rec := serve(e, httptest.NewRequest(http.MethodDelete, "/api/students/0", nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	students := listStudents(t, e)
	if len(students) != 1 || students[0].Name != "B" || students[0].SignNo != 1 {
		t.Errorf("expected B to move to index 0, got %v", students)
	}

	if rec := serve(e, httptest.NewRequest(http.MethodDelete, "/api/students/4", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := serve(e, httptest.NewRequest(http.MethodDelete, "/api/students/-1", nil)); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEnhance(t *testing.T) {
	e := newTestServer(t)

	rec := serve(e, multipartRequest(t, http.MethodPost, "/api/enhance", nil, []upload{{"image", "scan.png", testPNG(t)}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("expected png: %v", err)
	}
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
		t.Errorf("expected 6x4, got %v", img.Bounds())
	}

	rec = serve(e, multipartRequest(t, http.MethodPost, "/api/enhance", nil, []upload{{"image", "scan.png", []byte("nope")}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}

	rec = serve(e, multipartRequest(t, http.MethodPost, "/api/enhance", nil, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	e := newTestServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != export.ContentType {
		t.Errorf("expected %s, got %s", export.ContentType, got)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(got, export.FileName) {
		t.Errorf("expected attachment named %s, got %s", export.FileName, got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected xlsx payload")
	}
}
