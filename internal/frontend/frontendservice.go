package frontend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/enhancement"
	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
	"github.com/jo-hoe/fingerprint-enhancer/internal/core"
	"github.com/jo-hoe/fingerprint-enhancer/internal/records"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "index.html"
	mimePNG      = "image/png"

	studentsTemplate = "students.html"
	resultTemplate   = "result.html"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type slotCell struct {
	Slot   int
	Number int
	Filled bool
}

type studentRow struct {
	Index     int
	SignNo    int
	Name      string
	StudentID string
	Slots     []slotCell
}

type tableData struct {
	Rows      []studentRow
	Timestamp string
}

type resultData struct {
	Name     string
	SignNo   int
	Error    string
	Warnings []string
	Table    *tableData
}

type thumbnailRequest struct {
	Index int `param:"index" validate:"min=0"`
	Slot  int `param:"slot" validate:"min=0,max=2"`
}

type deleteRequest struct {
	Index int `param:"index" validate:"min=0"`
}

type submitForm struct {
	Name      string `form:"name"`
	StudentID string `form:"id"`
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	// Create template renderer
	e.Renderer = NewTemplate()

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)

	e.POST("/htmx/students", service.htmxSubmitStudentHandler)
	e.GET("/htmx/students", service.htmxListStudentsHandler)
	e.DELETE("/htmx/students/:index", service.htmxDeleteStudentHandler)
	e.GET("/htmx/students/:index/thumb/:slot", service.htmxThumbnailHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, service.buildTable())
}

func (service *FrontendService) htmxSubmitStudentHandler(ctx echo.Context) error {
	var form submitForm
	if err := ctx.Bind(&form); err != nil {
		slog.Warn("htmxSubmitStudentHandler: invalid form", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid form")
	}

	multipartForm, err := ctx.MultipartForm()
	if err != nil {
		slog.Error("htmxSubmitStudentHandler: failed to parse multipart form",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to read uploaded files")
	}
	files := multipartForm.File["images"]
	if len(files) > records.MaxImages {
		slog.Warn("htmxSubmitStudentHandler: too many images", "count", len(files))
		return ctx.Render(http.StatusOK, resultTemplate, resultData{
			Error: fmt.Sprintf("A maximum of %d images can be uploaded.", records.MaxImages),
		})
	}

	uploads := make([]enhancement.RawImage, 0, len(files))
	for _, file := range files {
		data, err := common.ReadFormFile(file)
		if err != nil {
			slog.Error("htmxSubmitStudentHandler: failed to read uploaded file",
				"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
			return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
		}
		uploads = append(uploads, enhancement.RawImage{Filename: file.Filename, Data: data})
	}

	submission, err := service.coreService.SubmitStudent(ctx.Request().Context(), form.Name, form.StudentID, uploads)
	if err != nil {
		slog.Error("htmxSubmitStudentHandler: failed to store student",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to store student")
	}

	result := resultData{
		Name:   submission.Record.Name,
		SignNo: records.SignNo(submission.Index),
	}
	for _, failure := range submission.Failures {
		result.Warnings = append(result.Warnings, failure.Message())
	}
	table := service.buildTable()
	result.Table = &table

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, resultTemplate, result)
}

func (service *FrontendService) htmxListStudentsHandler(ctx echo.Context) error {
	// Prevent caching so the latest records are always shown
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, studentsTemplate, service.buildTable())
}

func (service *FrontendService) htmxDeleteStudentHandler(ctx echo.Context) error {
	var request deleteRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid record index")
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	if _, err := service.coreService.DeleteRecord(ctx.Request().Context(), request.Index); err != nil {
		if errors.Is(err, records.ErrIndexOutOfRange) {
			slog.Warn("htmxDeleteStudentHandler: record not found", "status", http.StatusNotFound, "index", request.Index)
			return ctx.String(http.StatusNotFound, "Record not found")
		}
		slog.Error("htmxDeleteStudentHandler: failed to delete record",
			"status", http.StatusInternalServerError, "index", request.Index, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to delete record")
	}

	// Prevent caching so the latest state is shown
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, studentsTemplate, service.buildTable())
}

func (service *FrontendService) htmxThumbnailHandler(ctx echo.Context) error {
	var request thumbnailRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid thumbnail request")
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	thumbnail, err := service.coreService.Thumbnail(request.Index, request.Slot)
	if err != nil || len(thumbnail) == 0 {
		slog.Warn("htmxThumbnailHandler: thumbnail not available",
			"status", http.StatusNotFound, "index", request.Index, "slot", request.Slot, "error", err)
		return ctx.String(http.StatusNotFound, "No image uploaded.")
	}

	// Prevent caching
	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) buildTable() tableData {
	all := service.coreService.Records()
	table := tableData{
		Rows:      make([]studentRow, 0, len(all)),
		Timestamp: service.timestampNanoStr(),
	}
	for index, record := range all {
		row := studentRow{
			Index:     index,
			SignNo:    records.SignNo(index),
			Name:      record.Name,
			StudentID: record.StudentID,
		}
		for slot, img := range record.Slots {
			row.Slots = append(row.Slots, slotCell{Slot: slot, Number: slot + 1, Filled: img != nil})
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) timestampNanoStr() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
