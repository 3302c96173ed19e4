package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/enhancement"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/export"
	"github.com/jo-hoe/fingerprint-enhancer/internal/common"
	"github.com/jo-hoe/fingerprint-enhancer/internal/core"
	"github.com/jo-hoe/fingerprint-enhancer/internal/records"

	"github.com/labstack/echo/v4"
)

const mimePNG = "image/png"

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type StudentResponse struct {
	Index     int     `json:"index"`
	SignNo    int     `json:"signNo"`
	Name      string  `json:"name"`
	StudentID string  `json:"studentId"`
	Images    [3]bool `json:"images"`
}

type SubmissionResponse struct {
	Student  StudentResponse `json:"student"`
	Failures []string        `json:"failures,omitempty"`
}

type submitRequest struct {
	Name      string `form:"name"`
	StudentID string `form:"id"`
}

type indexRequest struct {
	Index int `param:"index" validate:"min=0"`
}

type slotRequest struct {
	Index int `param:"index" validate:"min=0"`
	Slot  int `param:"slot" validate:"min=0,max=2"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group("/api")
	api.GET("/students", s.listStudentsHandler)
	api.POST("/students", s.submitStudentHandler)
	api.DELETE("/students/:index", s.deleteStudentHandler)
	api.GET("/students/:index/images/:slot", s.studentImageHandler)
	api.POST("/enhance", s.enhanceHandler)
	api.GET("/export", s.exportHandler)
}

func toStudentResponse(index int, record records.StudentRecord) StudentResponse {
	response := StudentResponse{
		Index:     index,
		SignNo:    records.SignNo(index),
		Name:      record.Name,
		StudentID: record.StudentID,
	}
	for slot, img := range record.Slots {
		response.Images[slot] = img != nil
	}
	return response
}

func (s *APIService) listStudentsHandler(ctx echo.Context) error {
	all := s.coreService.Records()
	response := make([]StudentResponse, 0, len(all))
	for index, record := range all {
		response = append(response, toStudentResponse(index, record))
	}
	return ctx.JSON(http.StatusOK, response)
}

func (s *APIService) submitStudentHandler(ctx echo.Context) error {
	var request submitRequest
	if err := ctx.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid submission form")
	}

	uploads, err := readUploads(ctx, "images")
	if err != nil {
		slog.Error("submitStudentHandler: failed to read uploads", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	submission, err := s.coreService.SubmitStudent(ctx.Request().Context(), request.Name, request.StudentID, uploads)
	if errors.Is(err, records.ErrTooManyImages) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("A maximum of %d images can be uploaded.", records.MaxImages))
	}
	if err != nil {
		slog.Error("submitStudentHandler: failed to store student", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store student")
	}

	response := SubmissionResponse{Student: toStudentResponse(submission.Index, submission.Record)}
	for _, failure := range submission.Failures {
		response.Failures = append(response.Failures, failure.Message())
	}
	return ctx.JSON(http.StatusCreated, response)
}

func (s *APIService) deleteStudentHandler(ctx echo.Context) error {
	var request indexRequest
	if err := ctx.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "index must be a number")
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	if _, err := s.coreService.DeleteRecord(ctx.Request().Context(), request.Index); err != nil {
		return recordError(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) studentImageHandler(ctx echo.Context) error {
	var request slotRequest
	if err := ctx.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "index and slot must be numbers")
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	data, err := s.coreService.SlotPNG(request.Index, request.Slot)
	if err != nil {
		return recordError(err)
	}
	return ctx.Blob(http.StatusOK, mimePNG, data)
}

func (s *APIService) enhanceHandler(ctx echo.Context) error {
	uploads, err := readUploads(ctx, "image")
	if err != nil || len(uploads) != 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "exactly one image must be uploaded")
	}

	img, err := s.coreService.EnhanceImage(ctx.Request().Context(), uploads[0])
	var enhancementErr *enhancement.EnhancementError
	if errors.As(err, &enhancementErr) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("Error enhancing image: %v", enhancementErr.Err))
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to enhance image")
	}

	data, err := img.EncodePNG()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to encode image")
	}
	return ctx.Blob(http.StatusOK, mimePNG, data)
}

func (s *APIService) exportHandler(ctx echo.Context) error {
	data, err := s.coreService.ExportSpreadsheet()
	if err != nil {
		slog.Error("exportHandler: export failed", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export spreadsheet")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName))
	return ctx.Blob(http.StatusOK, export.ContentType, data)
}

// readUploads returns the files of a multipart field in upload order; a missing field yields none
func readUploads(ctx echo.Context, field string) ([]enhancement.RawImage, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	var uploads []enhancement.RawImage
	for _, file := range form.File[field] {
		data, err := common.ReadFormFile(file)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, enhancement.RawImage{Filename: file.Filename, Data: data})
	}
	return uploads, nil
}

func recordError(err error) error {
	switch {
	case errors.Is(err, records.ErrIndexOutOfRange), errors.Is(err, records.ErrEmptySlot):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		slog.Error("record operation failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "record operation failed")
	}
}
