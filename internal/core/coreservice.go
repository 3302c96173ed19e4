package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/cache"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commands"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/database"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/enhancement"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/export"
	"github.com/jo-hoe/fingerprint-enhancer/internal/records"
	"golang.org/x/sync/errgroup"
)

// CoreService owns the student register and connects it to the enhancement pipeline,
// persistence and export
type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	cache           cache.Cache
	pipeline        *enhancement.Pipeline
	collection      *records.Collection

	// serializes add and delete together with their database writes
	mu sync.Mutex
}

// SlotFailure describes an upload that could not be enhanced
type SlotFailure struct {
	Slot     int
	Filename string
	Err      error
}

// Message is the user facing description of the failure
func (f SlotFailure) Message() string {
	cause := f.Err
	var enhancementErr *enhancement.EnhancementError
	if errors.As(f.Err, &enhancementErr) {
		cause = enhancementErr.Err
	}
	return fmt.Sprintf("Error enhancing image %d (%s): %v", f.Slot+1, f.Filename, cause)
}

// Submission is the outcome of SubmitStudent. The record is stored even when some uploads failed.
type Submission struct {
	Index    int
	Record   records.StudentRecord
	Failures []SlotFailure
}

func NewCoreService(config *ServiceConfig, opts ...enhancement.Option) (*CoreService, error) {
	pipeline, err := enhancement.NewPipeline(config.PipelineCommands(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enhancement pipeline: %w", err)
	}

	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}

	service := &CoreService{
		config:          config,
		databaseService: databaseService,
		cache:           getCache(config),
		pipeline:        pipeline,
		collection:      records.NewCollection(),
	}

	if err := service.restoreRecords(context.Background()); err != nil {
		_ = service.Close()
		return nil, fmt.Errorf("failed to restore student records: %w", err)
	}
	return service, nil
}

// EnhanceImage runs raw through the pipeline and mirrors the result left to right.
// Results are cached by pipeline signature and input bytes.
func (service *CoreService) EnhanceImage(ctx context.Context, raw enhancement.RawImage) (*records.EnhancedImage, error) {
	key := cache.Key(service.pipeline.Signature(), raw.Data)
	if cached := service.cachedImage(ctx, key, raw.Filename); cached != nil {
		return cached, nil
	}

	start := time.Now()
	gray, err := service.pipeline.Enhance(raw)
	enhancementsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	enhancementDuration.Observe(time.Since(start).Seconds())

	img, err := records.NewEnhancedImage(commands.FlipHorizontal(gray))
	if err != nil {
		return nil, &enhancement.EnhancementError{Source: raw.Filename, Err: err}
	}

	data, err := img.EncodePNG()
	if err == nil {
		err = service.cache.Set(ctx, key, data)
	}
	if err != nil {
		slog.Warn("failed to cache enhanced image", "filename", raw.Filename, "error", err)
	}
	return img, nil
}

func (service *CoreService) cachedImage(ctx context.Context, key, filename string) *records.EnhancedImage {
	data, err := service.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		cacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}
	if err != nil {
		cacheLookupsTotal.WithLabelValues("error").Inc()
		slog.Warn("enhancement cache lookup failed", "filename", filename, "error", err)
		return nil
	}
	img, err := records.DecodeEnhancedImage(data)
	if err != nil {
		cacheLookupsTotal.WithLabelValues("error").Inc()
		slog.Warn("discarding unreadable cache entry", "filename", filename, "error", err)
		return nil
	}
	cacheLookupsTotal.WithLabelValues("hit").Inc()
	slog.Debug("enhanced image served from cache", "filename", filename)
	return img
}

// SubmitStudent enhances up to three uploads concurrently and stores the record.
// Uploads that fail leave their slot empty and are reported in the result.
func (service *CoreService) SubmitStudent(ctx context.Context, name, studentID string, uploads []enhancement.RawImage) (*Submission, error) {
	if len(uploads) > records.MaxImages {
		slog.Warn("rejecting submission", "student_id", studentID, "uploads", len(uploads))
		return nil, fmt.Errorf("%w: got %d", records.ErrTooManyImages, len(uploads))
	}

	images := make([]*records.EnhancedImage, len(uploads))
	slotErrors := make([]error, len(uploads))

	var g errgroup.Group
	for slot, upload := range uploads {
		g.Go(func() error {
			img, err := service.EnhanceImage(ctx, upload)
			if err != nil {
				slotErrors[slot] = err
				return nil
			}
			images[slot] = img
			return nil
		})
	}
	_ = g.Wait()

	submission := &Submission{}
	for slot, err := range slotErrors {
		if err == nil {
			continue
		}
		slog.Error("failed to enhance upload", "student_id", studentID, "slot", slot, "filename", uploads[slot].Filename, "error", err)
		submission.Failures = append(submission.Failures, SlotFailure{Slot: slot, Filename: uploads[slot].Filename, Err: err})
	}

	index, record, err := service.AddRecord(ctx, name, studentID, images)
	if err != nil {
		return nil, err
	}
	submission.Index = index
	submission.Record = record
	return submission, nil
}

// AddRecord persists and appends a record built from already enhanced images
func (service *CoreService) AddRecord(ctx context.Context, name, studentID string, images []*records.EnhancedImage) (int, records.StudentRecord, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	record, err := service.collection.AddRecord(name, studentID, images, func(record records.StudentRecord) error {
		student, err := toStudent(record)
		if err != nil {
			return err
		}
		if err := service.databaseService.CreateStudent(ctx, student); err != nil {
			return fmt.Errorf("failed to persist student %s: %w", studentID, err)
		}
		return nil
	})
	if err != nil {
		return -1, records.StudentRecord{}, err
	}
	index := service.collection.Len() - 1
	studentRecords.Set(float64(index + 1))

	slog.Info("student record added", "index", index, "student_id", studentID, "images", record.ImageCount())
	return index, record, nil
}

func toStudent(record records.StudentRecord) (*database.Student, error) {
	student := &database.Student{Key: record.Key, Name: record.Name, StudentID: record.StudentID}
	for slot, img := range record.Slots {
		if img == nil {
			continue
		}
		data, err := img.EncodePNG()
		if err != nil {
			return nil, fmt.Errorf("failed to encode slot %d: %w", slot, err)
		}
		student.Images[slot] = data
	}
	return student, nil
}

// DeleteRecord removes the record at index from storage and memory; later records move up
func (service *CoreService) DeleteRecord(ctx context.Context, index int) (records.StudentRecord, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	record, err := service.collection.Get(index)
	if err != nil {
		return records.StudentRecord{}, err
	}
	if err := service.databaseService.DeleteStudent(ctx, record.Key); err != nil {
		return records.StudentRecord{}, fmt.Errorf("failed to delete student %s from database: %w", record.StudentID, err)
	}
	removed, err := service.collection.DeleteRecord(index)
	if err != nil {
		return records.StudentRecord{}, err
	}
	studentRecords.Set(float64(service.collection.Len()))

	slog.Info("student record deleted", "index", index, "student_id", removed.StudentID)
	return removed, nil
}

// Records returns a snapshot of all records in display order
func (service *CoreService) Records() []records.StudentRecord {
	return service.collection.Records()
}

// SlotImage returns the enhanced image of one slot of the record at index
func (service *CoreService) SlotImage(index, slot int) (*records.EnhancedImage, error) {
	record, err := service.collection.Get(index)
	if err != nil {
		return nil, err
	}
	return record.Image(slot)
}

// SlotPNG returns the enhanced image of one slot as PNG
func (service *CoreService) SlotPNG(index, slot int) ([]byte, error) {
	img, err := service.SlotImage(index, slot)
	if err != nil {
		return nil, err
	}
	return img.EncodePNG()
}

// Thumbnail returns the slot image scaled to the configured thumbnail width
func (service *CoreService) Thumbnail(index, slot int) ([]byte, error) {
	data, err := service.SlotPNG(index, slot)
	if err != nil {
		return nil, err
	}
	command, err := commands.NewPixelScaleCommand(map[string]any{"width": service.config.ThumbnailWidth})
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail command: %w", err)
	}
	thumbnail, err := command.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return thumbnail, nil
}

// ExportSpreadsheet renders all records into an xlsx workbook
func (service *CoreService) ExportSpreadsheet() ([]byte, error) {
	data, err := export.Spreadsheet(service.collection.Records())
	exportsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to export spreadsheet: %w", err)
	}
	return data, nil
}

func (service *CoreService) Close() error {
	return errors.Join(service.databaseService.Close(), service.cache.Close())
}

func (service *CoreService) restoreRecords(ctx context.Context) error {
	students, err := service.databaseService.GetStudents(ctx)
	if err != nil {
		return err
	}

	for _, student := range students {
		record := records.StudentRecord{Key: student.Key, Name: student.Name, StudentID: student.StudentID}
		for slot, data := range student.Images {
			if data == nil {
				continue
			}
			img, err := records.DecodeEnhancedImage(data)
			if err != nil {
				slog.Warn("skipping unreadable stored image", "student_key", student.Key, "slot", slot, "error", err)
				continue
			}
			record.Slots[slot] = img
		}
		service.collection.Append(record)
	}
	studentRecords.Set(float64(service.collection.Len()))

	if len(students) > 0 {
		slog.Info("restored student records", "count", len(students))
	}
	return nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

// getCache falls back to no caching when the configured cache is unreachable
func getCache(config *ServiceConfig) cache.Cache {
	c, err := cache.NewCache(context.Background(), cache.Config{
		Type:     config.Cache.Type,
		Address:  config.Cache.Address,
		Password: config.Cache.Password,
		DB:       config.Cache.DB,
		TTL:      config.Cache.TTL,
	})
	if err != nil {
		slog.Warn("enhancement cache unavailable, continuing without cache", "type", config.Cache.Type, "error", err)
		return cache.NoopCache{}
	}
	return c
}
