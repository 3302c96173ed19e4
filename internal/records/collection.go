package records

import (
	"fmt"
	"log/slog"
	"sync"
)

// Collection is the ordered list of student records. Each record owns its images,
// so deleting a record removes its images in the same step.
type Collection struct {
	mu      sync.RWMutex
	records []StudentRecord
}

func NewCollection(initial ...StudentRecord) *Collection {
	return &Collection{records: append([]StudentRecord(nil), initial...)}
}

// AddRecord builds a record from images and appends it. Each commit hook runs with the
// collection locked before the append; the first failing hook leaves the collection unchanged.
func (c *Collection) AddRecord(name, studentID string, images []*EnhancedImage, commits ...func(StudentRecord) error) (StudentRecord, error) {
	record, err := NewStudentRecord(name, studentID, images)
	if err != nil {
		return StudentRecord{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, commit := range commits {
		if err := commit(record); err != nil {
			return StudentRecord{}, err
		}
	}
	c.appendLocked(record)
	return record, nil
}

// Append adds an existing record at the end
func (c *Collection) Append(record StudentRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(record)
}

func (c *Collection) appendLocked(record StudentRecord) {
	c.records = append(c.records, record)
	slog.Debug("record added", "key", record.Key, "index", len(c.records)-1, "images", record.ImageCount())
}

// DeleteRecord removes the record at index; later records move up by one
func (c *Collection) DeleteRecord(index int) (StudentRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.records) {
		return StudentRecord{}, fmt.Errorf("%w: %d (have %d records)", ErrIndexOutOfRange, index, len(c.records))
	}
	removed := c.records[index]
	c.records = append(c.records[:index:index], c.records[index+1:]...)
	slog.Debug("record deleted", "key", removed.Key, "index", index)
	return removed, nil
}

// Get returns the record at index
func (c *Collection) Get(index int) (StudentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.records) {
		return StudentRecord{}, fmt.Errorf("%w: %d (have %d records)", ErrIndexOutOfRange, index, len(c.records))
	}
	return c.records[index], nil
}

// Records returns a snapshot in display order
func (c *Collection) Records() []StudentRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]StudentRecord(nil), c.records...)
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
