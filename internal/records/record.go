// Package records holds the in-memory collection of student records and their
// enhanced fingerprint images.
package records

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MaxImages is the number of fingerprint slots per student
const MaxImages = 3

var (
	ErrTooManyImages   = fmt.Errorf("a maximum of %d images can be uploaded per student", MaxImages)
	ErrIndexOutOfRange = errors.New("record index out of range")
	ErrEmptySlot       = errors.New("no image uploaded in this slot")
)

// StudentRecord is one row of the register. Slots keep upload order, nil means empty.
type StudentRecord struct {
	Key       string
	Name      string
	StudentID string
	Slots     [MaxImages]*EnhancedImage
}

// NewStudentRecord creates a record with a fresh key. Name and id are stored as given.
func NewStudentRecord(name, studentID string, images []*EnhancedImage) (StudentRecord, error) {
	if len(images) > MaxImages {
		return StudentRecord{}, fmt.Errorf("%w: got %d", ErrTooManyImages, len(images))
	}
	record := StudentRecord{
		Key:       uuid.NewString(),
		Name:      name,
		StudentID: studentID,
	}
	copy(record.Slots[:], images)
	return record, nil
}

// SignNo is the 1-based number shown for the record at index
func SignNo(index int) int {
	return index + 1
}

// Image returns the image in slot, or ErrEmptySlot
func (r StudentRecord) Image(slot int) (*EnhancedImage, error) {
	if slot < 0 || slot >= MaxImages {
		return nil, fmt.Errorf("slot %d must be between 0 and %d", slot, MaxImages-1)
	}
	if r.Slots[slot] == nil {
		return nil, ErrEmptySlot
	}
	return r.Slots[slot], nil
}

// ImageCount returns the number of filled slots
func (r StudentRecord) ImageCount() int {
	count := 0
	for _, slot := range r.Slots {
		if slot != nil {
			count++
		}
	}
	return count
}
