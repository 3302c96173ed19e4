package database

import (
	"context"
	"database/sql"
	"errors"
)

var ErrStudentNotFound = errors.New("student not found")

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// CreateStudent appends the student after all existing ones and stores its images
	// in the same transaction. Position is assigned by the database.
	CreateStudent(ctx context.Context, student *Student) error
	// DeleteStudent removes the student row and its images in one transaction
	DeleteStudent(ctx context.Context, key string) error
	// GetStudents returns all students with their images in display order
	GetStudents(ctx context.Context) ([]*Student, error)
}
