package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" opens a separate database
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS students (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		student_id TEXT NOT NULL,
		position INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS student_images (
		student_key TEXT NOT NULL,
		slot INTEGER NOT NULL,
		image BLOB NOT NULL,
		PRIMARY KEY (student_key, slot)
	)`)
	if err != nil {
		return nil, err
	}

	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateStudent(ctx context.Context, student *Student) (err error) {
	if student == nil || student.Key == "" {
		return fmt.Errorf("student key cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("failed to roll back student insert", "key", student.Key, "error", rbErr)
			}
		}
	}()

	var position int
	if err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM students").Scan(&position); err != nil {
		return fmt.Errorf("failed to determine position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO students (key, name, student_id, position) VALUES (?, ?, ?, ?)",
		student.Key, student.Name, student.StudentID, position)
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}

	for slot, image := range student.Images {
		if image == nil {
			continue
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO student_images (student_key, slot, image) VALUES (?, ?, ?)",
			student.Key, slot, image)
		if err != nil {
			return fmt.Errorf("failed to insert image for slot %d: %w", slot, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit student: %w", err)
	}
	student.Position = position
	return nil
}

func (s *SQLiteDatabase) DeleteStudent(ctx context.Context, key string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("failed to roll back student delete", "key", key, "error", rbErr)
			}
		}
	}()

	result, err := tx.ExecContext(ctx, "DELETE FROM students WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = fmt.Errorf("%w: %s", ErrStudentNotFound, key)
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM student_images WHERE student_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete student images: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetStudents(ctx context.Context) ([]*Student, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, name, student_id, position FROM students ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var students []*Student
	byKey := make(map[string]*Student)
	for rows.Next() {
		var student Student
		if err := rows.Scan(&student.Key, &student.Name, &student.StudentID, &student.Position); err != nil {
			return nil, err
		}
		students = append(students, &student)
		byKey[student.Key] = &student
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// release the single connection before the next query
	_ = rows.Close()

	imageRows, err := s.db.QueryContext(ctx, "SELECT student_key, slot, image FROM student_images")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = imageRows.Close()
	}()

	for imageRows.Next() {
		var key string
		var slot int
		var image []byte
		if err := imageRows.Scan(&key, &slot, &image); err != nil {
			return nil, err
		}
		student, ok := byKey[key]
		if !ok || slot < 0 || slot >= len(student.Images) {
			slog.Warn("ignoring orphaned student image", "student_key", key, "slot", slot)
			continue
		}
		student.Images[slot] = image
	}
	return students, imageRows.Err()
}
