package database

// Student is the persisted form of a student record
type Student struct {
	Key       string `db:"key"`
	Name      string `db:"name"`
	StudentID string `db:"student_id"`
	Position  int    `db:"position"` // display order, ascending

	// PNG data per slot, nil when the slot is empty
	Images [3][]byte
}
