package store

import (
	"database/sql"
	"fmt"
)

// Schema is the idempotent bootstrap DDL. student_attendance.schedule_id
// deliberately carries no foreign key; the schedule lifecycle code owns
// the cascade.
const Schema = `
CREATE TABLE IF NOT EXISTS schedules (
    id UUID PRIMARY KEY,
    location VARCHAR(255) NOT NULL,
    room_no VARCHAR(50) NOT NULL,
    date DATE NOT NULL,
    from_time TIME NOT NULL,
    to_time TIME NOT NULL,
    student_branch VARCHAR(255),
    year VARCHAR(20) NOT NULL DEFAULT '',
    mark BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS student_details (
    id UUID PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    name VARCHAR(255) NOT NULL,
    branch VARCHAR(50) NOT NULL,
    year VARCHAR(20) NOT NULL
);

CREATE TABLE IF NOT EXISTS student_attendance (
    id UUID PRIMARY KEY,
    schedule_id UUID NOT NULL,
    email VARCHAR(255) NOT NULL,
    date DATE NOT NULL,
    from_time TIME NOT NULL,
    to_time TIME NOT NULL,
    present BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_schedules_location_date ON schedules (location, date);
CREATE INDEX IF NOT EXISTS idx_attendance_schedule ON student_attendance (schedule_id);
CREATE INDEX IF NOT EXISTS idx_attendance_email_date ON student_attendance (email, date);
`

// Migrate applies the bootstrap schema.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
