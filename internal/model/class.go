package model

import "time"

type Class struct {
	ID            int64  `gorm:"primaryKey"`
	Title         string `gorm:"size:200"`
	Description   string
	StartDatetime time.Time `gorm:"index"`
	InstructorID  *int64    `gorm:"index"`
	CreatedAt     time.Time
}

type Enrollment struct {
	ID        int64 `gorm:"primaryKey"`
	StudentID int64 `gorm:"uniqueIndex:idx_enrollment_class_student"`
	ClassID   int64 `gorm:"uniqueIndex:idx_enrollment_class_student"`
	CreatedAt time.Time
}

// Avatar is an uploaded profile picture.
type Avatar struct {
	UserID      int64  `gorm:"primaryKey;autoIncrement:false"`
	Filename    string `gorm:"size:255"`
	ContentType string `gorm:"size:100"`
	Data        []byte
}
