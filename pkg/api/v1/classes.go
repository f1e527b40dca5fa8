package v1

import (
	"encoding/json"
	"time"
)

type ClassItem struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	StartDatetime      time.Time `json:"start_datetime"`
	Instructor         *int64    `json:"instructor,omitempty"`
	InstructorUsername *string   `json:"instructor_username,omitempty"`
	ParticipantsCount  int       `json:"participants_count"`
	Enrolled           bool      `json:"enrolled"`
}

// ClassInput is the create/update body. Instructor must name a member of the
// instructor group; an instructor who leaves it empty teaches the class.
type ClassInput struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartDatetime time.Time `json:"start_datetime"`
	Instructor    *int64    `json:"instructor,omitempty"`
}

type Enrollment struct {
	ID                 int64      `json:"id"`
	Student            int64      `json:"student"`
	ClassRef           int64      `json:"class_ref"`
	CreatedAt          time.Time  `json:"created_at"`
	ClassID            *int64     `json:"class_id,omitempty"`
	ClassTitle         *string    `json:"class_title,omitempty"`
	ClassStartDatetime *time.Time `json:"class_start_datetime,omitempty"`
	StudentUsername    *string    `json:"student_username,omitempty"`
}

type EnrollmentInput struct {
	ClassRef int64  `json:"class_ref"`
	Student  *int64 `json:"student,omitempty"`
}

type UserLite struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type Paginated[T any] struct {
	Results  []T     `json:"results"`
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// DecodeList accepts either a bare JSON array or a paginated envelope and
// returns the items. null or an envelope without results yields an empty slice.
func DecodeList[T any](data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err == nil {
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	var page Paginated[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}
