package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"
)

func classPath(id int64) string {
	return fmt.Sprintf("%s%d/", constraints.PathClasses, id)
}

func (c *Client) Classes(ctx context.Context) ([]v1.ClassItem, error) {
	return getList[v1.ClassItem](ctx, c, constraints.PathClasses, nil)
}

func (c *Client) Class(ctx context.Context, id int64) (*v1.ClassItem, error) {
	var item v1.ClassItem
	if err := c.call(ctx, http.MethodGet, classPath(id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateClass(ctx context.Context, in v1.ClassInput) (*v1.ClassItem, error) {
	var item v1.ClassItem
	if err := c.call(ctx, http.MethodPost, constraints.PathClasses, nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateClass(ctx context.Context, id int64, in v1.ClassInput) (*v1.ClassItem, error) {
	var item v1.ClassItem
	if err := c.call(ctx, http.MethodPut, classPath(id), nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteClass(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, classPath(id), nil, nil, nil)
}

func (c *Client) Enrollments(ctx context.Context) ([]v1.Enrollment, error) {
	return getList[v1.Enrollment](ctx, c, constraints.PathEnrollments, nil)
}

func (c *Client) EnrollmentsByClass(ctx context.Context, classID int64) ([]v1.Enrollment, error) {
	q := url.Values{"class_ref": {strconv.FormatInt(classID, 10)}}
	return getList[v1.Enrollment](ctx, c, constraints.PathEnrollments, q)
}

// Enroll enrolls the caller, or studentID when it is non-zero (admins and
// instructors only).
func (c *Client) Enroll(ctx context.Context, classID, studentID int64) error {
	in := v1.EnrollmentInput{ClassRef: classID}
	if studentID != 0 {
		in.Student = &studentID
	}
	return c.call(ctx, http.MethodPost, constraints.PathEnrollments, nil, in, nil)
}

func (c *Client) DeleteEnrollment(ctx context.Context, enrollmentID int64) error {
	p := fmt.Sprintf("%s%d/", constraints.PathEnrollments, enrollmentID)
	return c.call(ctx, http.MethodDelete, p, nil, nil, nil)
}

// Unenroll removes the caller from a class.
func (c *Client) Unenroll(ctx context.Context, classID int64) error {
	p := fmt.Sprintf("%sby-class/%d/", constraints.PathEnrollments, classID)
	return c.call(ctx, http.MethodDelete, p, nil, nil, nil)
}

func (c *Client) UnenrollStudent(ctx context.Context, classID, studentID int64) error {
	p := fmt.Sprintf("%sby-class/%d/student/%d/", constraints.PathEnrollments, classID, studentID)
	return c.call(ctx, http.MethodDelete, p, nil, nil, nil)
}

func searchQuery(q string) url.Values {
	if q == "" {
		return nil
	}
	return url.Values{"q": {q}}
}

func (c *Client) SearchStudents(ctx context.Context, q string) ([]v1.UserLite, error) {
	return getList[v1.UserLite](ctx, c, constraints.PathUsers, searchQuery(q))
}

func (c *Client) SearchInstructors(ctx context.Context, q string) ([]v1.UserLite, error) {
	return getList[v1.UserLite](ctx, c, constraints.PathInstructors, searchQuery(q))
}
