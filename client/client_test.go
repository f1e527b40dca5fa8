package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListNormalisation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+constraints.PathEnrollments, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("class_ref") == "4" {
			writeJSON(w, http.StatusOK, []v1.Enrollment{{ID: 1, ClassRef: 4}, {ID: 2, ClassRef: 4}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": []v1.Enrollment{{ID: 9}}, "count": 1, "next": nil})
	})
	mux.HandleFunc("GET "+constraints.PathUsers, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ali", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, map[string]any{"count": 0})
	})
	mux.HandleFunc("GET "+constraints.PathInstructors, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("q"))
		w.WriteHeader(http.StatusOK)
	})
	c := NewClient(newServer(t, mux), NewMemoryTokenStore(), Options{})
	ctx := context.Background()

	byClass, err := c.EnrollmentsByClass(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, byClass, 2)

	all, err := c.Enrollments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.EqualValues(t, 9, all[0].ID)

	users, err := c.SearchStudents(ctx, "ali")
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	instructors, err := c.SearchInstructors(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, instructors)
}

func TestClient_APIErrorCarriesEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/classes/12/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
	})
	mux.HandleFunc("GET /api/classes/13/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := NewClient(newServer(t, mux), NewMemoryTokenStore(), Options{})

	err := c.DeleteClass(context.Background(), 12)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, http.MethodDelete, apiErr.Method)
	assert.Equal(t, "/api/classes/12/", apiErr.Endpoint)
	assert.Equal(t, "You do not have permission to perform this action.", apiErr.Message)

	_, err = c.Class(context.Background(), 13)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Contains(t, err.Error(), "Not Found")

	assert.Zero(t, StatusCode(errors.New("plain")))
}

func TestClient_UploadAvatar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+constraints.PathAvatar, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "me.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		writeJSON(w, http.StatusOK, v1.AvatarResponse{AvatarURL: "/media/avatars/me.png"})
	})
	c := NewClient(newServer(t, mux), NewMemoryTokenStore(), Options{})

	url, err := c.UploadAvatar(context.Background(), "me.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/me.png", url)
}

func TestClient_ClassRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+constraints.PathClasses, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, constraints.ContentTypeJSON, r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusCreated, v1.ClassItem{ID: 5, Title: "Pilates"})
	})
	mux.HandleFunc("PUT /api/classes/5/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, v1.ClassItem{ID: 5, Title: "Pilates II"})
	})
	c := NewClient(newServer(t, mux), NewMemoryTokenStore(), Options{})

	created, err := c.CreateClass(context.Background(), v1.ClassInput{Title: "Pilates"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, created.ID)

	updated, err := c.UpdateClass(context.Background(), 5, v1.ClassInput{Title: "Pilates II"})
	require.NoError(t, err)
	assert.Equal(t, "Pilates II", updated.Title)
}
