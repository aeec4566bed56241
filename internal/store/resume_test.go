package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smartassist/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resumeRowColumns = []string{"id", "user_id", "filename", "object_key", "content_type", "size", "target_role", "created_at"}

func TestResumeRepository_CreateAndGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewResumeRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO resumes`).
		WithArgs(3, "cv.pdf", "resumes/3/abc.pdf", "application/pdf", int64(1024), "Engineer", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectQuery(`SELECT .* FROM resumes WHERE id = \$1`).
		WithArgs(12).
		WillReturnRows(sqlmock.NewRows(resumeRowColumns).
			AddRow(12, 3, "cv.pdf", "resumes/3/abc.pdf", "application/pdf", 1024, "Engineer", now))

	created, err := repo.Create(context.Background(), types.Resume{
		UserID:      3,
		Filename:    "cv.pdf",
		ObjectKey:   "resumes/3/abc.pdf",
		ContentType: "application/pdf",
		Size:        1024,
		TargetRole:  "Engineer",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, created.ID)

	fetched, err := repo.GetByID(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, "resumes/3/abc.pdf", fetched.ObjectKey)
	assert.Equal(t, int64(1024), fetched.Size)
}

func TestResumeRepository_ListAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewResumeRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM resumes\s+WHERE user_id = \$1`).
		WithArgs(3, 10, 0).
		WillReturnRows(sqlmock.NewRows(resumeRowColumns).
			AddRow(12, 3, "cv.pdf", "k", "application/pdf", 1, "", now))
	mock.ExpectExec(`DELETE FROM resumes WHERE id = \$1`).
		WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resumes, err := repo.ListByUser(context.Background(), 3, 10, 0)
	require.NoError(t, err)
	assert.Len(t, resumes, 1)

	require.NoError(t, repo.Delete(context.Background(), 12))
}

func TestResumeRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewResumeRepository(db)

	mock.ExpectQuery(`SELECT .* FROM resumes WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(resumeRowColumns))

	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
