package types

import "time"

// Resume is the metadata of an uploaded resume file.
// The file content lives in object storage under ObjectKey.
type Resume struct {
	// ID is the unique identifier of the upload.
	ID int `json:"id" db:"id"`

	// UserID is the owner of the upload.
	UserID int `json:"user_id" db:"user_id"`

	// Filename is the original client-side file name.
	Filename string `json:"filename" db:"filename"`

	// ObjectKey locates the file in the storage bucket.
	ObjectKey string `json:"-" db:"object_key"`

	// ContentType is the MIME type recorded at upload.
	ContentType string `json:"content_type" db:"content_type"`

	// Size is the file size in bytes.
	Size int64 `json:"size" db:"size"`

	// TargetRole is the job role the resume is aimed at, if given.
	TargetRole string `json:"target_role,omitempty" db:"target_role"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
