package models

type StoredFile struct {
	ID           string   `json:"id" db:"id"`
	OwnerID      string   `json:"owner_id" db:"owner_id"`
	Bucket       string   `json:"bucket" db:"bucket"`
	ObjectName   string   `json:"object_name" db:"object_name"`
	OriginalName string   `json:"original_name" db:"original_name"`
	ContentType  string   `json:"content_type" db:"content_type"`
	Size         int64    `json:"size" db:"size"`
	Kind         FileKind `json:"kind" db:"kind"`
	PageCount    int      `json:"page_count,omitempty" db:"page_count"`
	CreatedAt    int64    `json:"created_at" db:"created_at"`
}
