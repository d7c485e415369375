// Package media indexes the recordings directory and the contacts book in a
// local SQLite database and answers the two lookups a finished call needs.
package media

type MediaFile struct {
	ID              uint   `gorm:"primaryKey"`
	Path            string `gorm:"uniqueIndex;size:1024"`
	SizeBytes       int64
	CreatedUnixNano int64 `gorm:"index"`
	IndexedUnixNano int64
}

type Contact struct {
	ID          uint   `gorm:"primaryKey"`
	DisplayName string `gorm:"size:256"`
	PhoneNumber string `gorm:"uniqueIndex;size:32"` // normalized
	Tail        string `gorm:"index;size:16"`       // last 9 digits
}

// CandidateFile is the recording picked for a finished call.
type CandidateFile struct {
	Handle    string
	SizeBytes int64
}
