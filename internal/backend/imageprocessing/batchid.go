package imageprocessing

import "github.com/google/uuid"

// NewBatchID returns a fresh random (v4) batch identifier
func NewBatchID() string {
	return uuid.NewString()
}

// IsBatchID reports whether id has the shape of an allocated batch identifier
func IsBatchID(id string) bool {
	return uuid.Validate(id) == nil
}
