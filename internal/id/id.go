package id

import (
	"github.com/gofrs/uuid/v5"
)

// New returns a time-ordered UUIDv7 so export ids sort by creation.
func New() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return u.String()
}
