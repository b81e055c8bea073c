package utils

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh random item identifier.
func NewID() string {
	return uuid.New().String()
}

// ShortID returns the first n characters of id, or id itself when shorter.
func ShortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// NowUnix is the timestamp source for new items. Tests replace it.
var NowUnix = func() int64 {
	return time.Now().Unix()
}
