package id

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GetUUID generates a new UUID, used for configuration and registry ids.
func GetUUID() string {
	return uuid.NewString()
}

// GetUUIDWithoutDashes generates a new UUID without dashes.
func GetUUIDWithoutDashes() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GetULID generates a lexicographically sortable ULID, used for
// execution ids so listing by id follows creation order.
func GetULID() string {
	return ulid.Make().String()
}

// GetShortID generates a short, URL-safe id.
func GetShortID() string {
	sid, err := shortid.Generate()
	if err != nil {
		return GetUUIDWithoutDashes()[:9]
	}
	return sid
}
