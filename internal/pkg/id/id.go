package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. ULIDs sort by creation time, which keeps
// users, tasks and attachments roughly ordered when scanned.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
