package id

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes). Used for public loan ids.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewUUID identifies extend/return entries and their history records.
func NewUUID() string { return uuid.NewString() }

// NewRunID returns a time-sortable ULID for reminder sweep runs.
func NewRunID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0)).String()
}
