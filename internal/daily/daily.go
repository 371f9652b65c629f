// Package daily picks the puzzle of the day and records daily results.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// dateLayout is the YYYY-MM-DD key every daily table is indexed by.
const dateLayout = "2006-01-02"

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ParseDateKey validates a YYYY-MM-DD key and returns midnight UTC of it.
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// PuzzleIndex picks which of a difficulty's n puzzles is the puzzle of the
// day. The UTC date key is keyed with salt through HMAC-SHA256 and the first
// eight bytes of the digest, read big-endian, are reduced mod n. The salt
// keeps the rotation from being predicted ahead of time; changing it
// reshuffles every future day. n <= 0 yields 0.
func PuzzleIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}
