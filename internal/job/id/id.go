// Package id generates job identifiers.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var fallback atomic.Uint64

// Generate returns a job ID of the form <operation>-<unix millis>-<8 hex>,
// e.g. "merge-audio-1701432000123-a1b2c3d4". Characters outside [a-z0-9-]
// in operation are replaced so the ID stays safe as a URL segment and an
// S3 key prefix. An empty operation yields the "job" prefix.
func Generate(operation string) string {
	prefix := sanitize(operation)
	ts := time.Now().UnixMilli()

	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return fmt.Sprintf("%s-%d-%08x", prefix, ts, fallback.Add(1))
	}
	return fmt.Sprintf("%s-%d-%s", prefix, ts, hex.EncodeToString(random))
}

func sanitize(operation string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, operation)
	s = strings.Trim(s, "-")
	if s == "" {
		return "job"
	}
	return s
}
