package services

import (
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"gradereport/pkg/contracts/domain"
)

// Fingerprint returns the hex blake2b-256 digest of raw upload bytes.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DatasetFingerprint digests the parsed long table. Sources without raw
// bytes, such as Google Sheets, are identified this way.
func DatasetFingerprint(ds *domain.Dataset) string {
	h, _ := blake2b.New256(nil)
	for _, o := range ds.Observations {
		h.Write([]byte(o.Student))
		h.Write([]byte{0})
		h.Write([]byte(o.Subject))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(o.Score)))
		h.Write([]byte{'\n'})
	}
	for _, a := range ds.Attendance {
		h.Write([]byte(a.Student))
		for _, c := range a.Counters {
			h.Write([]byte{0})
			h.Write([]byte(strconv.Itoa(int(c.Kind)) + ":" + strconv.Itoa(c.Value)))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ETag is a strong validator for a representation derived from a dataset.
// parts distinguish representations of the same dataset.
func ETag(fingerprint string, parts ...string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(fingerprint))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return `"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}
