package common

import (
	"encoding/hex"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"golang.org/x/crypto/blake2b"

	"csv-exchange/config"
	"csv-exchange/dialect"
)

// DefaultProfile is the dialect profile requests start from. Query
// parameters override its fields.
var DefaultProfile config.Profile

// ProfileFromRequest merges the query parameters of c over DefaultProfile and
// checks that the result resolves to a valid dialect.
func ProfileFromRequest(c *gin.Context) (config.Profile, dialect.Dialect, error) {
	override, err := config.ProfileFromQuery(c.Request.URL.Query())
	if err != nil {
		return config.Profile{}, dialect.Dialect{}, err
	}
	p := DefaultProfile.Merge(override)
	d, err := p.Dialect()
	if err != nil {
		return config.Profile{}, dialect.Dialect{}, err
	}
	return p, d, nil
}

// EncodeProfile serialises p for the Dialect column of a job.
func EncodeProfile(p config.Profile) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeProfile reverses EncodeProfile. The empty string is DefaultProfile.
func DecodeProfile(s string) (config.Profile, error) {
	if s == "" {
		return DefaultProfile, nil
	}
	var p config.Profile
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return config.Profile{}, err
	}
	return p, nil
}

// Checksum returns the hex blake2b-256 digest of r.
func Checksum(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentKey derives an idempotency key from what an import would do: the
// file digest, the resource and the dialect it is read with.
func ContentKey(checksum, resource, format string, p config.Profile) string {
	sum := blake2b.Sum256([]byte(checksum + "\x00" + resource + "\x00" + format + "\x00" + EncodeProfile(p)))
	return hex.EncodeToString(sum[:16])
}
