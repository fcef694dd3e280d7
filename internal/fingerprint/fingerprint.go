// Canonical configuration hashing for exact-duplicate detection
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"uav-testgen/internal/obstacle"
)

// Canonical serialises cfg as compact JSON with keys in sorted order and numbers in their
// shortest round-trip form, so value-equal configurations serialise identically whatever the
// key order or number formatting of the text they were parsed from.
func Canonical(cfg obstacle.Configuration) string {
	var b strings.Builder
	b.WriteString(`{"obstacles":[`)
	for i, o := range cfg.Obstacles {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"position":{`)
		writePairs(&b, "r", o.Position.R, "x", o.Position.X, "y", o.Position.Y, "z", o.Position.Z)
		b.WriteString(`},"size":{`)
		writePairs(&b, "h", o.Size.H, "l", o.Size.L, "w", o.Size.W)
		b.WriteString(`}}`)
	}
	b.WriteString(`]}`)
	return b.String()
}

func writePairs(b *strings.Builder, kv ...any) {
	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(kv[i].(string)))
		b.WriteByte(':')
		v := kv[i+1].(float64)
		if v == 0 {
			v = 0 // folds -0
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
}

// Of returns the hex SHA-256 of the canonical form of cfg.
func Of(cfg obstacle.Configuration) string {
	sum := sha256.Sum256([]byte(Canonical(cfg)))
	return hex.EncodeToString(sum[:])
}
