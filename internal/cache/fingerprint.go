package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Fingerprint builds the composite cache key named by spec.md §9:
// "{purpose}:{hash(query)}:{hourBucketIfTimeSensitive}:{param_hash}". Callers
// pass timeSensitive=true for artifacts that must not outlive an hour
// boundary (news hit lists, stock snapshots, final reports) per §4.3's
// critical rule; invariant-stable artifacts (query analysis, plan) pass
// false and rely on TTL alone.
func Fingerprint(purpose, query string, params map[string]string, timeSensitive bool, now time.Time) string {
	var b strings.Builder
	b.WriteString(purpose)
	b.WriteByte(':')
	b.WriteString(hashString(normalizeQuery(query)))
	b.WriteByte(':')
	if timeSensitive {
		b.WriteString(now.UTC().Format("2006010215"))
	} else {
		b.WriteString("stable")
	}
	b.WriteByte(':')
	b.WriteString(hashParams(params))
	return b.String()
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

func hashParams(params map[string]string) string {
	if len(params) == 0 {
		return "noparams"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	return hashString(b.String())
}
