package aliexpress

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// SignMethod is the only signing scheme the sync gateway accepts for app-key auth.
const SignMethod = "md5"

// Sign computes the gateway signature: non-empty params sorted by key,
// concatenated as key+value, wrapped with the secret on both sides, MD5'd and
// upper-case hex encoded. The "sign" key itself is never part of the input.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if key == "sign" || value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret)
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(params[key])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
