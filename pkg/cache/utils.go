package cache

import (
	"fmt"
	"strings"
)

// GenerateKeyWithParams creates a cache key with multiple parameters. Strings are lowercased
// so "BTC" and "btc" share an entry.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, param := range params {
		b.WriteByte(':')
		if s, ok := param.(string); ok {
			b.WriteString(strings.ToLower(s))
			continue
		}
		fmt.Fprintf(&b, "%v", param)
	}
	return b.String()
}
