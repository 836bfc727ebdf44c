package registry

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func addrFor(n int) string {
	return fmt.Sprintf("127.0.0.1:%d", 10000+n)
}
