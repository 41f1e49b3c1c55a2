package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// keyPrefix namespaces evaluation results inside a shared backend.
const keyPrefix = "eval:"

// Key builds an evaluation key from its inputs. Parts are JSON-encoded and
// hashed, so the key length does not depend on script or scene size.
func Key(parts ...any) string {
	data, _ := json.Marshal(parts)
	return keyPrefix + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
