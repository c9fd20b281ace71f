package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/conneroisu/mdpreview/internal/metadata"
)

// metaKey fingerprints a resolved metadata context.
func metaKey(meta metadata.Context) string {
	data, err := json.Marshal(meta)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", map[string]interface{}(meta)))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
