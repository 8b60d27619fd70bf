package ir

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/nsss/nsss/internal/ir/embedlang"
)

// MaxLiteralBytes is the default cutoff past which a string literal's value
// attr is cut to its first MaxLiteralBytes bytes and a SHA-256 digest of the
// full text is stored beside it, keeping large blobs (SQL dumps, base64
// payloads) out of the in-memory and persisted graph.
const MaxLiteralBytes = 200

// BuildStringLiteralAttrs populates a Literal node's attrs for a string
// value: truncation, a content hash for values too large to keep in full,
// and an embedded-language tag when the detector clears its threshold.
func BuildStringLiteralAttrs(attrs map[string]any, raw string) {
	attrs["literal_kind"] = "str"
	if len(raw) > MaxLiteralBytes {
		attrs["value"] = raw[:MaxLiteralBytes]
		attrs["value_truncated"] = true
		attrs["value_hash"] = hashString(raw)
	} else {
		attrs["value"] = raw
		attrs["value_truncated"] = false
	}

	lang, confidence := embedlang.Detect(raw)
	if lang != "" {
		attrs["embedded_lang"] = string(lang)
		attrs["embedded_lang_confidence"] = confidence
	}
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
