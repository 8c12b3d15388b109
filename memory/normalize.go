package memory

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Keys that may wrap the record list in an object response, in priority order.
var recordKeys = []string{"results", "memories", "data"}

// Keys that may hold a record's text, in priority order.
var textKeys = []string{"memory", "text", "content", "data"}

// Normalize extracts memory texts from a provider response.
//
// Accepted shapes:
//   - an array of records
//   - an object wrapping records under "results", "memories" or "data"
//   - any other object, treated as a single record
//   - a bare string, treated as a single record
//
// A record's text is the record itself when it is a scalar, or the first
// non-empty value under "memory", "text", "content" or "data" when it is an
// object. Texts are trimmed; empty texts and records without text are
// dropped. Invalid JSON yields no texts. The result is never nil.
func Normalize(raw []byte) []string {
	texts := []string{}
	if !gjson.ValidBytes(raw) {
		return texts
	}

	for _, rec := range records(gjson.ParseBytes(raw)) {
		if text := recordText(rec); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

func records(root gjson.Result) []gjson.Result {
	switch {
	case root.IsArray():
		return root.Array()
	case root.IsObject():
		for _, key := range recordKeys {
			v := root.Get(key)
			if !v.Exists() {
				continue
			}
			// The first present key decides, even when its list is empty.
			if v.IsArray() {
				return v.Array()
			}
			return []gjson.Result{v}
		}
		return []gjson.Result{root}
	case root.Type == gjson.String:
		return []gjson.Result{root}
	default:
		return nil
	}
}

func recordText(rec gjson.Result) string {
	switch rec.Type {
	case gjson.String:
		return strings.TrimSpace(rec.Str)
	case gjson.Number, gjson.True, gjson.False:
		return rec.Raw
	case gjson.JSON:
		if !rec.IsObject() {
			return ""
		}
		for _, key := range textKeys {
			v := rec.Get(key)
			switch v.Type {
			case gjson.String:
				if text := strings.TrimSpace(v.Str); text != "" {
					return text
				}
			case gjson.Number:
				return v.Raw
			}
		}
	}
	return ""
}
