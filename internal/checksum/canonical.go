// Package checksum computes the content digests used to compare entity
// versions between the client and the server.
//
// A digest is the hex SHA-256 of a domain string, a 0x00 separator and the
// canonical JSON encoding of the entity's significant fields. Canonical JSON
// sorts object keys, drops nil values, never escapes HTML characters,
// NFC-normalises strings and prints numbers in their shortest round-trip
// form, so equal field values always hash the same regardless of map order
// or edit history.
package checksum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Canonical encodes v as canonical JSON. Supported leaf types are string,
// bool, integers, float64/float32 and json.Number; nested maps and slices are
// walked recursively. Other values are encoded through fmt as strings.
func Canonical(v any) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		writeString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case float32:
		writeFloat(buf, float64(val))
	case float64:
		writeFloat(buf, val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			writeFloat(buf, f)
		} else {
			writeString(buf, val.String())
		}
	case map[string]any:
		writeObject(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, item)
		}
		buf.WriteByte(']')
	default:
		writeString(buf, fmt.Sprint(val))
	}
}

func writeObject(buf *bytes.Buffer, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k, v := range obj {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		writeValue(buf, obj[k])
	}
	buf.WriteByte('}')
}

func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(norm.NFC.String(s))
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
}

func writeFloat(buf *bytes.Buffer, f float64) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		writeString(buf, strconv.FormatFloat(f, 'g', -1, 64))
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		buf.WriteString(strconv.FormatInt(int64(f), 10))
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}
