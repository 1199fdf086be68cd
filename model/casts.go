package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quarrydb/quarry"
)

// Cast names accepted in Definition.Casts.
const (
	CastJSON    = "json"
	CastBool    = "bool"
	CastInt     = "int"
	CastFloat   = "float"
	CastString  = "string"
	CastTime    = "time"
	CastMsgpack = "msgpack"
)

// timeLayouts are tried in order when decoding string timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// decodeCast converts a stored value into its semantic form. Decoding
// and encoding round-trip: encodeCast(decodeCast(v)) stores an
// equivalent value.
func decodeCast(cast string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch cast {
	case CastJSON:
		var raw []byte
		switch s := v.(type) {
		case string:
			raw = []byte(s)
		case []byte:
			raw = s
		default:
			// Already decoded (document backends store structure natively).
			return v, nil
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, quarry.NewConfigError("json cast: %v", err)
		}
		return out, nil
	case CastBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case int:
			return b != 0, nil
		case float64:
			return b != 0, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, quarry.NewConfigError("bool cast: %q", b)
			}
			return parsed, nil
		}
		return nil, quarry.NewConfigError("bool cast: unsupported type %T", v)
	case CastInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case float64:
			return int64(n), nil
		case string:
			parsed, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, quarry.NewConfigError("int cast: %q", n)
			}
			return parsed, nil
		case []byte:
			parsed, err := strconv.ParseInt(string(n), 10, 64)
			if err != nil {
				return nil, quarry.NewConfigError("int cast: %q", n)
			}
			return parsed, nil
		}
		return nil, quarry.NewConfigError("int cast: unsupported type %T", v)
	case CastFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		case string:
			parsed, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, quarry.NewConfigError("float cast: %q", n)
			}
			return parsed, nil
		}
		return nil, quarry.NewConfigError("float cast: unsupported type %T", v)
	case CastString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
		return fmt.Sprint(v), nil
	case CastTime:
		switch ts := v.(type) {
		case time.Time:
			return ts, nil
		case string:
			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, ts); err == nil {
					return parsed, nil
				}
			}
			return nil, quarry.NewConfigError("time cast: unparseable %q", ts)
		case []byte:
			return decodeCast(CastTime, string(ts))
		}
		return nil, quarry.NewConfigError("time cast: unsupported type %T", v)
	case CastMsgpack:
		var raw []byte
		switch b := v.(type) {
		case []byte:
			raw = b
		case string:
			raw = []byte(b)
		default:
			return v, nil
		}
		var out any
		if err := msgpack.Unmarshal(raw, &out); err != nil {
			return nil, quarry.NewConfigError("msgpack cast: %v", err)
		}
		return out, nil
	}
	return nil, quarry.NewConfigError("unknown cast %q", cast)
}

// encodeCast converts a semantic value into its storage form.
func encodeCast(cast string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch cast {
	case CastJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, quarry.NewConfigError("json cast: %v", err)
		}
		return string(raw), nil
	case CastBool, CastInt, CastFloat, CastString, CastTime:
		// Natively representable in every backend; decode validates on
		// the way back out.
		return v, nil
	case CastMsgpack:
		raw, err := msgpack.Marshal(v)
		if err != nil {
			return nil, quarry.NewConfigError("msgpack cast: %v", err)
		}
		return raw, nil
	}
	return nil, quarry.NewConfigError("unknown cast %q", cast)
}
