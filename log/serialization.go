package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// LogMessageWire is the JSON payload a guest passes to log_message.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp,omitempty"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
}

// LogAttrWire is one attribute as typed text.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"` // string, int64, uint64, bool, float64, time, duration, error, json, group, any
	Value string `json:"value"`
}

// toLogAttrWire flattens attr to its wire form. Numbers use the shortest
// exact text so fromLogAttrWire restores them unchanged.
func toLogAttrWire(attr slog.Attr) LogAttrWire {
	v := attr.Value.Resolve()
	wire := LogAttrWire{Key: attr.Key, Type: "any"}

	switch v.Kind() {
	case slog.KindString:
		wire.Type, wire.Value = "string", v.String()
	case slog.KindInt64:
		wire.Type, wire.Value = "int64", strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		wire.Type, wire.Value = "uint64", strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		wire.Type, wire.Value = "bool", strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		wire.Type, wire.Value = "float64", strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		wire.Type, wire.Value = "time", v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type, wire.Value = "duration", v.Duration().String()
	case slog.KindGroup:
		// Not nested on the wire.
		wire.Type, wire.Value = "group", fmt.Sprint(v.Group())
	default:
		switch a := v.Any().(type) {
		case nil:
			wire.Value = "<nil>"
		case error:
			wire.Type, wire.Value = "error", a.Error()
		default:
			if data, err := json.Marshal(a); err == nil {
				wire.Type, wire.Value = "json", string(data)
			} else {
				wire.Value = fmt.Sprint(a)
			}
		}
	}
	return wire
}

// NewMessageWire builds the wire form of a log record.
func NewMessageWire(level slog.Level, msg string, attrs ...slog.Attr) LogMessageWire {
	wire := LogMessageWire{Level: level.String(), Message: msg, Timestamp: time.Now()}
	for _, a := range attrs {
		wire.Attrs = append(wire.Attrs, toLogAttrWire(a))
	}
	return wire
}

// fromLogAttrWire restores a typed attribute. Values that fail to parse are
// kept as strings.
func fromLogAttrWire(wire LogAttrWire) slog.Attr {
	switch wire.Type {
	case "int64":
		if v, err := strconv.ParseInt(wire.Value, 10, 64); err == nil {
			return slog.Int64(wire.Key, v)
		}
	case "uint64":
		if v, err := strconv.ParseUint(wire.Value, 10, 64); err == nil {
			return slog.Uint64(wire.Key, v)
		}
	case "bool":
		if v, err := strconv.ParseBool(wire.Value); err == nil {
			return slog.Bool(wire.Key, v)
		}
	case "float64":
		if v, err := strconv.ParseFloat(wire.Value, 64); err == nil {
			return slog.Float64(wire.Key, v)
		}
	case "time":
		if v, err := time.Parse(time.RFC3339Nano, wire.Value); err == nil {
			return slog.Time(wire.Key, v)
		}
	case "duration":
		if v, err := time.ParseDuration(wire.Value); err == nil {
			return slog.Duration(wire.Key, v)
		}
	case "json":
		if json.Valid([]byte(wire.Value)) {
			return slog.Any(wire.Key, json.RawMessage(wire.Value))
		}
	}
	return slog.String(wire.Key, wire.Value)
}
