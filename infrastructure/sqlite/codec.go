package sqlite

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/errors"
)

// ToStoreParameter converts a Value into a driver parameter. Blob values are
// decoded back to bytes so they round-trip as BLOB columns.
//
// It panics on a kind outside the closed Value set. Payload decoding rejects
// such values before they reach the store, so reaching the panic is a bug.
func ToStoreParameter(v entities.Value) any {
	switch v.Kind() {
	case entities.ValueNull:
		return nil
	case entities.ValueBool:
		return v.AsBool()
	case entities.ValueInt:
		return v.AsInt()
	case entities.ValueFloat:
		return v.AsFloat()
	case entities.ValueText:
		return v.AsText()
	case entities.ValueBlob:
		b, err := base64.StdEncoding.DecodeString(v.AsText())
		if err != nil {
			panic(fmt.Sprintf("sqlite: blob value is not base64: %v", err))
		}
		return b
	default:
		panic(fmt.Sprintf("sqlite: unsupported parameter kind %s", v.Kind()))
	}
}

func toStoreParameters(values []entities.Value) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = ToStoreParameter(v)
	}
	return args
}

// Column describes a result column.
type Column struct {
	Name     string
	DeclType string
}

func (c Column) isBoolean() bool {
	switch strings.ToUpper(c.DeclType) {
	case "BOOLEAN", "BOOL":
		return true
	default:
		return false
	}
}

// FromColumn converts a scanned column into a Value. Integers in a column
// declared BOOLEAN become booleans. Text is decoded as UTF-8 with invalid
// bytes replaced; binary columns become base64 text.
func FromColumn(col Column, raw any) (entities.Value, error) {
	switch x := raw.(type) {
	case nil:
		return entities.Null(), nil
	case int64:
		if col.isBoolean() {
			return entities.Bool(x != 0), nil
		}
		return entities.Int(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return entities.Value{}, &errors.ConversionError{Column: col.Name, Reason: fmt.Sprintf("float %v is not representable", x)}
		}
		return entities.Float(x), nil
	case bool:
		return entities.Bool(x), nil
	case string:
		return entities.Text(strings.ToValidUTF8(x, "\uFFFD")), nil
	case []byte:
		return entities.Blob(x), nil
	case time.Time:
		return entities.Text(x.Format(time.RFC3339Nano)), nil
	default:
		return entities.Value{}, &errors.ConversionError{Column: col.Name, Reason: fmt.Sprintf("unsupported column type %T", raw)}
	}
}
