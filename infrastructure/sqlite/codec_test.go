package sqlite

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

func TestFromColumn(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		raw  any
		want entities.Value
	}{
		{"null", Column{Name: "a"}, nil, entities.Null()},
		{"integer", Column{Name: "a", DeclType: "INTEGER"}, int64(7), entities.Int(7)},
		{"boolean column", Column{Name: "a", DeclType: "boolean"}, int64(0), entities.Bool(false)},
		{"float", Column{Name: "a"}, 1.25, entities.Float(1.25)},
		{"text", Column{Name: "a"}, "ok", entities.Text("ok")},
		{"invalid utf8", Column{Name: "a"}, "a\xffb", entities.Text("a�b")},
		{"blob", Column{Name: "a"}, []byte("hi"), entities.Text("aGk=")},
		{"time", Column{Name: "a"}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), entities.Text("2024-01-02T03:04:05Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromColumn(tt.col, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Any(), got.Any())
		})
	}
}

func TestFromColumn_NonFinite(t *testing.T) {
	_, err := FromColumn(Column{Name: "f"}, math.Inf(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "f"`)
}

func TestFromColumn_UnsupportedType(t *testing.T) {
	_, err := FromColumn(Column{Name: "x"}, struct{}{})
	require.Error(t, err)
}

func TestToStoreParameter(t *testing.T) {
	assert.Nil(t, ToStoreParameter(entities.Null()))
	assert.Equal(t, true, ToStoreParameter(entities.Bool(true)))
	assert.Equal(t, int64(3), ToStoreParameter(entities.Int(3)))
	assert.Equal(t, 0.5, ToStoreParameter(entities.Float(0.5)))
	assert.Equal(t, "s", ToStoreParameter(entities.Text("s")))
	assert.Equal(t, []byte("hi"), ToStoreParameter(entities.Blob([]byte("hi"))))
}
