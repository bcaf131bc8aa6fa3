package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkclean/internal/domain"
)

func TestParseRecordPreservesFieldOrder(t *testing.T) {
	line := []byte(`{"zebra":"z","alpha":1,"url":"https://example.com","nested":{"b":2,"a":1}}`)

	rec, err := domain.ParseRecord(line)
	require.NoError(t, err)

	fields := rec.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, "zebra", fields[0].Name)
	assert.Equal(t, "alpha", fields[1].Name)
	assert.Equal(t, "url", fields[2].Name)
	assert.Equal(t, "nested", fields[3].Name)
}

func TestRecordRoundTripsUntouchedValues(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{
			name: "mixed scalar types",
			line: `{"a":1,"b":"two","c":true,"d":null}`,
		},
		{
			name: "large number keeps precision",
			line: `{"id":9007199254740993}`,
		},
		{
			name: "nested structures",
			line: `{"meta":{"tags":["x","y"],"depth":3},"list":[1,2,3]}`,
		},
		{
			name: "unicode strings",
			line: `{"title":"café"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := domain.ParseRecord([]byte(tt.line))
			require.NoError(t, err)

			out, err := json.Marshal(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.line, string(out))
		})
	}
}

func TestParseRecordRejectsNonObjects(t *testing.T) {
	for _, line := range []string{`[1,2,3]`, `"string"`, `42`, `null`} {
		_, err := domain.ParseRecord([]byte(line))
		assert.ErrorIs(t, err, domain.ErrNotObject, "input %s", line)
	}
}

func TestParseRecordRejectsMalformedInput(t *testing.T) {
	_, err := domain.ParseRecord([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = domain.ParseRecord([]byte(`not json`))
	assert.Error(t, err)
}

func TestRecordSetAndDelete(t *testing.T) {
	rec, err := domain.ParseRecord([]byte(`{"a":1,"b":2,"c":3}`))
	require.NoError(t, err)

	// Replacing keeps the field's position.
	require.NoError(t, rec.SetString("b", "replaced"))
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":"replaced","c":3}`, string(out))

	// Deleting closes the gap and keeps remaining order.
	rec.Delete("b")
	assert.False(t, rec.Has("b"))
	out, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"c":3}`, string(out))

	// Lookups still work after the reindex.
	raw, ok := rec.Get("c")
	require.True(t, ok)
	assert.Equal(t, "3", string(raw))
}

func TestRecordDeleteMissingFieldIsNoOp(t *testing.T) {
	rec, err := domain.ParseRecord([]byte(`{"a":1}`))
	require.NoError(t, err)

	rec.Delete("missing")
	assert.Equal(t, 1, rec.Len())
}

func TestRecordSetStringList(t *testing.T) {
	rec := domain.NewRecord()
	require.NoError(t, rec.SetStringList("links", []string{"https://a.example", "https://b.example"}))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"links":["https://a.example","https://b.example"]}`, string(out))
}
