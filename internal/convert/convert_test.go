package convert_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canonical/sqlorm/internal/convert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Testi", convert.Normalize([]byte("Testi")))
	assert.Equal(t, int64(3), convert.Normalize(int64(3)))
	assert.Nil(t, convert.Normalize(nil))
}

func TestInt64(t *testing.T) {
	var tests = []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(7), 7, true},
		{7, 7, true},
		{[]byte("12"), 12, true},
		{"42", 42, true},
		{float64(3), 3, true},
		{float64(3.5), 3, false},
		{uint64(math.MaxInt64), math.MaxInt64, true},
		{uint64(math.MaxInt64) + 1, 0, false},
		{^uint(0), 0, false},
		{uint32(5), 5, true},
		{"x", 0, false},
		{nil, 0, false},
	}
	for _, test := range tests {
		n, ok := convert.Int64(test.in)
		assert.Equal(t, test.ok, ok, "%#v", test.in)
		if test.ok {
			assert.Equal(t, test.want, n, "%#v", test.in)
		}
	}
}

func TestStringAndBool(t *testing.T) {
	s, ok := convert.String([]byte("a"))
	assert.True(t, ok)
	assert.Equal(t, "a", s)

	_, ok = convert.String(nil)
	assert.False(t, ok)

	s, ok = convert.String(int64(5))
	assert.True(t, ok)
	assert.Equal(t, "5", s)

	b, ok := convert.Bool(int64(1))
	assert.True(t, ok)
	assert.True(t, b)

	b, ok = convert.Bool("false")
	assert.True(t, ok)
	assert.False(t, b)

	f, ok := convert.Float64("1.5")
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)
}
