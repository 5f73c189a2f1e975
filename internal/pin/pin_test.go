package pin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValid(t *testing.T) {
	tests := []struct {
		pin  string
		want bool
	}{
		{"1234", true},
		{"0000", true},
		{"123", false},
		{"12345", false},
		{"12a4", false},
		{"", false},
		{"１２３４", false}, // full-width digits
		{" 123", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.pin), "Valid(%q)", tt.pin)
	}
}

func TestBcryptRoundTrip(t *testing.T) {
	v := Bcrypt{Cost: bcrypt.MinCost}

	h, err := v.Hash("1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", h)

	ok, err := v.Verify(h, "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(h, "4321")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptSalted(t *testing.T) {
	v := Bcrypt{Cost: bcrypt.MinCost}
	a, err := v.Hash("1234")
	require.NoError(t, err)
	b, err := v.Hash("1234")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptMalformedHash(t *testing.T) {
	_, err := Bcrypt{Cost: bcrypt.MinCost}.Verify("1234", "1234")
	assert.Error(t, err)
}

func TestPlain(t *testing.T) {
	h, err := Plain{}.Hash("1234")
	require.NoError(t, err)
	assert.Equal(t, "1234", h)

	ok, _ := Plain{}.Verify(h, "1234")
	assert.True(t, ok)
	ok, _ = Plain{}.Verify(h, "0000")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	v, err := New("", 0)
	require.NoError(t, err)
	assert.Equal(t, Bcrypt{Cost: bcrypt.DefaultCost}, v)

	v, err = New(SchemePlain, 0)
	require.NoError(t, err)
	assert.Equal(t, Plain{}, v)

	_, err = New(SchemeBcrypt, 99)
	assert.Error(t, err)

	_, err = New("md5", 0)
	assert.Error(t, err)
}
