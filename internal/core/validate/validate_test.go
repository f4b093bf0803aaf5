package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhone(t *testing.T) {
	valid := []string{"0712345678", "0112345678", "0799999999"}
	for _, s := range valid {
		assert.True(t, Phone(s), "expected %q to be valid", s)
	}

	invalid := []string{
		"",
		"12345",
		"0812345678",  // wrong prefix
		"07123456789", // too long
		"071234567",   // too short
		"07123a5678",  // non-digit
		"+254712345678",
	}
	for _, s := range invalid {
		assert.False(t, Phone(s), "expected %q to be invalid", s)
	}
}

func TestPIN(t *testing.T) {
	assert.True(t, PIN("4821"))
	assert.True(t, PIN("0000"))

	invalid := []string{"", "123", "12345", "12ab", "4 21"}
	for _, s := range invalid {
		assert.False(t, PIN(s), "expected %q to be invalid", s)
	}
}

func TestAmount(t *testing.T) {
	v, ok := Amount("1500.50")
	assert.True(t, ok)
	assert.Equal(t, 1500.50, v)

	for _, s := range []string{"", "abc", "-5", "0"} {
		_, ok := Amount(s)
		assert.False(t, ok, "expected %q to be invalid", s)
	}
}

func TestAmountInRange(t *testing.T) {
	v, ok := AmountInRange("1000", 1000, 150000)
	assert.True(t, ok)
	assert.Equal(t, 1000.0, v)

	_, ok = AmountInRange("999.99", 1000, 150000)
	assert.False(t, ok)

	_, ok = AmountInRange("150001", 1000, 150000)
	assert.False(t, ok)

	v, ok = AmountInRange("150000", 1000, 150000)
	assert.True(t, ok)
	assert.Equal(t, 150000.0, v)
}
