package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPIntegerRoundTrip(t *testing.T) {
	tests := []struct {
		ip string
		v6 bool
	}{
		{"0.0.0.0", false},
		{"192.0.2.1", false},
		{"255.255.255.255", false},
		{"::1", true},
		{"2001:db8::1", true},
		{"2606:4700:4700::1111", true},
	}

	for _, tc := range tests {
		t.Run(tc.ip, func(t *testing.T) {
			n, err := IPToInteger(tc.ip)
			require.NoError(t, err)

			back, err := IntegerToIP(n, tc.v6)
			require.NoError(t, err)
			assert.Equal(t, tc.ip, back)
		})
	}
}

func TestIPToIntegerInvalid(t *testing.T) {
	_, err := IPToInteger("not-an-ip")
	assert.Error(t, err)
}

func TestIntegerToIPTooLarge(t *testing.T) {
	n, err := IPToInteger("2001:db8::1")
	require.NoError(t, err)

	_, err = IntegerToIP(n, false)
	assert.Error(t, err)
}
