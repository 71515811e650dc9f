package iclerr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	c, err := newCatalogueFromBytes([]byte(`{
		"errors": [
			{"number": -1, "text": "no parser found", "level": "fatal"},
			{"number": 5, "text": "device busy", "level": "warning"}
		]
	}`))
	require.NoError(t, err)
	return c
}

// Invariant 7: error-string round-trip for every catalogued entry.
func TestErrorFrom_RoundTrip(t *testing.T) {
	c := testCatalogue(t)

	cases := []struct {
		code     int
		text     string
		level    string
		severity Severity
	}{
		{-1, "no parser found", "fatal", Critical},
		{5, "device busy", "warning", Info},
	}

	for _, tc := range cases {
		wire := fmt.Sprintf("[E];%d;%s", tc.code, tc.text)
		err, parseErr := c.ErrorFrom(wire)
		require.NoError(t, parseErr)
		assert.Equal(t, tc.code, err.Code)
		assert.Equal(t, tc.severity, err.Severity)
	}
}

func TestErrorFrom_UnknownCodeSynthesizesCritical(t *testing.T) {
	c := testCatalogue(t)

	err, parseErr := c.ErrorFrom("[E];999;some raw text")
	require.NoError(t, parseErr)
	assert.Equal(t, 999, err.Code)
	assert.Equal(t, Critical, err.Severity)
	assert.Contains(t, err.Message, "some raw text")
}

// Invariant 8: malformed error strings.
func TestErrorFrom_Malformed(t *testing.T) {
	c := testCatalogue(t)

	for _, wire := range []string{
		"not-enough-parts",
		"too;many;parts;here",
		"[E];not-a-number;text",
	} {
		_, err := c.ErrorFrom(wire)
		assert.ErrorIs(t, err, ErrMalformedErrorString, "input %q", wire)
	}
}

func TestSeverityFromString_CaseInsensitiveFatal(t *testing.T) {
	assert.Equal(t, Critical, severityFromString("FATAL"))
	assert.Equal(t, Critical, severityFromString("Fatal"))
	assert.Equal(t, Info, severityFromString("warning"))
	assert.Equal(t, Info, severityFromString("whatever"))
}

func TestICLError_Error(t *testing.T) {
	e := &ICLError{Code: -1, Message: "boom", Severity: Critical}
	assert.Contains(t, e.Error(), "-1")
	assert.Contains(t, e.Error(), "boom")
	assert.Contains(t, e.Error(), "CRITICAL")
}
