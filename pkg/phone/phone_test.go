package phone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeNigeria(t *testing.T) {
	cases := map[string]string{
		"08012345678":       "2348012345678",
		"8012345678":        "2348012345678",
		"2348012345678":     "2348012345678",
		"+234 801 234 5678": "2348012345678",
		"0801-234-5678":     "2348012345678",
	}
	for input, want := range cases {
		got, err := Normalize(input, "nga")
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []struct{ number, country string }{
		{"08012345678", "nga"},
		{"+2348098765432", "NGA"},
		{"0241234567", "gha"},
		{"8012345678", "ng"},
	}
	for _, in := range inputs {
		once, err := Normalize(in.number, in.country)
		require.NoError(t, err)
		twice, err := Normalize(once, in.country)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	}
}

func TestNormalizeRejectsInvalidInput(t *testing.T) {
	invalid := []struct{ number, country string }{
		{"08012345678", "usa"},
		{"08012345678", ""},
		{"", "nga"},
		{"0801234567", "nga"},
		{"080123456789", "nga"},
		{"0801234567a", "nga"},
		{"00012345678", "nga"},
		{"+233241234567", "nga"},
	}
	for _, in := range invalid {
		_, err := Normalize(in.number, in.country)
		require.ErrorIs(t, err, ErrInvalidPhone, "%s/%s", in.number, in.country)
	}
}

func TestSupported(t *testing.T) {
	require.True(t, Supported("NGA"))
	require.True(t, Supported("ng"))
	require.False(t, Supported("fra"))
}

func TestNormalizeGhanaMobile(t *testing.T) {
	got, err := Normalize("024 123 4567", "GHA")
	require.NoError(t, err)
	require.Equal(t, "233241234567", got)

	got, err = Normalize("+233241234567", "gh")
	require.NoError(t, err)
	require.Equal(t, "233241234567", got)
}
