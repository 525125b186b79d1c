package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"  Agility   Cup  ", "Agility Cup"},
		{"- • Club Canino: ", "Club Canino"},
		{"\tMadrid \t Norte\r\n", "Madrid Norte"},
		{"ﬁnal", "final"},
		{"Ｔｏｔａｌ", "Total"},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, Clean(c.input), "input %q", c.input)
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"  - Prueba   Nacional -  ",
		"• Ring 2 :",
		"ya   limpio",
	}
	for _, s := range inputs {
		once := Clean(s)
		require.Equal(t, once, Clean(once), "input %q", s)
	}
}

func TestCleanMultiline(t *testing.T) {
	input := "  Primera línea \n\n\t- Segunda •\n   \n"
	require.Equal(t, "Primera línea\nSegunda", CleanMultiline(input))
}

func TestMatchesAny(t *testing.T) {
	keywords := []string{"dorsal", "guía", "guia", "perro", "nombre"}

	require.True(t, MatchesAny("Dorsal Guía Perro", keywords, 0.86))
	require.True(t, MatchesAny("GUIA | PERRO", keywords, 0.86))
	// Accent variant caught only by the fuzzy pass.
	require.True(t, MatchesAny("guìa", []string{"guia"}, 0.86))
	require.False(t, MatchesAny("guìa", []string{"guia"}, 0))
	require.False(t, MatchesAny("12:30 Ring 1", keywords, 0.86))
	require.False(t, MatchesAny("", keywords, 0.86))
}
