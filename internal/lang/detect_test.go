package lang

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	require.Equal(t, English, Parse("en"))
	require.Equal(t, English, Parse("EN-us"))
	require.Equal(t, English, Parse("english"))
	require.Equal(t, Spanish, Parse("es"))
	require.Equal(t, Spanish, Parse(""))
	require.Equal(t, Spanish, Parse("fr"))
}

func TestDetect_Spanish(t *testing.T) {
	text := "El contrato de alquiler se firmó en la ciudad con el consentimiento de las partes."
	require.Equal(t, Spanish, Detect(text))
}

func TestDetect_English(t *testing.T) {
	text := "The lease agreement was signed in the city with the consent of all the parties."
	require.Equal(t, English, Detect(text))
}

func TestDetect_EmptyAndAmbiguousFallBackToDefault(t *testing.T) {
	require.Equal(t, Default, Detect(""))
	require.Equal(t, Default, Detect("1234 !!!"))
	require.Equal(t, Default, Detect("documento document"))
}
