package gpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"safe string unchanged", "Kasbah des Oudayas", "Kasbah des Oudayas"},
		{"angle brackets", "<script>", "&lt;script&gt;"},
		{"ampersand first", "fish & chips", "fish &amp; chips"},
		{"quotes", `dit "le bleu"`, "dit &quot;le bleu&quot;"},
		{"apostrophe", "l'amandier", "l&apos;amandier"},
		{"nil is empty, not literal null", nil, ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeXML(tt.input))
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	doc := Document{
		Name:      "Boucle de la Médina",
		CircuitID: "HW-1700000000000",
		Waypoints: []Waypoint{
			{Lat: 35.5700, Lon: -5.3600, Name: "Porte <Bab> & Co", Desc: "départ"},
			{Lat: 35.5710, Lon: -5.3610, Name: "Musée", Desc: "", Link: "https://example.org/musee"},
		},
		Track: [][2]float64{
			{35.5700, -5.3600},
			{35.5705, -5.3605},
			{35.5710, -5.3610},
		},
	}

	data := Encode(doc)
	parsed, err := Decode(data)

	require.NoError(t, err)
	assert.Equal(t, "HW-1700000000000", parsed.CircuitID)
	assert.Len(t, parsed.Track, 3)
	assert.Equal(t, doc.Track[0], parsed.Track[0])
	assert.Equal(t, doc.Track[2], parsed.Track[2])
	require.Len(t, parsed.Waypoints, 2)
	// XML-экранирование должно раскрыться обратно при разборе
	assert.Equal(t, "Porte <Bab> & Co", parsed.Waypoints[0].Name)
	assert.Equal(t, "Boucle de la Médina", parsed.Name)
}

func TestDecode_EmptyTrackIsHardFailure(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<gpx version="1.1" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata><name>vide</name></metadata>
  <trk><trkseg></trkseg></trk>
</gpx>`)

	_, err := Decode(data)

	assert.ErrorIs(t, err, ErrNoTrackPoints)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("pas du tout du xml <gpx"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRecoverCircuitID_Priority(t *testing.T) {
	track := `<trk><trkseg><trkpt lat="1" lon="2"></trkpt></trkseg></trk>`

	tests := []struct {
		name     string
		metadata string
		expected string
	}{
		{
			// author/name побеждает, даже если keywords и desc несут другой id
			name: "author wins over keywords and desc",
			metadata: `<metadata>
				<desc>[HW-ID:from-desc]</desc>
				<author><name>[HW-ID:from-author]</name></author>
				<keywords>[HW-ID:from-keywords]</keywords>
			</metadata>`,
			expected: "from-author",
		},
		{
			name: "keywords when author stripped",
			metadata: `<metadata>
				<desc>[HW-ID:from-desc]</desc>
				<keywords>[HW-ID:from-keywords]</keywords>
			</metadata>`,
			expected: "from-keywords",
		},
		{
			name:     "legacy desc as last resort",
			metadata: `<metadata><desc>circuit [HW-ID:from-desc] exporté</desc></metadata>`,
			expected: "from-desc",
		},
		{
			name:     "no marker anywhere",
			metadata: `<metadata><name>fichier étranger</name></metadata>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`<?xml version="1.0"?><gpx version="1.1">` + tt.metadata + track + `</gpx>`)

			parsed, err := Decode(data)

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, parsed.CircuitID)
		})
	}
}
