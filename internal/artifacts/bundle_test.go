package artifacts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flowscrape/internal/scrapers/flowagility"
)

func TestWriteFinalBundle(t *testing.T) {
	store := newTestStore(t)

	_, err := store.WriteEvents(sampleEvents())
	require.NoError(t, err)

	detailed := []flowagility.DetailedEvent{{
		Event:               sampleEvents()[0],
		NumeroParticipantes: 9,
		ParticipantesInfo:   "9 participantes",
	}}
	_, err = store.WriteDetailed(detailed)
	require.NoError(t, err)

	roster := []flowagility.Participant{
		{BinomID: "1"}, {BinomID: "2"}, {BinomID: "3"},
	}
	_, err = store.WriteParticipants(roster)
	require.NoError(t, err)

	path, err := store.WriteFinalBundle()
	require.NoError(t, err)
	require.Equal(t, store.path("participants_completos_final.json"), path)

	var doc map[string]any
	require.NoError(t, readJSONFile(path, &doc))

	meta := doc["metadata"].(map[string]any)
	require.Equal(t, "1.0", meta["version"])
	require.Equal(t, "2025-03-07 10:30:00", meta["fecha_generacion"])
	require.Equal(t, float64(2), meta["total_eventos"])
	require.Equal(t, float64(1), meta["total_eventos_detallados"])
	require.Equal(t, float64(3), meta["total_participantes"])

	require.Len(t, doc["eventos"], 2)
	require.Len(t, doc["eventos_detallados"], 1)
	require.Len(t, doc["participantes"], 3)
}

func TestWriteFinalBundleWithMissingStages(t *testing.T) {
	store := newTestStore(t)

	path, err := store.WriteFinalBundle()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, readJSONFile(path, &doc))
	require.Equal(t, []any{}, doc["eventos"])
	require.Equal(t, []any{}, doc["participantes"])
	require.Equal(t, float64(0), doc["metadata"].(map[string]any)["total_eventos"])
}
