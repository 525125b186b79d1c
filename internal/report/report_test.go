package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowscrape/internal/journal"
	"flowscrape/internal/scrapers/flowagility"
)

func enriched(nombre string, count int, withInfo bool) flowagility.DetailedEvent {
	return flowagility.DetailedEvent{
		Event:               flowagility.Event{ID: nombre, Nombre: nombre},
		NumeroParticipantes: count,
		ProcesadoInfo:       withInfo,
	}
}

func TestSummarize(t *testing.T) {
	events := []flowagility.DetailedEvent{
		enriched("Copa A", 12, true),
		enriched("Copa B", 0, true),
		enriched("Copa C", 34, false),
		enriched("Copa D", 3, false),
	}

	s := Summarize(events)
	require.Equal(t, 4, s.Events)
	require.Equal(t, 2, s.WithInfo)
	require.Equal(t, 3, s.WithParticipants)
	require.Equal(t, 49, s.TotalParticipants)

	require.Equal(t, []TopEvent{
		{Nombre: "Copa C", Participants: 34},
		{Nombre: "Copa A", Participants: 12},
		{Nombre: "Copa D", Participants: 3},
	}, s.Top)
}

func TestSummarizeCapsTopFive(t *testing.T) {
	var events []flowagility.DetailedEvent
	for i := 1; i <= 8; i++ {
		events = append(events, enriched(fmt.Sprintf("Evento %d", i), i*10, false))
	}

	s := Summarize(events)
	require.Len(t, s.Top, 5)
	require.Equal(t, 80, s.Top[0].Participants)
	require.Equal(t, 40, s.Top[4].Participants)
}

func TestSummaryText(t *testing.T) {
	s := Summarize([]flowagility.DetailedEvent{
		enriched("Copa Nacional", 21, true),
	})

	text := s.Text()
	require.Contains(t, text, "Eventos: 1")
	require.Contains(t, text, "Total participantes: 21")
	require.Contains(t, text, "Copa Nacional: 21")
}

func TestRender(t *testing.T) {
	s := Summarize([]flowagility.DetailedEvent{
		enriched("Copa Nacional", 21, true),
		enriched("Trofeo Sur", 7, true),
	})
	history := []journal.RunInfo{
		{ID: 3, Stage: "all", StartedAt: time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC), Events: 2, Participants: 28},
	}

	var buf bytes.Buffer
	Render(&buf, s, history)

	out := buf.String()
	// go-pretty upcases header cells
	require.Contains(t, out, "TOTAL PARTICIPANTES")
	require.Contains(t, out, "Copa Nacional")
	require.Contains(t, out, "Trofeo Sur")
	// 09:00 UTC is 10:00 in Madrid during winter
	require.Contains(t, out, "2025-03-07 10:00")
}

func TestRenderWithoutParticipantsSkipsTopTable(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Summarize(nil), nil)

	out := buf.String()
	require.Contains(t, out, "EVENTOS")
	// only the top-events table carries a rank column
	require.NotContains(t, out, "#")
}
