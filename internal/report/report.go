// Package report renders the end-of-run summary: totals, the busiest
// events, recent run history, and optionally mails it.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"flowscrape/internal/journal"
	"flowscrape/internal/scrapers/flowagility"
	"flowscrape/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
)

const topSize = 5

// Summary aggregates one run's results.
type Summary struct {
	Events            int
	WithInfo          int
	WithParticipants  int
	TotalParticipants int
	Top               []TopEvent
}

type TopEvent struct {
	Nombre       string
	Participants int
}

// Summarize computes the run totals and the busiest events by
// participant count.
func Summarize(events []flowagility.DetailedEvent) Summary {
	s := Summary{Events: len(events)}
	var top []TopEvent
	for _, ev := range events {
		if ev.ProcesadoInfo {
			s.WithInfo++
		}
		if ev.NumeroParticipantes > 0 {
			s.WithParticipants++
			s.TotalParticipants += ev.NumeroParticipantes
			top = append(top, TopEvent{Nombre: ev.Nombre, Participants: ev.NumeroParticipantes})
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Participants > top[j].Participants
	})
	if len(top) > topSize {
		top = top[:topSize]
	}
	s.Top = top
	return s
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// Render writes the summary tables to w, plus the recent run history
// when the journal has any.
func Render(w io.Writer, s Summary, history []journal.RunInfo) {
	totals := newTable(w)
	totals.AppendHeader(table.Row{"Eventos", "Con info", "Con participantes", "Total participantes"})
	totals.AppendRow(table.Row{s.Events, s.WithInfo, s.WithParticipants, s.TotalParticipants})
	totals.Render()

	if len(s.Top) > 0 {
		top := newTable(w)
		top.AppendHeader(table.Row{"#", "Evento", "Participantes"})
		for i, t := range s.Top {
			top.AppendRow(table.Row{i + 1, t.Nombre, t.Participants})
		}
		top.Render()
	}

	if len(history) > 0 {
		runs := newTable(w)
		runs.AppendHeader(table.Row{"Run", "Stage", "Started", "Eventos", "Participantes"})
		for _, info := range history {
			// the journal stores UTC, people read platform time
			started := info.StartedAt.In(timezone.Location).Format("2006-01-02 15:04")
			runs.AppendRow(table.Row{info.ID, info.Stage, started, info.Events, info.Participants})
		}
		runs.Render()
	}
}

// Text renders the plain-text summary used as the mail body.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eventos: %d\n", s.Events)
	fmt.Fprintf(&b, "Eventos con info: %d\n", s.WithInfo)
	fmt.Fprintf(&b, "Eventos con participantes: %d\n", s.WithParticipants)
	fmt.Fprintf(&b, "Total participantes: %d\n", s.TotalParticipants)
	if len(s.Top) > 0 {
		b.WriteString("\nTop eventos:\n")
		for _, t := range s.Top {
			fmt.Fprintf(&b, "  %s: %d\n", t.Nombre, t.Participants)
		}
	}
	return b.String()
}
