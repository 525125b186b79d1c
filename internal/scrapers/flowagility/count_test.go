package flowagility

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func page(body string) string {
	return "<html><body>" + body + "</body></html>"
}

func TestCountFromHTMLIdentifierVariants(t *testing.T) {
	// four spelling variants, four distinct identifiers
	html := page(`
		<div phx-value-booking_id="a1"></div>
		<div phx-value-booking-id="b2"></div>
		<span data-phx-value-booking_id="c3"></span>
		<button id="booking-12345">detalles</button>
	`)
	require.Equal(t, 4, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountFromHTMLDeduplicatesSharedIdentifier(t *testing.T) {
	// the toggle attribute and the element id name the same booking
	html := page(`
		<div phx-value-booking_id="123"></div>
		<button id="booking-123">detalles</button>
	`)
	require.Equal(t, 1, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountFromHTMLNodeFallbackWithoutIdentifiers(t *testing.T) {
	// click handlers but no extractable ids: node count stands in
	html := page(strings.Repeat(`<button phx-click="toggle booking_details"></button>`, 3))
	require.Equal(t, 3, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountFromHTMLTableWithHeaderKeywords(t *testing.T) {
	var rows strings.Builder
	rows.WriteString(`<tr><th>Dorsal</th><th>Guía</th><th>Perro</th></tr>`)
	for i := 0; i < 5; i++ {
		rows.WriteString(fmt.Sprintf(`<tr><td>%d</td><td>g</td><td>p</td></tr>`, i+1))
	}
	html := page(`<table>` + rows.String() + `</table>`)
	require.Equal(t, 5, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountFromHTMLHeaderlessTableInRange(t *testing.T) {
	var rows strings.Builder
	rows.WriteString(`<tr><td>Columna A</td><td>Columna B</td></tr>`)
	for i := 0; i < 11; i++ {
		rows.WriteString(`<tr><td>x</td><td>y</td></tr>`)
	}
	html := page(`<table>` + rows.String() + `</table>`)
	// 12 rows total, inside the default 5..2000 window
	require.Equal(t, 11, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountFromHTMLTableOutsideRangeIgnored(t *testing.T) {
	html := page(`<table>
		<tr><td>a</td></tr>
		<tr><td>b</td></tr>
		<tr><td>c</td></tr>
	</table>`)
	require.Equal(t, 0, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountFromHTMLFreeText(t *testing.T) {
	for _, tt := range []struct {
		text string
		want int
	}{
		{"Total: 12 inscritos", 12},
		{"Hay 34 participantes confirmados", 34},
		{"total: 7", 7},
		{"2 competidores", 2},
		{"sin números aquí", 0},
	} {
		got := CountFromHTML(page("<p>"+tt.text+"</p>"), DefaultHeuristics())
		require.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

func TestCountFromHTMLRespectsConfiguredBounds(t *testing.T) {
	h := DefaultHeuristics()
	h.TextCountMax = 10
	require.Equal(t, 0, CountFromHTML(page("<p>50 participantes</p>"), h))

	h = DefaultHeuristics()
	h.TableRowsMin = 2
	html := page(`<table><tr><td>a</td></tr><tr><td>b</td></tr><tr><td>c</td></tr></table>`)
	require.Equal(t, 2, CountFromHTML(html, h))
}

func TestCountFromHTMLStrategyPrecedence(t *testing.T) {
	// identifiers outrank the table, the table outranks free text
	html := page(`
		<div phx-value-booking_id="1001"></div>
		<div phx-value-booking_id="1002"></div>
		<table>
			<tr><th>Dorsal</th></tr>
			<tr><td>1</td></tr><tr><td>2</td></tr><tr><td>3</td></tr>
		</table>
		<p>99 participantes</p>
	`)
	require.Equal(t, 2, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountFromHTMLIgnoresScriptText(t *testing.T) {
	html := page(`<script>var banner = "Total: 77 participantes";</script>`)
	require.Equal(t, 0, CountFromHTML(html, DefaultHeuristics()))
}

func TestCountParticipantsLiveScan(t *testing.T) {
	session := &fakeSession{}
	session.evalFn = func(script string, out any) error {
		if strings.Contains(script, "ids.add") {
			return writeInt(out, 7)
		}
		return nil
	}

	count := newTestScraper(session).CountParticipants(context.Background())
	require.Equal(t, 7, count)
	require.Equal(t, 2, session.evalCount("scrollBy"))
}

func TestCountParticipantsFallsBackToSnapshot(t *testing.T) {
	session := &fakeSession{
		html: page(`<div phx-value-booking_id="55"></div><div phx-value-booking_id="56"></div>`),
	}
	session.evalFn = func(script string, out any) error {
		return writeInt(out, 0)
	}

	count := newTestScraper(session).CountParticipants(context.Background())
	require.Equal(t, 2, count)
}
