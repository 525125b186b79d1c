package flowagility

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const rosterFixture = `<html><body>
<div id="booking-10001">
  <div><div>Dorsal</div><div>101</div></div>
  <div><div>Guía</div><div>Ana Gómez</div></div>
  <div><div>Perro</div><div>Max</div></div>
  <div><div>Raza</div><div>Border Collie</div></div>
  <div><div>Altura (cm)</div><div>48</div></div>
  <div><div>Club</div><div>Agility Getafe</div></div>
  <div>
    <div>Día 1 - Sábado</div>
    <div>12/10/2025</div>
    <div>3 mangas</div>
  </div>
  <div>
    <div>Día 2</div>
    <div>Domingo</div>
    <div>13/10/2025</div>
    <div>Mangas: 2</div>
  </div>
</div>
<div phx-value-booking_id="10002">
  <div><div>Guía</div><div>Luis Pérez</div></div>
  <div><div>Perro</div><div>Nala</div></div>
  <div><div>Federación</div><div>RFEC</div></div>
</div>
<button id="booking-10001">detalles</button>
</body></html>`

func TestParseParticipants(t *testing.T) {
	ev := Event{ID: "uuid-1", Nombre: "Copa Primavera"}
	rosterURL := "https://flow.test/zone/events/uuid-1/participants_list"

	participants := ParseParticipants(rosterFixture, ev, rosterURL)
	require.Len(t, participants, 2)

	first := participants[0]
	require.Equal(t, "10001", first.BinomID)
	require.Equal(t, "101", first.Dorsal)
	require.Equal(t, "Ana Gómez", first.Guia)
	require.Equal(t, "Max", first.Perro)
	require.Equal(t, "Border Collie", first.Raza)
	require.Equal(t, "48", first.Altura)
	require.Equal(t, "Agility Getafe", first.Club)
	require.Equal(t, "uuid-1", first.EventUUID)
	require.Equal(t, "Copa Primavera", first.EventTitle)
	require.Equal(t, rosterURL, first.ParticipantsURL)

	require.Equal(t, DaySlot{Dia: "Sábado", Fecha: "12/10/2025", Mangas: "3"}, first.Days[0])
	require.Equal(t, DaySlot{Dia: "Domingo", Fecha: "13/10/2025", Mangas: "2"}, first.Days[1])
	require.Equal(t, DaySlot{}, first.Days[2])

	second := participants[1]
	require.Equal(t, "10002", second.BinomID)
	require.Equal(t, "Luis Pérez", second.Guia)
	require.Equal(t, "Nala", second.Perro)
	require.Equal(t, "RFEC", second.Federacion)
	require.Empty(t, second.Dorsal)
}

func TestParticipantFlatSchema(t *testing.T) {
	p := Participant{
		BinomID: "10001",
		Guia:    "Ana Gómez",
		Days: [6]DaySlot{
			{Dia: "Sábado", Fecha: "12/10/2025", Mangas: "3"},
		},
	}

	flat := p.Flat()
	require.Equal(t, "Ana Gómez", flat["Guía"])
	require.Equal(t, "Sábado", flat["Día 1"])
	require.Equal(t, "3", flat["Mangas 1"])
	require.Equal(t, "", flat["Día 4"])

	// every declared column is present, nothing else is
	require.Len(t, flat, len(ParticipantColumns))
	for _, col := range ParticipantColumns {
		_, ok := flat[col]
		require.True(t, ok, "missing column %q", col)
	}
}

func TestCollectParticipants(t *testing.T) {
	session := &fakeSession{html: rosterFixture}
	session.evalFn = func(script string, out any) error {
		if isPresencePoll(script, out) {
			return writeInt(out, 2)
		}
		if strings.Contains(script, "t.click") {
			return writeInt(out, 2)
		}
		return nil
	}
	session.clickFn = func(string) error { return errNoBanner }

	s := newTestScraper(session)
	ev := Event{
		ID:      "uuid-1",
		Nombre:  "Copa Primavera",
		Enlaces: EventLinks{Participantes: "https://flow.test/zone/events/uuid-1/participants_list"},
	}

	participants, err := s.CollectParticipants(context.Background(), ev, 2*time.Second)
	require.NoError(t, err)
	require.Len(t, participants, 2)
	require.Equal(t, []string{"https://flow.test/zone/events/uuid-1/participants_list"}, session.navigations)
}

func TestCollectParticipantsSessionExpired(t *testing.T) {
	session := &fakeSession{location: "https://flow.test/user/login"}
	session.clickFn = func(string) error { return errNoBanner }

	s := newTestScraper(session)
	ev := Event{ID: "x", Enlaces: EventLinks{Participantes: "https://flow.test/zone/events/x/participants_list"}}

	_, err := s.CollectParticipants(context.Background(), ev, time.Second)
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestCollectParticipantsEmptyRoster(t *testing.T) {
	session := &fakeSession{text: "No hay participantes"}
	session.clickFn = func(string) error { return errNoBanner }

	s := newTestScraper(session)
	ev := Event{ID: "x", Enlaces: EventLinks{Participantes: "https://flow.test/zone/events/x/participants_list"}}

	participants, err := s.CollectParticipants(context.Background(), ev, time.Second)
	require.NoError(t, err)
	require.Empty(t, participants)
}
