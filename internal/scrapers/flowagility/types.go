package flowagility

import (
	"encoding/json"
	"fmt"
)

// Event is one competition card from the listing page. The JSON keys
// are the Spanish ones the downstream consumers already read, changing
// them would break every file they ingest.
type Event struct {
	ID           string     `json:"id"`
	Nombre       string     `json:"nombre"`
	Fechas       string     `json:"fechas"`
	Organizacion string     `json:"organizacion"`
	Club         string     `json:"club"`
	Lugar        string     `json:"lugar"`
	Enlaces      EventLinks `json:"enlaces"`
	PaisBandera  string     `json:"pais_bandera"`
}

type EventLinks struct {
	Info          string `json:"info,omitempty"`
	Participantes string `json:"participantes,omitempty"`
}

// DetailedEvent is an Event after the info and participants stages.
// NumeroParticipantes stays 0 both for genuinely empty rosters and for
// pages where counting failed, ParticipantesInfo is the only
// discriminator between the two.
type DetailedEvent struct {
	Event
	NumeroParticipantes  int             `json:"numero_participantes"`
	ParticipantesInfo    string          `json:"participantes_info"`
	ProcesadoInfo        bool            `json:"procesado_info"`
	TimestampExtraccion  string          `json:"timestamp_extraccion"`
	InformacionAdicional *AdditionalInfo `json:"informacion_adicional,omitempty"`
}

type AdditionalInfo struct {
	TituloCompleto string `json:"titulo_completo,omitempty"`
	Descripcion    string `json:"descripcion,omitempty"`
}

// InfoDetails holds what the event detail page yields. Empty fields
// mean the page did not expose that piece.
type InfoDetails struct {
	Club        string
	Lugar       string
	Titulo      string
	Descripcion string
}

// DaySlot is one competition day inside a booking detail panel.
type DaySlot struct {
	Dia    string
	Fecha  string
	Mangas string
}

// Participant is one guide/dog pairing scraped from a roster detail
// panel. It serializes to the flat wide schema (day slots spread into
// "Día i"/"Fecha i"/"Mangas i" keys) that the CSV projection and the
// downstream ingestion expect.
type Participant struct {
	ParticipantsURL string
	BinomID         string
	Dorsal          string
	Guia            string
	Perro           string
	Raza            string
	Edad            string
	Genero          string
	Altura          string
	Pedigree        string
	Pais            string
	Licencia        string
	Club            string
	Federacion      string
	Equipo          string
	EventUUID       string
	EventTitle      string
	Days            [6]DaySlot
}

// ParticipantColumns is the CSV column order. The repeated day/date/
// heat triplets come last, one per possible competition day.
var ParticipantColumns = buildParticipantColumns()

func buildParticipantColumns() []string {
	cols := []string{
		"participants_url", "BinomID", "Dorsal", "Guía", "Perro", "Raza", "Edad",
		"Género", "Altura (cm)", "Nombre de Pedigree", "País", "Licencia", "Club",
		"Federación", "Equipo", "event_uuid", "event_title",
	}
	for i := 1; i <= 6; i++ {
		cols = append(cols,
			fmt.Sprintf("Día %d", i),
			fmt.Sprintf("Fecha %d", i),
			fmt.Sprintf("Mangas %d", i),
		)
	}
	return cols
}

// Flat projects the participant onto the wide schema. Every column is
// present, absent values map to "".
func (p Participant) Flat() map[string]string {
	out := map[string]string{
		"participants_url":   p.ParticipantsURL,
		"BinomID":            p.BinomID,
		"Dorsal":             p.Dorsal,
		"Guía":               p.Guia,
		"Perro":              p.Perro,
		"Raza":               p.Raza,
		"Edad":               p.Edad,
		"Género":             p.Genero,
		"Altura (cm)":        p.Altura,
		"Nombre de Pedigree": p.Pedigree,
		"País":               p.Pais,
		"Licencia":           p.Licencia,
		"Club":               p.Club,
		"Federación":         p.Federacion,
		"Equipo":             p.Equipo,
		"event_uuid":         p.EventUUID,
		"event_title":        p.EventTitle,
	}
	for i, day := range p.Days {
		out[fmt.Sprintf("Día %d", i+1)] = day.Dia
		out[fmt.Sprintf("Fecha %d", i+1)] = day.Fecha
		out[fmt.Sprintf("Mangas %d", i+1)] = day.Mangas
	}
	return out
}

func (p Participant) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Flat())
}
