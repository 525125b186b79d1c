package flowagility

// Heuristics collects the tunable guesswork of the scraper: selector
// unions, phrase sets, and the plausibility bounds guarding the count
// fallbacks. The bounds are tuning values, not domain truths, so they
// live here instead of as constants. Loaded from an optional json5
// file over these defaults.
type Heuristics struct {
	// attribute/id spelling variants that mark a booking element
	BookingSelectors []string `json:"booking_selectors"`
	// roster table header words, matched fuzzily to absorb accents
	HeaderKeywords []string `json:"header_keywords"`
	HeaderFuzz     float64  `json:"header_fuzz"`
	// phrases an empty roster page shows instead of rows
	EmptyTexts []string `json:"empty_texts"`
	// regexes over visible text, first capture group is the count
	CountPatterns []string `json:"count_patterns"`

	// row-count window for headerless tables to pass as rosters
	TableRowsMin int `json:"table_rows_min"`
	TableRowsMax int `json:"table_rows_max"`
	// sanity window for counts pulled out of free text
	TextCountMin int `json:"text_count_min"`
	TextCountMax int `json:"text_count_max"`

	// lazy-render nudges before the live count
	SoftScrolls int `json:"soft_scrolls"`

	// listing-card text markers separating venues from club names
	VenueMarkers   []string `json:"venue_markers"`
	CountryMarkers []string `json:"country_markers"`
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		BookingSelectors: []string{
			`[phx-value-booking_id]`,
			`[phx-value-booking-id]`,
			`[data-phx-value-booking_id]`,
			`[data-phx-value-booking-id]`,
			`[phx-click*="booking_details"]`,
			`[data-phx-click*="booking_details"]`,
			`[id^="booking-"]`,
			`[id^="booking_"]`,
		},
		HeaderKeywords: []string{"dorsal", "guía", "guia", "perro", "nombre"},
		HeaderFuzz:     0.86,
		EmptyTexts: []string{
			"no hay",
			"sin participantes",
			"no results",
			"0 participantes",
			"no participants",
		},
		CountPatterns: []string{
			`(\d+)\s*(?:participantes?|inscritos?|competidores?)`,
			`total:\s*(\d+)`,
		},
		TableRowsMin:   5,
		TableRowsMax:   2000,
		TextCountMin:   0,
		TextCountMax:   5000,
		SoftScrolls:    2,
		VenueMarkers:   []string{"Spain", "España", "Madrid", "Barcelona"},
		CountryMarkers: []string{"Spain", "España"},
	}
}
