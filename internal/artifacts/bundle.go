package artifacts

import "log/slog"

type bundleMetadata struct {
	FechaGeneracion        string `json:"fecha_generacion"`
	TotalEventos           int    `json:"total_eventos"`
	TotalEventosDetallados int    `json:"total_eventos_detallados"`
	TotalParticipantes     int    `json:"total_participantes"`
	Version                string `json:"version"`
}

type finalBundle struct {
	Metadata      bundleMetadata `json:"metadata"`
	Eventos       []any          `json:"eventos"`
	Detallados    []any          `json:"eventos_detallados"`
	Participantes []any          `json:"participantes"`
}

// WriteFinalBundle merges the newest artifact of each stage into the
// single consumer-facing document. Stages that never ran contribute an
// empty list instead of failing the bundle.
func (s *Store) WriteFinalBundle() (string, error) {
	bundle := finalBundle{
		Metadata: bundleMetadata{
			FechaGeneracion: s.now().Format("2006-01-02 15:04:05"),
			Version:         "1.0",
		},
		Eventos:       s.newestList(eventsPrefix),
		Detallados:    s.newestList(detailPrefix),
		Participantes: s.newestList(rosterPrefix),
	}
	bundle.Metadata.TotalEventos = len(bundle.Eventos)
	bundle.Metadata.TotalEventosDetallados = len(bundle.Detallados)
	bundle.Metadata.TotalParticipantes = len(bundle.Participantes)

	if err := s.writeJSON(bundleName, bundle); err != nil {
		return "", err
	}
	slog.Info("final bundle written", "path", s.path(bundleName),
		"events", bundle.Metadata.TotalEventos,
		"participants", bundle.Metadata.TotalParticipantes)
	return s.path(bundleName), nil
}

// newestList loads the newest artifact for prefix generically, empty
// when the stage never ran.
func (s *Store) newestList(prefix string) []any {
	var list []any
	if err := s.readNewest(prefix, &list); err != nil {
		slog.Warn("bundle input missing", "prefix", prefix, "error", err)
	}
	if list == nil {
		list = []any{}
	}
	return list
}
