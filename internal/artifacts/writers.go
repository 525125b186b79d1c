package artifacts

import (
	"fmt"
	"log/slog"
	"strings"

	"flowscrape/internal/scrapers/flowagility"
)

// WriteEvents persists the discovery stage output and returns the
// dated path.
func (s *Store) WriteEvents(events []flowagility.Event) (string, error) {
	path, err := s.writePair(eventsPrefix, events)
	if err != nil {
		return "", err
	}
	slog.Info("events written", "path", path, "count", len(events))
	return path, nil
}

// WriteDetailed persists the enriched events.
func (s *Store) WriteDetailed(events []flowagility.DetailedEvent) (string, error) {
	path, err := s.writePair(detailPrefix, events)
	if err != nil {
		return "", err
	}
	slog.Info("detailed events written", "path", path, "count", len(events))
	return path, nil
}

// WriteParticipants persists the consolidated roster.
func (s *Store) WriteParticipants(participants []flowagility.Participant) (string, error) {
	path, err := s.writePair(rosterPrefix, participants)
	if err != nil {
		return "", err
	}
	slog.Info("participants written", "path", path, "count", len(participants))
	return path, nil
}

// ReadNewestEvents loads the newest discovery artifact, for running
// later stages standalone.
func (s *Store) ReadNewestEvents() ([]flowagility.Event, error) {
	var events []flowagility.Event
	if err := s.readNewest(eventsPrefix, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ReadNewestDetailed loads the newest enriched-events artifact.
func (s *Store) ReadNewestDetailed() ([]flowagility.DetailedEvent, error) {
	var events []flowagility.DetailedEvent
	if err := s.readNewest(detailPrefix, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AppendProcessed upserts one record into the accumulated side file,
// keyed by event id. The file survives cleanup-free across stages and
// lets an aborted run keep what it already processed.
func (s *Store) AppendProcessed(rec flowagility.DetailedEvent) error {
	accumulated := []flowagility.DetailedEvent{}
	path := s.path(processedName)
	if err := readJSONFile(path, &accumulated); err != nil {
		// first event of the first run, or a corrupt file we overwrite
		accumulated = nil
	}

	replaced := false
	for i, existing := range accumulated {
		if existing.ID == rec.ID {
			accumulated[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		accumulated = append(accumulated, rec)
	}
	return s.writeJSON(processedName, accumulated)
}

// DumpDebugHTML saves the page snapshot of a roster the heuristics
// could not resolve.
func (s *Store) DumpDebugHTML(eventID, pageHTML string) error {
	name := fmt.Sprintf("debug_participants_%s.html", safeName(eventID))
	if err := writeFile(s.path(name), []byte(pageHTML)); err != nil {
		return err
	}
	slog.Debug("debug snapshot written", "path", s.path(name))
	return nil
}

// safeName keeps ids usable as file names.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
