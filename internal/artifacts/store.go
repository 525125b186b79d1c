// Package artifacts persists every file the run produces: the dated +
// latest JSON pairs per stage, the wide CSV projection, the final
// unified bundle, and the debug dumps. One flat output directory,
// consumers glob by prefix and take the newest file.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flowscrape/lib/timezone"
)

const (
	eventsPrefix  = "01events"
	detailPrefix  = "02info"
	rosterPrefix  = "03todos_participantes"
	csvPrefix     = "participantes_procesado"
	bundleName    = "participants_completos_final.json"
	processedName = "eventos_procesados.json"
)

// keepOnClean survive the run-start cleanup.
var keepOnClean = map[string]bool{
	"config.json":  true,
	"settings.ini": true,
}

type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	// artifact names and generation stamps follow the platform's clock
	return &Store{dir: dir, now: timezone.Now}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Clean removes previous run files from the output directory, keeping
// the configuration files and any subdirectories.
func (s *Store) Clean() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || keepOnClean[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("clean output dir: %w", err)
		}
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().Format("2006-01-02")
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writePair writes the dated artifact plus its fixed-name latest copy
// and returns the dated path.
func (s *Store) writePair(prefix string, v any) (string, error) {
	dated := fmt.Sprintf("%s_%s.json", prefix, s.stamp())
	if err := s.writeJSON(dated, v); err != nil {
		return "", err
	}
	if err := s.writeJSON(prefix+".json", v); err != nil {
		return "", err
	}
	return s.path(dated), nil
}

// newestMatch picks the most recently modified file matching pattern,
// ties broken by name so same-instant writes stay deterministic.
func (s *Store) newestMatch(pattern string) (string, bool) {
	matches, err := filepath.Glob(s.path(pattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	var best string
	var bestTime time.Time
	for _, match := range matches {
		fi, err := os.Stat(match)
		if err != nil {
			continue
		}
		mt := fi.ModTime()
		if best == "" || mt.After(bestTime) || (mt.Equal(bestTime) && match > best) {
			best, bestTime = match, mt
		}
	}
	return best, best != ""
}

// readNewest loads the newest dated artifact for prefix, falling back
// to the latest copy.
func (s *Store) readNewest(prefix string, v any) error {
	path, ok := s.newestMatch(prefix + "_*.json")
	if !ok {
		path = s.path(prefix + ".json")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("no %s artifact in %s, run the earlier stage first", prefix, s.dir)
		}
	}
	if err := readJSONFile(path, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
