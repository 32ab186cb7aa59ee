package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vovakirdan/tui-traffic/internal/routing"
	"github.com/vovakirdan/tui-traffic/internal/scene/formats"
)

// Loader handles loading scene files from a directory.
type Loader struct {
	Root string
}

// NewLoader creates a new scene loader.
func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// LoadAll recursively scans and loads every scene file under Root.
// Invalid files are skipped. Scenes are sorted by ID.
func (l *Loader) LoadAll() ([]*Scene, error) {
	var scenes []*Scene

	err := filepath.WalkDir(l.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !isSupportedExtension(ext) {
			return nil
		}

		s, err := LoadFile(path)
		if err != nil {
			return nil
		}
		scenes = append(scenes, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", l.Root, err)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].ID < scenes[j].ID
	})
	return scenes, nil
}

// LoadByID loads the scene with the given ID from Root.
func (l *Loader) LoadByID(id string) (*Scene, error) {
	scenes, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, s := range scenes {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("scene not found: %s", id)
}

// LoadFile reads, parses and validates a single scene file.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !isSupportedExtension(ext) {
		return nil, fmt.Errorf("unsupported extension: %s", ext)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing file %s: %w", path, err)
	}
	s.FilePath = path
	return s, nil
}

// Parse decodes and validates a YAML scene document.
func Parse(data []byte) (*Scene, error) {
	doc, err := formats.ParseYAML(data)
	if err != nil {
		return nil, err
	}

	s := &Scene{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Tiles:       doc.Tiles,
		Exits:       Exits(doc.Exits),
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	for _, p := range doc.StopSigns {
		s.StopSigns = append(s.StopSigns, routing.NewStopSign(p))
	}
	for _, l := range doc.Stoplights {
		s.Stoplights = append(s.Stoplights, routing.NewStoplight(l.Pos, l.Frequency))
	}
	for _, c := range doc.Spawns {
		s.Spawns = append(s.Spawns, Spawn{Tile: c})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func isSupportedExtension(ext string) bool {
	for _, supported := range formats.FormatExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}
