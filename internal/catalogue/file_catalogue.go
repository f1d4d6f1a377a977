package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileCatalogue is the reference Catalogue implementation: one JSON file
// per airport (`<ICAO>.json`, an array of `{"id":"...","kind":"..."}`)
// inside a directory, hot-reloaded on change via fsnotify so operators can
// add or edit an airport's objects without restarting the hub process.
type FileCatalogue struct {
	dir string
	log zerolog.Logger

	mu     sync.RWMutex
	points map[string][]Point // airport -> points

	watcher *fsnotify.Watcher
}

// NewFileCatalogue loads every "<ICAO>.json" file in dir and starts
// watching it for changes. Call Close to stop watching.
func NewFileCatalogue(dir string, log zerolog.Logger) (*FileCatalogue, error) {
	c := &FileCatalogue{
		dir:    dir,
		log:    log.With().Str("component", "catalogue").Logger(),
		points: make(map[string][]Point),
	}
	if err := c.loadAll(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalogue: new watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("catalogue: watch %s: %w", dir, err)
	}
	c.watcher = watcher
	go c.watchLoop()

	return c, nil
}

func (c *FileCatalogue) loadAll() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("catalogue: read dir %s: %w", c.dir, err)
	}
	points := make(map[string][]Point, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		airport := strings.ToUpper(strings.TrimSuffix(e.Name(), ".json"))
		pts, err := c.loadFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			c.log.Warn().Err(err).Str("airport", airport).Msg("skipping malformed catalogue file")
			continue
		}
		points[airport] = pts
	}

	c.mu.Lock()
	c.points = points
	c.mu.Unlock()
	return nil
}

func (c *FileCatalogue) loadFile(path string) ([]Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pts []Point
	if err := json.Unmarshal(data, &pts); err != nil {
		return nil, err
	}
	return pts, nil
}

func (c *FileCatalogue) watchLoop() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if err := c.loadAll(); err != nil {
					c.log.Error().Err(err).Msg("catalogue reload failed")
				} else {
					c.log.Info().Str("event", event.Name).Msg("catalogue reloaded")
				}
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Error().Err(err).Msg("catalogue watcher error")
		}
	}
}

// Points implements Catalogue.
func (c *FileCatalogue) Points(_ context.Context, airport string) ([]Point, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pts := c.points[strings.ToUpper(airport)]
	out := make([]Point, len(pts))
	copy(out, pts)
	return out, nil
}

// Close stops the file watcher.
func (c *FileCatalogue) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}
