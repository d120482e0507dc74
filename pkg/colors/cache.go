// Package colors assigns each task project a stable terminal color so the
// dashboard renders the same project the same way across runs. Assignments
// are persisted as JSON next to the rest of the config; when the palette is
// exhausted the least recently seen project gives up its slot.
package colors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const cacheFile = "project_colors.json"

// palette is a set of ANSI 256 codes that read well on dark terminals,
// consumable directly by lipgloss.Color.
var palette = []string{"39", "208", "135", "42", "203", "220", "81", "171", "114", "215", "147"}

// DefaultColor is used for tasks without a project.
const DefaultColor = "245"

type assignment struct {
	Color    string    `json:"color"`
	LastSeen time.Time `json:"lastSeen"`
}

// Cache maps project names to palette colors with LRU recycling.
type Cache struct {
	path     string
	projects map[string]*assignment
	dirty    bool
}

// Open loads the cache stored in dir, starting empty if none exists.
func Open(dir string) (*Cache, error) {
	c := &Cache{
		path:     filepath.Join(dir, cacheFile),
		projects: make(map[string]*assignment),
	}

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&c.projects); err != nil {
		return nil, err
	}
	return c, nil
}

// Save persists the cache if anything changed since the last save.
func (c *Cache) Save() error {
	if !c.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}
	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(c.projects); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Color returns the stable color code for a project, assigning one on
// first sight.
func (c *Cache) Color(project string) string {
	if project == "" {
		return DefaultColor
	}

	if a, ok := c.projects[project]; ok {
		a.LastSeen = time.Now()
		c.dirty = true
		return a.Color
	}
	return c.assign(project)
}

func (c *Cache) assign(project string) string {
	used := make(map[string]bool, len(c.projects))
	for _, a := range c.projects {
		used[a.Color] = true
	}

	for _, color := range palette {
		if !used[color] {
			c.projects[project] = &assignment{Color: color, LastSeen: time.Now()}
			c.dirty = true
			return color
		}
	}

	// Palette exhausted: recycle the slot of the project seen longest ago.
	var oldest string
	var oldestTime time.Time
	for p, a := range c.projects {
		if oldest == "" || a.LastSeen.Before(oldestTime) {
			oldest = p
			oldestTime = a.LastSeen
		}
	}

	color := c.projects[oldest].Color
	delete(c.projects, oldest)
	c.projects[project] = &assignment{Color: color, LastSeen: time.Now()}
	c.dirty = true
	return color
}
