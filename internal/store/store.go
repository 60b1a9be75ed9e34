package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	SitesFile  = "sites.json"
	ConfigFile = "config.json"

	DefaultThemeColor = "#333"
)

type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Port        string `json:"port"`
}

type Config struct {
	ThemeColor string `json:"themeColor"`
}

func DefaultConfig() Config {
	return Config{ThemeColor: DefaultThemeColor}
}

// FailureRecorder is told about every read or write that fell back to a
// default or was dropped. op is "read" or "write".
type FailureRecorder interface {
	RecordStoreFailure(file, op string)
}

type Option func(*Store)

func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithFailureRecorder(r FailureRecorder) Option {
	return func(s *Store) { s.failures = r }
}

// Store persists the site list and the theme config as two JSON files.
// Every save rewrites the whole file. There is no locking: concurrent
// read-modify-write sequences race and the last save wins.
type Store struct {
	dir      string
	log      zerolog.Logger
	clock    clockwork.Clock
	failures FailureRecorder
}

func New(dir string, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		dir:   dir,
		log:   log.With().Str("component", "store").Logger(),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error().Err(err).Str("dir", dir).Msg("create data dir")
	}
	return s
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) LoadSites() []Site {
	var sites []Site
	if !s.readJSON(SitesFile, &sites) || sites == nil {
		return []Site{}
	}
	return sites
}

func (s *Store) SaveSites(sites []Site) {
	if sites == nil {
		sites = []Site{}
	}
	s.writeJSON(SitesFile, sites)
}

func (s *Store) LoadConfig() Config {
	cfg := DefaultConfig()
	if !s.readJSON(ConfigFile, &cfg) {
		return DefaultConfig()
	}
	return cfg
}

func (s *Store) SaveConfig(cfg Config) {
	s.writeJSON(ConfigFile, cfg)
}

// AddSite appends a site with a freshly generated id and returns it.
func (s *Store) AddSite(name, description, port string) Site {
	sites := s.LoadSites()
	site := Site{
		ID:          NewSiteID(s.clock, sites),
		Name:        name,
		Description: description,
		Port:        port,
	}
	sites = append(sites, site)
	s.SaveSites(sites)
	s.log.Info().Str("id", site.ID).Str("name", site.Name).Msg("site added")
	return site
}

// DeleteSite removes the site with the given id. Unknown ids are a no-op
// apart from the file being rewritten.
func (s *Store) DeleteSite(id string) {
	sites := s.LoadSites()
	kept := make([]Site, 0, len(sites))
	for _, site := range sites {
		if site.ID != id {
			kept = append(kept, site)
		}
	}
	s.SaveSites(kept)
	if len(kept) != len(sites) {
		s.log.Info().Str("id", id).Msg("site deleted")
	}
}

func (s *Store) SetThemeColor(color string) Config {
	cfg := s.LoadConfig()
	cfg.ThemeColor = color
	s.SaveConfig(cfg)
	return cfg
}

// FindSite returns the site with the given id from sites.
func FindSite(sites []Site, id string) (Site, bool) {
	for _, site := range sites {
		if site.ID == id {
			return site, true
		}
	}
	return Site{}, false
}

// NewSiteID derives an id from the clock in Unix milliseconds, stepping
// forward past any id already taken in existing.
func NewSiteID(clock clockwork.Clock, existing []Site) string {
	taken := make(map[string]struct{}, len(existing))
	for _, site := range existing {
		taken[site.ID] = struct{}{}
	}
	n := clock.Now().UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		n++
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) readJSON(name string, v any) bool {
	p := s.path(name)
	raw, err := os.ReadFile(p)
	if err == nil {
		err = json.Unmarshal(raw, v)
		if err != nil {
			err = fmt.Errorf("parse: %w", err)
		}
	}
	if err != nil {
		s.log.Warn().Err(err).Str("file", p).Msg("failed to read data file, using default")
		s.recordFailure(name, "read")
		return false
	}
	return true
}

func (s *Store) writeJSON(name string, v any) {
	p := s.path(name)
	raw, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		err = os.WriteFile(p, raw, 0o644)
	}
	if err != nil {
		s.log.Error().Err(err).Str("file", p).Msg("failed to write data file")
		s.recordFailure(name, "write")
	}
}

func (s *Store) recordFailure(name, op string) {
	if s.failures != nil {
		s.failures.RecordStoreFailure(name, op)
	}
}
