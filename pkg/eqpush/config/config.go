// Package config loads the eqpush configuration snapshot.
//
// A Snapshot is read-only once loaded. Hot reload happens by replacing the
// whole snapshot (see Manager), so consumers re-read Current() on every
// evaluation instead of caching fields.
//
// Example YAML file:
//
//	log_dir: 'C:\Users\Public\Daybreak Game Company\Installed Games\EverQuest\Logs'
//	push:
//	  push_enabled: true
//	  afk_only: true
//	  idle_time_to_afk: 300
//	  timer_expiry: true
//	  timer_expiry_afk_only: false
//	  prowl_api_key: 0123456789abcdef
//	  character_names: grimjaw, grim
//	  camp_policy: suppress
//	  triggers:
//	    - ["You died", '^You died\.']
//	    - name: Slain
//	      pattern: '^(?P<target>[\w\s]+?) (?:have|has) been slain by (?P<source>.*)\.'
//
// Environment variables prefixed with EQPUSH_ override file values, e.g.
// EQPUSH_PROWL_API_KEY or EQPUSH_AFK_ONLY.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eqpush/eqpush-go/pkg/eqpush/trigger"
)

const (
	// MaxFileSize is the maximum accepted configuration file size.
	MaxFileSize = 1 * 1024 * 1024

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "EQPUSH_"

	// DefaultAppName is the application name sent with notifications.
	DefaultAppName = "EverQuest"
)

// CampPolicy decides how the camp countdown affects notification eligibility.
type CampPolicy string

const (
	// CampSuppress treats a running camp countdown as not actively playing.
	CampSuppress CampPolicy = "suppress"
	// CampAway counts a running camp countdown as away for AFK-only gates.
	CampAway CampPolicy = "away"
	// CampIgnore disregards camping entirely.
	CampIgnore CampPolicy = "ignore"
)

// Valid reports whether p is a known policy.
func (p CampPolicy) Valid() bool {
	switch p {
	case CampSuppress, CampAway, CampIgnore:
		return true
	}
	return false
}

// Snapshot is one immutable view of the configuration.
type Snapshot struct {
	// LogDir is the EverQuest Logs directory; empty means auto-detect.
	LogDir string `yaml:"log_dir" json:"log_dir" env:"LOG_DIR"`

	Push Push `yaml:"push" json:"push"`

	version uint64
}

// Push holds the notification policy.
type Push struct {
	Enabled            bool    `yaml:"push_enabled" json:"push_enabled" env:"PUSH_ENABLED"`
	AFKOnly            bool    `yaml:"afk_only" json:"afk_only" env:"AFK_ONLY"`
	IdleTimeToAFK      float64 `yaml:"idle_time_to_afk" json:"idle_time_to_afk" env:"IDLE_TIME_TO_AFK"` // seconds, 0 disables
	TimerExpiry        bool    `yaml:"timer_expiry" json:"timer_expiry" env:"TIMER_EXPIRY"`
	TimerExpiryAFKOnly bool    `yaml:"timer_expiry_afk_only" json:"timer_expiry_afk_only" env:"TIMER_EXPIRY_AFK_ONLY"`
	ProwlAPIKey        string  `yaml:"prowl_api_key" json:"prowl_api_key" env:"PROWL_API_KEY"`

	// CharacterNames is a comma-separated list of the player's own names.
	CharacterNames string `yaml:"character_names" json:"character_names" env:"CHARACTER_NAMES"`

	AppName    string     `yaml:"app_name" json:"app_name" env:"APP_NAME"`
	CampPolicy CampPolicy `yaml:"camp_policy" json:"camp_policy" env:"CAMP_POLICY"`

	Triggers []trigger.Definition `yaml:"triggers" json:"triggers"`
}

// Default returns the configuration used when no file is given.
func Default() *Snapshot {
	s := &Snapshot{
		Push: Push{
			Enabled:     true,
			TimerExpiry: true,
			AppName:     DefaultAppName,
			CampPolicy:  CampSuppress,
			Triggers:    trigger.Defaults(),
		},
	}
	s.version = hashSnapshot(s)
	return s
}

// Version is a content hash of the snapshot; equal contents give equal versions.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Aliases returns the lower-cased, trimmed, non-empty names from CharacterNames.
func (p *Push) Aliases() []string {
	var out []string
	for _, name := range strings.Split(p.CharacterNames, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks field ranges. Trigger patterns are not compiled here;
// the trigger table skips invalid ones individually.
func (s *Snapshot) Validate() error {
	if s.Push.IdleTimeToAFK < 0 {
		return fmt.Errorf("push.idle_time_to_afk must be non-negative, got %v", s.Push.IdleTimeToAFK)
	}
	if !s.Push.CampPolicy.Valid() {
		return fmt.Errorf("push.camp_policy must be one of suppress, away, ignore; got %q", s.Push.CampPolicy)
	}
	return nil
}

// Parse decodes YAML data over the defaults. Unknown keys are rejected.
// Environment overrides are not applied.
func Parse(data []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("config file is empty")
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", len(data), MaxFileSize)
	}

	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the file at path, applies environment overrides and validates.
// Error messages never include the path.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", sanitizePathError(err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", sanitizePathError(err))
	}
	if !info.Mode().IsRegular() {
		return nil, errors.New("config file must be a regular file")
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", sanitizePathError(err))
	}

	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(s); err != nil {
		return nil, err
	}
	return s, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Snapshot, error) {
	s := Default()
	if err := ApplyEnv(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyEnv overlays EQPUSH_* variables onto s and recomputes its version.
func ApplyEnv(s *Snapshot) error {
	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return s.finish()
}

func (s *Snapshot) finish() error {
	if s.Push.AppName == "" {
		s.Push.AppName = DefaultAppName
	}
	if s.Push.CampPolicy == "" {
		s.Push.CampPolicy = CampSuppress
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.version = hashSnapshot(s)
	return nil
}

func hashSnapshot(s *Snapshot) uint64 {
	b, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// sanitizePathError drops the path from *os.PathError so errors can be shown to users.
func sanitizePathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}
