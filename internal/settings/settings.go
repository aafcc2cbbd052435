// Package settings keeps user preferences as stored overrides meshed over defaults.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/pkg/mesh"
	"github.com/gavinmorrow/hunter-extension-sub000/repository"
)

// Settings is the effective configuration of the calendar view.
type Settings struct {
	WeekStart    string `json:"weekStart"`
	ShowWeekends bool   `json:"showWeekends"`
	// RefreshInterval is read at startup.
	RefreshInterval string `json:"refreshInterval"`
	// ClassColors overrides the host colour of a class, keyed by class id.
	ClassColors map[string]string `json:"classColors"`
}

// Weekday parses WeekStart.
func (s Settings) Weekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s.WeekStart, d.String()) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s.WeekStart)
}

// Interval parses RefreshInterval.
func (s Settings) Interval() (time.Duration, error) {
	return time.ParseDuration(s.RefreshInterval)
}

// HiddenDays lists the weekday columns shown only while something is due on them.
func (s Settings) HiddenDays() []time.Weekday {
	if s.ShowWeekends {
		return nil
	}
	return []time.Weekday{time.Saturday, time.Sunday}
}

// Colors returns ClassColors keyed by numeric class id.
func (s Settings) Colors() map[int64]string {
	out := make(map[int64]string, len(s.ClassColors))
	for k, v := range s.ClassColors {
		if id, err := strconv.ParseInt(k, 10, 64); err == nil {
			out[id] = v
		}
	}
	return out
}

// Validate rejects settings the view cannot honour.
func (s Settings) Validate() error {
	if _, err := s.Weekday(); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "weekStart", err)
	}
	d, err := s.Interval()
	if err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "refreshInterval", err)
	}
	if d < time.Second {
		return domain.NewError(domain.ErrCodeInvalid, "refreshInterval must be at least 1s")
	}
	for k := range s.ClassColors {
		if _, err := strconv.ParseInt(k, 10, 64); err != nil {
			return domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("classColors key %q is not a class id", k))
		}
	}
	return nil
}

// Service serves the effective settings and persists overrides.
type Service struct {
	repo     repository.SettingsRepository
	defaults map[string]any
	logger   *zap.Logger

	mu        sync.RWMutex
	overrides map[string]any
	current   Settings
	listeners []func(Settings)
}

// NewService builds a Service with no overrides loaded.
func NewService(repo repository.SettingsRepository, defaults Settings, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	base, err := toMap(defaults)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:      repo,
		defaults:  base,
		logger:    logger.Named("settings"),
		overrides: map[string]any{},
		current:   defaults,
	}, nil
}

// Load reads the stored overrides. Invalid stored overrides are discarded.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	stored, err := s.repo.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if stored == nil {
		stored = map[string]any{}
	}
	effective, err := s.resolve(stored)
	if err != nil {
		s.logger.Warn("discarding stored settings", zap.Error(err))
		return nil
	}
	s.mu.Lock()
	s.overrides = stored
	s.current = effective
	s.mu.Unlock()
	return nil
}

// Get returns the effective settings.
func (s *Service) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// Overrides returns a copy of the stored overrides.
func (s *Service) Overrides() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mesh.CloneMap(s.overrides)
}

// Patch meshes patch over the stored overrides. A null value resets that key to its
// default. Listeners run after the new settings are stored.
func (s *Service) Patch(ctx context.Context, patch map[string]any) (Settings, error) {
	s.mu.Lock()
	next := prune(mesh.Mesh(s.overrides, patch))
	effective, err := s.resolve(next)
	if err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	if s.repo != nil {
		if err := s.repo.SaveSettings(ctx, next); err != nil {
			s.mu.Unlock()
			return Settings{}, err
		}
	}
	s.overrides = next
	s.current = effective
	listeners := append([]func(Settings){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(clone(effective))
	}
	return clone(effective), nil
}

// OnChange registers fn to run after every successful Patch.
func (s *Service) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) resolve(overrides map[string]any) (Settings, error) {
	merged := mesh.Mesh(s.defaults, overrides)
	var out Settings
	raw, err := json.Marshal(merged)
	if err != nil {
		return Settings{}, domain.WrapError(domain.ErrCodeInvalid, "encode settings", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, domain.WrapError(domain.ErrCodeInvalid, "decode settings", err)
	}
	if err := out.Validate(); err != nil {
		return Settings{}, err
	}
	return out, nil
}

func toMap(s Settings) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// prune drops null overrides at every level, and maps left empty by it.
func prune(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			if nested := prune(val); len(nested) > 0 {
				out[k] = nested
			}
		default:
			out[k] = v
		}
	}
	return out
}

func clone(s Settings) Settings {
	if s.ClassColors != nil {
		colors := make(map[string]string, len(s.ClassColors))
		for k, v := range s.ClassColors {
			colors[k] = v
		}
		s.ClassColors = colors
	}
	return s
}
