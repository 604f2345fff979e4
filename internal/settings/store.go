package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"veobatch/internal/domain"
)

// Key is the storage key the settings payload lives under.
const Key = "veoVideoSettings"

// FieldAspectRatio is the only user-editable field.
const FieldAspectRatio = "aspect_ratio"

// KV is a minimal string key/value persistence backend.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store keeps the current settings in memory and mirrors every change to a
// KV backend. Persistence is best effort: failures are logged and the
// in-memory value stays authoritative.
type Store struct {
	kv     KV
	logger zerolog.Logger

	mu      sync.RWMutex
	current domain.Settings
}

func NewStore(kv KV, logger zerolog.Logger) *Store {
	if kv == nil {
		kv = NewMemoryKV()
	}
	return &Store{kv: kv, logger: logger, current: domain.DefaultSettings()}
}

// Load reads the persisted settings. It never fails: anything missing,
// unreadable or malformed resolves to the defaults.
func (s *Store) Load(ctx context.Context) domain.Settings {
	loaded := s.read(ctx)
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return loaded
}

func (s *Store) read(ctx context.Context) domain.Settings {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings: load failed, using defaults")
		return domain.DefaultSettings()
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.DefaultSettings()
	}
	var stored domain.Settings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn().Err(err).Msg("settings: stored payload is corrupt, using defaults")
		return domain.DefaultSettings()
	}
	return stored.Normalize()
}

// Save replaces the current settings and persists them.
func (s *Store) Save(ctx context.Context, next domain.Settings) domain.Settings {
	next = next.Normalize()
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	s.persist(ctx, next)
	return next
}

func (s *Store) persist(ctx context.Context, value domain.Settings) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings: encode failed")
		return
	}
	if err := s.kv.Set(ctx, Key, string(raw)); err != nil {
		s.logger.Warn().Err(fmt.Errorf("%w: %v", domain.ErrPersistence, err)).Msg("settings: save failed")
	}
}

func (s *Store) Current() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update changes a single named field. Unknown fields and disallowed values
// leave the settings untouched.
func (s *Store) Update(ctx context.Context, field, value string) (domain.Settings, error) {
	return s.Apply(ctx, map[string]string{field: value})
}

// Apply validates every field before changing anything, then commits and
// persists once. On error the settings are untouched.
func (s *Store) Apply(ctx context.Context, fields map[string]string) (domain.Settings, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.Lock()
	next := s.current
	for _, name := range names {
		if err := setField(&next, name, fields[name]); err != nil {
			current := s.current
			s.mu.Unlock()
			return current, err
		}
	}
	s.current = next
	s.mu.Unlock()

	s.persist(ctx, next)
	return next, nil
}

func setField(dst *domain.Settings, field, value string) error {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldAspectRatio, "aspectratio":
		ratio, err := domain.ParseAspectRatio(value)
		if err != nil {
			return err
		}
		dst.AspectRatio = ratio
		return nil
	default:
		return fmt.Errorf("field %q: %w", field, domain.ErrUnknownSetting)
	}
}
