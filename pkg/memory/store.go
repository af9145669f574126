// Package memory implements the tiered memory store: session (short-term),
// behavioral (medium-term) and profile (long-term) records layered on the
// persistence port with a TTL cache shadow.
//
// Read path is cache-aside, write path is write-through (persistence first,
// cache second). Getters never fail: persistence errors degrade to in-memory
// zero-value records and are logged, because memory is an enhancement of the
// reply, not a correctness requirement.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/oklog/ulid/v2"

	"github.com/dotsetgreg/chatmind/pkg/cache"
	"github.com/dotsetgreg/chatmind/pkg/logger"
	"github.com/dotsetgreg/chatmind/pkg/persistence"
)

const (
	sessionKeyPrefix    = "sess:"
	behavioralKeyPrefix = "behav:"
	profileKeyPrefix    = "prof:"
)

// Config tunes the memory subsystem.
type Config struct {
	SessionTTL    time.Duration // cache shadow TTL for session records
	BehavioralTTL time.Duration
	ProfileTTL    time.Duration
	SessionMaxAge time.Duration // absolute wall-clock expiry of session rows
	MaxRecent     int           // recentMessages bound
	MaxTopics     int           // topics bound
	SweepInterval time.Duration // cache janitor period
	// RetentionSchedule is a cron expression for purging expired session
	// rows from persistence. Empty disables the sweep.
	RetentionSchedule string
}

func (c *Config) applyDefaults() {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 5 * time.Minute
	}
	if c.BehavioralTTL <= 0 {
		c.BehavioralTTL = 10 * time.Minute
	}
	if c.ProfileTTL <= 0 {
		c.ProfileTTL = 30 * time.Minute
	}
	if c.SessionMaxAge <= 0 {
		c.SessionMaxAge = 24 * time.Hour
	}
	if c.MaxRecent <= 0 {
		c.MaxRecent = 10
	}
	if c.MaxTopics <= 0 {
		c.MaxTopics = 5
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
}

// Store owns the three memory tiers.
type Store struct {
	cfg  Config
	port persistence.Port
	log  *bolt.Logger
	now  func() time.Time

	sessions  *cache.Cache[SessionMemory]
	behaviors *cache.Cache[BehavioralMemory]
	profiles  *cache.Cache[ProfileMemory]

	// Per-key mutexes serialize read-modify-write cycles on the same
	// record. Callers on distinct keys never contend.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStore builds the tiered store on top of port. The cache janitors and,
// when configured, the retention sweeper start immediately.
func NewStore(cfg Config, port persistence.Port, log *bolt.Logger) (*Store, error) {
	if port == nil {
		return nil, fmt.Errorf("persistence port is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	cfg.applyDefaults()

	s := &Store{
		cfg:       cfg,
		port:      port,
		log:       log,
		now:       time.Now,
		sessions:  cache.New[SessionMemory](cfg.SessionTTL),
		behaviors: cache.New[BehavioralMemory](cfg.BehavioralTTL),
		profiles:  cache.New[ProfileMemory](cfg.ProfileTTL),
		locks:     map[string]*sync.Mutex{},
		stopCh:    make(chan struct{}),
	}
	s.sessions.StartJanitor(cfg.SweepInterval)
	s.behaviors.StartJanitor(cfg.SweepInterval)
	s.profiles.StartJanitor(cfg.SweepInterval)

	if strings.TrimSpace(cfg.RetentionSchedule) != "" {
		s.wg.Add(1)
		go s.runRetention()
	}
	return s, nil
}

// Close stops background workers. The persistence port is owned by the
// caller and is not closed here.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.sessions.Close()
		s.behaviors.Close()
		s.profiles.Close()
	})
}

func sessionKey(userID, sessionID string) string {
	return sessionKeyPrefix + userID + ":" + sessionID
}

func behavioralKey(userID string) string { return behavioralKeyPrefix + userID }

func profileKey(userID string) string { return profileKeyPrefix + userID }

func (s *Store) lockFor(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	return mu
}

// GetSession returns the session record, creating an empty one on first
// access or when the persisted record has outlived its absolute age.
// It never fails; persistence errors degrade to a zero-value record.
func (s *Store) GetSession(ctx context.Context, sessionID, userID string) SessionMemory {
	key := sessionKey(userID, sessionID)
	if m, ok := s.sessions.Get(key); ok {
		if !s.sessionStale(m) {
			return m
		}
		s.sessions.Delete(key)
	}

	raw, found, err := s.port.Get(ctx, key)
	if err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("persistence read failed; serving zero-value session record")
		m := newSessionMemory(sessionID, userID, s.now())
		s.sessions.SetTTL(key, m, s.cfg.SessionTTL)
		return m
	}

	if found {
		var m SessionMemory
		if err := json.Unmarshal(raw, &m); err != nil {
			s.log.Warn().Str("key", key).Err(err).Msg("corrupt session record; starting fresh")
		} else {
			normalizeSession(&m, sessionID, userID)
			if !s.sessionStale(m) {
				s.sessions.SetTTL(key, m, s.cfg.SessionTTL)
				return m
			}
			s.log.Info().Str("key", key).Msg("session record past absolute age; discarding")
		}
	}

	m := newSessionMemory(sessionID, userID, s.now())
	s.persist(ctx, key, m)
	s.sessions.SetTTL(key, m, s.cfg.SessionTTL)
	return m
}

// SaveSession stamps lastInteraction and writes through. On persistence
// failure the cache is still updated so the session stays usable in-process;
// the returned error reports the lost durability.
func (s *Store) SaveSession(ctx context.Context, m SessionMemory) error {
	normalizeSession(&m, m.SessionID, m.UserID)
	m.LastInteraction = s.now()
	key := sessionKey(m.UserID, m.SessionID)
	err := s.persist(ctx, key, m)
	s.sessions.SetTTL(key, m, s.cfg.SessionTTL)
	return err
}

// AppendContext appends text (and optionally topic) to the session record,
// truncating to the most recent entries. Topic is ignored when empty or
// already present.
func (s *Store) AppendContext(ctx context.Context, sessionID, userID, text, topic string) error {
	key := sessionKey(userID, sessionID)
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	m := s.GetSession(ctx, sessionID, userID)
	m.RecentMessages = appendBounded(m.RecentMessages, text, s.cfg.MaxRecent)
	topic = strings.TrimSpace(topic)
	if topic != "" && !contains(m.Topics, topic) {
		m.Topics = appendBounded(m.Topics, topic, s.cfg.MaxTopics)
	}
	return s.SaveSession(ctx, m)
}

// GetBehavioral returns the per-user behavioral record, creating it on first
// access. Never fails.
func (s *Store) GetBehavioral(ctx context.Context, userID string) BehavioralMemory {
	key := behavioralKey(userID)
	if m, ok := s.behaviors.Get(key); ok {
		return m
	}

	raw, found, err := s.port.Get(ctx, key)
	if err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("persistence read failed; serving zero-value behavioral record")
		m := newBehavioralMemory(userID, s.now())
		s.behaviors.SetTTL(key, m, s.cfg.BehavioralTTL)
		return m
	}
	if found {
		var m BehavioralMemory
		if err := json.Unmarshal(raw, &m); err == nil {
			normalizeBehavioral(&m, userID)
			s.behaviors.SetTTL(key, m, s.cfg.BehavioralTTL)
			return m
		}
		s.log.Warn().Str("key", key).Msg("corrupt behavioral record; starting fresh")
	}

	m := newBehavioralMemory(userID, s.now())
	s.persist(ctx, key, m)
	s.behaviors.SetTTL(key, m, s.cfg.BehavioralTTL)
	return m
}

// SaveBehavioral stamps lastUpdated and writes through.
func (s *Store) SaveBehavioral(ctx context.Context, m BehavioralMemory) error {
	normalizeBehavioral(&m, m.UserID)
	m.LastUpdated = s.now()
	key := behavioralKey(m.UserID)
	err := s.persist(ctx, key, m)
	s.behaviors.SetTTL(key, m, s.cfg.BehavioralTTL)
	return err
}

// RecordTopic increments the topic counter and refreshes the domain's
// learning progress focus.
func (s *Store) RecordTopic(ctx context.Context, userID, topic, domain string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	key := behavioralKey(userID)
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	m := s.GetBehavioral(ctx, userID)
	if _, seen := m.TopicFrequency[topic]; !seen {
		m.TopicOrder = append(m.TopicOrder, topic)
	}
	m.TopicFrequency[topic]++

	domain = strings.TrimSpace(domain)
	if domain != "" {
		lp := m.LearningProgress[domain]
		if lp.DifficultyLevel == "" {
			lp.DifficultyLevel = DifficultyBeginner
		}
		if !contains(lp.CurrentFocus, topic) {
			lp.CurrentFocus = appendBounded(lp.CurrentFocus, topic, 5)
		}
		lp.LastSessionAt = s.now()
		m.LearningProgress[domain] = lp
	}
	return s.SaveBehavioral(ctx, m)
}

// AddProject appends a new project record and returns its id.
func (s *Store) AddProject(ctx context.Context, userID string, draft ProjectDraft) (string, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return "", fmt.Errorf("project title is required")
	}
	key := behavioralKey(userID)
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	m := s.GetBehavioral(ctx, userID)
	id := ulid.Make().String()
	m.OngoingProjects = append(m.OngoingProjects, ProjectRecord{
		ID:           id,
		Title:        strings.TrimSpace(draft.Title),
		Domain:       strings.TrimSpace(draft.Domain),
		Status:       ProjectActive,
		KeyPoints:    append([]string{}, draft.KeyPoints...),
		LastActivity: s.now(),
	})
	if err := s.SaveBehavioral(ctx, m); err != nil {
		return id, err
	}
	return id, nil
}

// GetOrInitProfile returns the user's profile, creating it exactly once.
// A second call with existing data returns the stored record unchanged.
func (s *Store) GetOrInitProfile(ctx context.Context, userID, defaultName string) ProfileMemory {
	key := profileKey(userID)
	if m, ok := s.profiles.Get(key); ok {
		return m
	}

	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	raw, found, err := s.port.Get(ctx, key)
	if err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("persistence read failed; serving zero-value profile record")
		m := newProfileMemory(userID, defaultName, s.now())
		s.profiles.SetTTL(key, m, s.cfg.ProfileTTL)
		return m
	}
	if found {
		var m ProfileMemory
		if err := json.Unmarshal(raw, &m); err == nil {
			normalizeProfile(&m, userID)
			s.profiles.SetTTL(key, m, s.cfg.ProfileTTL)
			return m
		}
		s.log.Warn().Str("key", key).Msg("corrupt profile record; reinitializing")
	}

	m := newProfileMemory(userID, defaultName, s.now())
	s.persist(ctx, key, m)
	s.profiles.SetTTL(key, m, s.cfg.ProfileTTL)
	return m
}

// UpdateProfile shallow-merges the non-nil fields of up and bumps
// lastUpdated.
func (s *Store) UpdateProfile(ctx context.Context, userID string, up ProfileUpdate) error {
	key := profileKey(userID)
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	m := s.GetOrInitProfileLocked(ctx, userID)
	if up.Name != nil {
		m.Profile.Name = strings.TrimSpace(*up.Name)
	}
	if up.CommunicationStyle != nil {
		m.Profile.CommunicationStyle = *up.CommunicationStyle
	}
	if up.LearningStyle != nil {
		m.Profile.LearningStyle = *up.LearningStyle
	}
	if up.ResponseLength != nil {
		m.Profile.ResponseLength = *up.ResponseLength
	}
	if up.Language != nil {
		m.Preferences.Language = *up.Language
	}
	if up.NotificationsEnabled != nil {
		m.Preferences.NotificationsEnabled = *up.NotificationsEnabled
	}
	if up.MemoryEnabled != nil {
		m.Preferences.MemoryEnabled = *up.MemoryEnabled
	}
	if up.RetentionDays != nil {
		m.Preferences.RetentionDays = *up.RetentionDays
	}
	if up.Interests != nil {
		m.Interests = append([]string{}, up.Interests...)
	}
	if up.Goals != nil {
		m.Goals = append([]string{}, up.Goals...)
	}
	for domain, level := range up.KnowledgeLevel {
		m.KnowledgeLevel[domain] = level
	}
	m.LastUpdated = s.now()

	err := s.persist(ctx, key, m)
	s.profiles.SetTTL(key, m, s.cfg.ProfileTTL)
	return err
}

// GetOrInitProfileLocked is the lock-free variant for callers already
// holding the profile key lock.
func (s *Store) GetOrInitProfileLocked(ctx context.Context, userID string) ProfileMemory {
	key := profileKey(userID)
	if m, ok := s.profiles.Get(key); ok {
		return m
	}
	raw, found, err := s.port.Get(ctx, key)
	if err == nil && found {
		var m ProfileMemory
		if uerr := json.Unmarshal(raw, &m); uerr == nil {
			normalizeProfile(&m, userID)
			return m
		}
	}
	if err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("persistence read failed; serving zero-value profile record")
	}
	return newProfileMemory(userID, "", s.now())
}

// ClearForUser wipes all three tiers for the user. Partial failures are
// reported and the caches of successfully deleted tiers are evicted, so a
// later get never resurrects deleted data.
func (s *Store) ClearForUser(ctx context.Context, userID string) error {
	var errs []error

	pk := profileKey(userID)
	if err := s.port.Delete(ctx, pk); err != nil {
		errs = append(errs, fmt.Errorf("delete profile: %w", err))
	} else {
		s.profiles.Delete(pk)
	}

	bk := behavioralKey(userID)
	if err := s.port.Delete(ctx, bk); err != nil {
		errs = append(errs, fmt.Errorf("delete behavioral: %w", err))
	} else {
		s.behaviors.Delete(bk)
	}

	prefix := sessionKeyPrefix + userID + ":"
	keys, err := s.port.ListKeysWithPrefix(ctx, prefix)
	if err != nil {
		errs = append(errs, fmt.Errorf("enumerate sessions: %w", err))
	}
	for _, key := range keys {
		if err := s.port.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete session %s: %w", key, err))
			continue
		}
		s.sessions.Delete(key)
	}

	if len(errs) > 0 {
		return fmt.Errorf("clear user %s: %w", userID, errors.Join(errs...))
	}
	s.log.Info().Str("user_id", userID).Int("sessions", len(keys)).Msg("user memory wiped")
	return nil
}

// persist marshals and writes a record, logging the degraded-durability
// condition when the port fails.
func (s *Store) persist(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	if err := s.port.Set(ctx, key, raw); err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("persistence write failed; record held in cache only, durability lost")
		return fmt.Errorf("persist record %s: %w", key, err)
	}
	return nil
}

func appendBounded(items []string, item string, max int) []string {
	items = append(items, item)
	if len(items) > max {
		items = items[len(items)-max:]
	}
	return items
}

func contains(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}
