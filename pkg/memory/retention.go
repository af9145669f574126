package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adhocore/gronx"
)

// runRetention purges expired session rows from persistence on the
// configured cron schedule. The sweep is independent of request traffic;
// reads already treat stale rows as absent, this just reclaims storage.
func (s *Store) runRetention() {
	defer s.wg.Done()

	gron := gronx.New()
	if !gron.IsValid(s.cfg.RetentionSchedule) {
		s.log.Error().Str("schedule", s.cfg.RetentionSchedule).Msg("invalid retention cron expression; sweep disabled")
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case tick := <-ticker.C:
			due, err := gron.IsDue(s.cfg.RetentionSchedule, tick)
			if err != nil || !due {
				continue
			}
			removed, err := s.SweepExpiredSessions(context.Background())
			if err != nil {
				s.log.Warn().Err(err).Msg("session retention sweep failed")
				continue
			}
			if removed > 0 {
				s.log.Info().Int("removed", removed).Msg("session retention sweep completed")
			}
		}
	}
}

// SweepExpiredSessions deletes every persisted session record past its
// absolute age and returns how many were removed.
func (s *Store) SweepExpiredSessions(ctx context.Context) (int, error) {
	keys, err := s.port.ListKeysWithPrefix(ctx, sessionKeyPrefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		raw, found, err := s.port.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		var m SessionMemory
		if err := json.Unmarshal(raw, &m); err != nil {
			// Unreadable rows are reclaimed too.
			if derr := s.port.Delete(ctx, key); derr == nil {
				s.sessions.Delete(key)
				removed++
			}
			continue
		}
		if !s.sessionStale(m) {
			continue
		}
		if err := s.port.Delete(ctx, key); err != nil {
			s.log.Warn().Str("key", key).Err(err).Msg("failed to purge expired session record")
			continue
		}
		s.sessions.Delete(key)
		removed++
	}
	return removed, nil
}
