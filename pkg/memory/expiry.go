package memory

// sessionStale is the single age check for session records. Session memory
// expires on absolute wall-clock age regardless of cache TTL; behavioral and
// profile records never expire.
func (s *Store) sessionStale(m SessionMemory) bool {
	if m.LastInteraction.IsZero() {
		return false
	}
	return s.now().Sub(m.LastInteraction) > s.cfg.SessionMaxAge
}
