package memory

import (
	"strings"
	"time"
)

// DifficultyLevel tracks how far a user has progressed inside a domain.
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

// ProjectStatus values for ongoing project records.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
)

// SessionMemory is the short-term tier: one record per (user, session).
// It logically expires after a fixed absolute age even while persisted.
type SessionMemory struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	RecentMessages  []string  `json:"recent_messages"`
	Topics          []string  `json:"topics"`
	LastInteraction time.Time `json:"last_interaction"`
}

// LearningProgress is per-domain study state inside BehavioralMemory.
type LearningProgress struct {
	CurrentFocus    []string        `json:"current_focus"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	LastSessionAt   time.Time       `json:"last_session_at"`
}

// ProjectRecord tracks one ongoing user project.
type ProjectRecord struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Domain       string        `json:"domain"`
	Status       ProjectStatus `json:"status"`
	KeyPoints    []string      `json:"key_points"`
	LastActivity time.Time     `json:"last_activity"`
}

// BehavioralMemory is the medium-term tier: one record per user.
// TopicOrder preserves first-seen order so frequency ties resolve
// deterministically during synthesis.
type BehavioralMemory struct {
	UserID           string                      `json:"user_id"`
	TopicFrequency   map[string]int              `json:"topic_frequency"`
	TopicOrder       []string                    `json:"topic_order"`
	LearningProgress map[string]LearningProgress `json:"learning_progress"`
	OngoingProjects  []ProjectRecord             `json:"ongoing_projects"`
	LastUpdated      time.Time                   `json:"last_updated"`
}

// UserProfile holds explicit presentation preferences.
type UserProfile struct {
	Name               string `json:"name"`
	CommunicationStyle string `json:"communication_style"`
	LearningStyle      string `json:"learning_style"`
	ResponseLength     string `json:"response_length"`
}

// Preferences holds account-level settings.
type Preferences struct {
	Language             string `json:"language"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	MemoryEnabled        bool   `json:"memory_enabled"`
	RetentionDays        int    `json:"retention_days"`
}

// ProfileMemory is the long-term tier: one record per user, created once and
// mutated only by explicit profile updates or a full wipe.
type ProfileMemory struct {
	UserID         string            `json:"user_id"`
	Profile        UserProfile       `json:"profile"`
	Preferences    Preferences       `json:"preferences"`
	Interests      []string          `json:"interests"`
	KnowledgeLevel map[string]string `json:"knowledge_level"`
	Goals          []string          `json:"goals"`
	CreatedAt      time.Time         `json:"created_at"`
	LastUpdated    time.Time         `json:"last_updated"`
}

// ProfileUpdate is a partial profile mutation; nil fields are left untouched.
type ProfileUpdate struct {
	Name                 *string           `json:"name,omitempty"`
	CommunicationStyle   *string           `json:"communication_style,omitempty"`
	LearningStyle        *string           `json:"learning_style,omitempty"`
	ResponseLength       *string           `json:"response_length,omitempty"`
	Language             *string           `json:"language,omitempty"`
	NotificationsEnabled *bool             `json:"notifications_enabled,omitempty"`
	MemoryEnabled        *bool             `json:"memory_enabled,omitempty"`
	RetentionDays        *int              `json:"retention_days,omitempty"`
	Interests            []string          `json:"interests,omitempty"`
	Goals                []string          `json:"goals,omitempty"`
	KnowledgeLevel       map[string]string `json:"knowledge_level,omitempty"`
}

// ProjectDraft is the caller-supplied part of a new project record.
type ProjectDraft struct {
	Title     string   `json:"title"`
	Domain    string   `json:"domain"`
	KeyPoints []string `json:"key_points"`
}

func newSessionMemory(sessionID, userID string, now time.Time) SessionMemory {
	return SessionMemory{
		SessionID:       sessionID,
		UserID:          userID,
		RecentMessages:  []string{},
		Topics:          []string{},
		LastInteraction: now,
	}
}

func newBehavioralMemory(userID string, now time.Time) BehavioralMemory {
	return BehavioralMemory{
		UserID:           userID,
		TopicFrequency:   map[string]int{},
		TopicOrder:       []string{},
		LearningProgress: map[string]LearningProgress{},
		OngoingProjects:  []ProjectRecord{},
		LastUpdated:      now,
	}
}

func newProfileMemory(userID, name string, now time.Time) ProfileMemory {
	return ProfileMemory{
		UserID: userID,
		Profile: UserProfile{
			Name:               strings.TrimSpace(name),
			CommunicationStyle: "friendly",
			LearningStyle:      "practical",
			ResponseLength:     "medium",
		},
		Preferences: Preferences{
			Language:             "pt-BR",
			NotificationsEnabled: true,
			MemoryEnabled:        true,
			RetentionDays:        90,
		},
		Interests:      []string{},
		KnowledgeLevel: map[string]string{},
		Goals:          []string{},
		CreatedAt:      now,
		LastUpdated:    now,
	}
}

func normalizeBehavioral(m *BehavioralMemory, userID string) {
	if strings.TrimSpace(m.UserID) == "" {
		m.UserID = userID
	}
	if m.TopicFrequency == nil {
		m.TopicFrequency = map[string]int{}
	}
	if m.TopicOrder == nil {
		m.TopicOrder = []string{}
	}
	if m.LearningProgress == nil {
		m.LearningProgress = map[string]LearningProgress{}
	}
	if m.OngoingProjects == nil {
		m.OngoingProjects = []ProjectRecord{}
	}
}

func normalizeProfile(m *ProfileMemory, userID string) {
	if strings.TrimSpace(m.UserID) == "" {
		m.UserID = userID
	}
	if m.Interests == nil {
		m.Interests = []string{}
	}
	if m.KnowledgeLevel == nil {
		m.KnowledgeLevel = map[string]string{}
	}
	if m.Goals == nil {
		m.Goals = []string{}
	}
}

func normalizeSession(m *SessionMemory, sessionID, userID string) {
	if strings.TrimSpace(m.SessionID) == "" {
		m.SessionID = sessionID
	}
	if strings.TrimSpace(m.UserID) == "" {
		m.UserID = userID
	}
	if m.RecentMessages == nil {
		m.RecentMessages = []string{}
	}
	if m.Topics == nil {
		m.Topics = []string{}
	}
}
