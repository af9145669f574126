// Package synth renders the personalized instruction block from the three
// memory tiers. Synthesize is a pure function: identical inputs always
// produce the identical string.
package synth

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/dotsetgreg/chatmind/pkg/memory"
)

const (
	maxFrequentTopics  = 3
	maxRecentMessages  = 3
	maxSessionContext  = 200
	maxProjectMentions = 2
)

// Synthesize builds advisory prose for the system instruction. Clauses are
// appended only when their source data is non-empty, in a fixed order:
// name, domain knowledge level, style preferences, frequent topics, session
// context, active projects. The output contains no control characters so it
// can be concatenated into a larger instruction safely.
func Synthesize(session memory.SessionMemory, behavioral memory.BehavioralMemory, profile memory.ProfileMemory, domain string) string {
	clauses := []string{}

	if name := strings.TrimSpace(profile.Profile.Name); name != "" {
		clauses = append(clauses, fmt.Sprintf("The user's name is %s", sanitize(name)))
	}

	if level, ok := profile.KnowledgeLevel[domain]; ok && strings.TrimSpace(level) != "" {
		clauses = append(clauses, fmt.Sprintf("Their knowledge level in %s is %s", sanitize(domain), sanitize(level)))
	}

	if style := styleClause(profile.Profile); style != "" {
		clauses = append(clauses, style)
	}

	if topics := topTopics(behavioral, maxFrequentTopics); len(topics) > 0 {
		clauses = append(clauses, "Topics of frequent interest: "+sanitize(strings.Join(topics, ", ")))
	}

	if ctx := sessionContext(session); ctx != "" {
		clauses = append(clauses, "Session context: "+ctx)
	}

	if projects := activeProjects(behavioral, domain, maxProjectMentions); len(projects) > 0 {
		clauses = append(clauses, "Ongoing projects: "+sanitize(strings.Join(projects, ", ")))
	}

	if len(clauses) == 0 {
		return ""
	}
	return strings.Join(clauses, ". ") + "."
}

func styleClause(p memory.UserProfile) string {
	parts := []string{}
	if s := strings.TrimSpace(p.CommunicationStyle); s != "" {
		parts = append(parts, "a "+sanitize(s)+" communication style")
	}
	if s := strings.TrimSpace(p.LearningStyle); s != "" {
		parts = append(parts, "a "+sanitize(s)+" learning style")
	}
	if s := strings.TrimSpace(p.ResponseLength); s != "" {
		parts = append(parts, sanitize(s)+"-length responses")
	}
	if len(parts) == 0 {
		return ""
	}
	return "They prefer " + strings.Join(parts, " and ")
}

// topTopics returns up to n topics sorted by descending frequency; ties
// resolve to the first-seen topic using the behavioral insertion order.
func topTopics(b memory.BehavioralMemory, n int) []string {
	type ranked struct {
		topic string
		count int
		order int
	}

	position := map[string]int{}
	for i, topic := range b.TopicOrder {
		position[topic] = i
	}

	items := make([]ranked, 0, len(b.TopicFrequency))
	for topic, count := range b.TopicFrequency {
		pos, ok := position[topic]
		if !ok {
			// Records written before order tracking sort last among ties.
			pos = len(b.TopicOrder) + len(items)
		}
		items = append(items, ranked{topic: topic, count: count, order: pos})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].order < items[j].order
	})

	out := []string{}
	for i := 0; i < len(items) && i < n; i++ {
		out = append(out, items[i].topic)
	}
	return out
}

func sessionContext(s memory.SessionMemory) string {
	if len(s.RecentMessages) == 0 {
		return ""
	}
	recent := s.RecentMessages
	if len(recent) > maxRecentMessages {
		recent = recent[len(recent)-maxRecentMessages:]
	}
	joined := sanitize(strings.Join(recent, " "))
	runes := []rune(joined)
	if len(runes) > maxSessionContext {
		joined = string(runes[:maxSessionContext])
	}
	return strings.TrimSpace(joined)
}

func activeProjects(b memory.BehavioralMemory, domain string, n int) []string {
	out := []string{}
	for _, p := range b.OngoingProjects {
		if p.Status != memory.ProjectActive || p.Domain != domain {
			continue
		}
		out = append(out, p.Title)
		if len(out) == n {
			break
		}
	}
	return out
}

// sanitize collapses newlines and strips control characters so the output
// stays plain sentences that cannot fake instruction boundaries downstream.
func sanitize(in string) string {
	var b strings.Builder
	b.Grow(len(in))
	lastSpace := false
	for _, r := range in {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		if unicode.IsControl(r) {
			continue
		}
		if r == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
		} else {
			lastSpace = false
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
