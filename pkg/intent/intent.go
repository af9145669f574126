// Package intent detects special conversational intents ahead of any model
// call. All classifiers are pure predicates over the raw message text backed
// by static keyword and pattern tables covering Portuguese and English forms.
package intent

import (
	"regexp"
	"strings"
)

// Intent identifies the matched short-circuit category.
type Intent string

const (
	IntentNone          Intent = "none"
	IntentInjection     Intent = "injection"
	IntentCurrentEvents Intent = "current_events"
	IntentAuthMethod    Intent = "auth_method"
	IntentOrigin        Intent = "origin"
)

// Injection patterns cover impersonation, instruction override, jailbreak
// mode requests, and system-prompt exfiltration. Security intents must win
// over every other classification, so these are checked first in Classify.
var injectionRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(sou|eu sou)\s+(o|a)\s+(criador|criadora|dono|dona|desenvolvedor|desenvolvedora|administrador|administradora)\b`),
	regexp.MustCompile(`(?i)\bi\s*(am|'m)\s+(your|the)\s+(creator|owner|developer|admin|administrator)\b`),
	regexp.MustCompile(`(?i)\b(ignore|ignora|esque[çc]a|desconsidere|forget|disregard)\b.{0,40}\b(instru[çc][õo]es|instructions|regras|rules|prompt)\b`),
	regexp.MustCompile(`(?i)\b(developer|dev|god|jailbreak|dan)\s+mode\b`),
	regexp.MustCompile(`(?i)\bmodo\s+(desenvolvedor|dev|irrestrito|sem\s+restri[çc][õo]es)\b`),
	regexp.MustCompile(`(?i)\b(reveal|show|print|repeat|mostre|revele|repita|exiba)\b.{0,40}\b(system\s+prompt|prompt\s+do\s+sistema|hidden\s+instructions|instru[çc][õo]es\s+ocultas|initial\s+instructions)\b`),
	regexp.MustCompile(`(?i)\b(pretend|finja|aja como se)\b.{0,40}\b(no\s+rules|sem\s+regras|unrestricted|sem\s+filtros?|no\s+filters?)\b`),
	regexp.MustCompile(`(?i)\b(override|desative|disable|bypass)\b.{0,30}\b(safety|seguran[çc]a|filtros?|filters?|guardrails?)\b`),
}

var currentEventsKeywords = []string{
	"notícia", "noticia", "notícias", "noticias", "jornal", "manchete",
	"atualidades", "acontecendo no mundo", "acontecendo hoje",
	"news", "headline", "headlines", "current events", "current affairs",
	"what's happening", "whats happening", "latest in", "aconteceu hoje",
}

var authMethodKeywords = []string{
	"login com google", "entrar com google", "login com facebook",
	"entrar com facebook", "login com apple", "entrar com apple",
	"login social", "conta google", "oauth",
	"sign in with google", "login with google", "sign in with facebook",
	"login with facebook", "sign in with apple", "login with apple",
	"social login", "third-party login", "third party login",
}

var originKeywords = []string{
	"quem te criou", "quem criou você", "quem criou voce", "quem te fez",
	"quem desenvolveu você", "quem desenvolveu voce", "quem te programou",
	"quem é seu criador", "quem e seu criador", "como você foi feito",
	"como voce foi feito",
	"who made you", "who created you", "who built you", "who developed you",
	"who is your creator", "how were you made", "how were you built",
}

// IsInjectionAttempt reports whether the message matches a known
// impersonation, instruction-override, or jailbreak pattern.
func IsInjectionAttempt(text string) bool {
	for _, re := range injectionRegexes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsCurrentEventsQuery reports whether the message asks about news or
// current affairs.
func IsCurrentEventsQuery(text string) bool {
	return containsAny(text, currentEventsKeywords)
}

// IsAboutAuthMethod reports whether the message asks about third-party
// login options.
func IsAboutAuthMethod(text string) bool {
	return containsAny(text, authMethodKeywords)
}

// IsAboutOrigin reports whether the message asks who created the system.
func IsAboutOrigin(text string) bool {
	return containsAny(text, originKeywords)
}

// Classify applies the classifiers in fixed precedence order and returns the
// first match. Injection detection pre-empts everything else; a message that
// matches both an injection pattern and a news keyword classifies as
// injection.
func Classify(text string) Intent {
	switch {
	case IsInjectionAttempt(text):
		return IntentInjection
	case IsCurrentEventsQuery(text):
		return IntentCurrentEvents
	case IsAboutAuthMethod(text):
		return IntentAuthMethod
	case IsAboutOrigin(text):
		return IntentOrigin
	default:
		return IntentNone
	}
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
