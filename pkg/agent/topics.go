package agent

import (
	"strings"
	"unicode"
)

// Stopwords cover the Portuguese and English function words that dominate
// short learner questions. Anything left after filtering is treated as a
// topic candidate.
var topicStopwords = map[string]struct{}{
	// pt
	"o": {}, "a": {}, "os": {}, "as": {}, "um": {}, "uma": {}, "uns": {}, "umas": {},
	"de": {}, "do": {}, "da": {}, "dos": {}, "das": {}, "em": {}, "no": {}, "na": {},
	"nos": {}, "nas": {}, "por": {}, "para": {}, "com": {}, "sem": {}, "sobre": {},
	"que": {}, "qual": {}, "quais": {}, "quem": {}, "quando": {}, "onde": {}, "como": {},
	"porque": {}, "é": {}, "são": {}, "ser": {}, "estou": {}, "está": {}, "tem": {},
	"tenho": {}, "faz": {}, "fazer": {}, "posso": {}, "pode": {}, "quero": {}, "queria": {},
	"me": {}, "te": {}, "se": {}, "eu": {}, "você": {}, "voce": {}, "ele": {}, "ela": {},
	"isso": {}, "isto": {}, "esse": {}, "essa": {}, "este": {}, "esta": {}, "meu": {},
	"minha": {}, "seu": {}, "sua": {}, "mais": {}, "muito": {}, "bem": {}, "já": {},
	"não": {}, "nao": {}, "sim": {}, "mas": {}, "ou": {}, "e": {}, "ao": {}, "à": {},
	"explica": {}, "explique": {}, "ajuda": {}, "exemplo": {}, "favor": {}, "obrigado": {},
	"obrigada": {}, "então": {}, "entao": {}, "também": {}, "tambem": {}, "agora": {},
	"coisa": {}, "algo": {}, "assim": {}, "dessa": {}, "desse": {}, "pra": {}, "pro": {},
	// en
	"the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "how": {}, "why": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "does": {}, "did": {},
	"an": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "with": {},
	"about": {}, "and": {}, "or": {}, "but": {}, "not": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "my": {}, "your": {}, "his": {}, "her": {}, "its": {},
	"it": {}, "i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {},
	"please": {}, "help": {}, "explain": {}, "example": {}, "tell": {}, "show": {},
	"want": {}, "need": {}, "know": {}, "thanks": {}, "thank": {}, "just": {}, "like": {},
	"some": {}, "any": {}, "more": {}, "very": {}, "there": {}, "here": {},
}

const minTopicLength = 4

// extractTopics pulls topic candidates from a user message: lowercase,
// punctuation stripped, stopwords and short tokens removed, first-seen order
// preserved, deduplicated.
func extractTopics(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})

	seen := map[string]struct{}{}
	topics := []string{}
	for _, word := range fields {
		word = strings.Trim(word, "-")
		if len([]rune(word)) < minTopicLength {
			continue
		}
		if _, stop := topicStopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		topics = append(topics, word)
		if len(topics) == max {
			break
		}
	}
	return topics
}
