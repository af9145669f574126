// Package fallback provides canned responses used when the model call fails
// or an intent pre-empts it. The selector is the last line of defense and
// always returns a non-empty string.
package fallback

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

const generalDomain = "general"

var apologies = []string{
	"Desculpa, tive um probleminha técnico agora.",
	"Poxa, algo deu errado do meu lado.",
	"Opa, não consegui processar isso como eu queria.",
	"Me desculpa, a resposta completa não saiu dessa vez.",
}

var domainTemplates = map[string][]string{
	"programming": {
		"Enquanto isso, que tal revisar o último conceito de programação que a gente viu? Praticar com exemplos pequenos ajuda muito.",
		"Se quiser, reformula a pergunta sobre código que eu tento de novo. Dica: quebrar o problema em passos menores sempre ajuda.",
		"Posso tentar de novo em instantes. Enquanto isso, vale testar seu código com um caso bem simples primeiro.",
	},
	"accounting": {
		"Enquanto eu me recupero, lembra de manter seus lançamentos organizados por data, isso facilita qualquer análise depois.",
		"Tenta perguntar de novo daqui a pouco. Sobre contabilidade, sempre vale conferir se receitas e despesas estão na categoria certa.",
		"Não consegui responder agora, mas uma dica: separar contas pessoais das contas do negócio evita muita dor de cabeça.",
	},
	"marketing": {
		"Tenta de novo já já. Enquanto isso, pensa em quem é exatamente o público que você quer alcançar com essa ideia.",
		"Posso responder melhor daqui a pouco. Uma dica de marketing: mensagens simples e diretas quase sempre convertem mais.",
	},
	"design": {
		"Volto já. Enquanto isso, olha referências de designs que você admira e anota o que eles têm em comum.",
		"Tenta perguntar de novo em instantes. Em design, menos elementos na tela costuma comunicar melhor.",
	},
	"languages": {
		"Tenta de novo daqui a pouco. Enquanto isso, repetir em voz alta as frases que você já aprendeu fixa bem o conteúdo.",
		"Posso continuar já já. Dica de idiomas: consumir conteúdo que você gosta na língua que estuda acelera muito o aprendizado.",
	},
	generalDomain: {
		"Pode repetir a pergunta daqui a pouquinho? Vou fazer o possível para responder direito.",
		"Tenta de novo em instantes que eu devo conseguir te ajudar.",
		"Reformula a pergunta para mim? Às vezes isso já resolve.",
	},
}

// Selector picks canned responses keyed by topic domain. The random source
// is injectable so tests can assert deterministic selection.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a selector seeded from the wall clock.
func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource returns a selector driven by the given source.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rng: rand.New(src)}
}

// Select returns an apology line followed by a domain-appropriate template.
// Unknown domains use the general pool. The reason is accepted for parity
// with the failure classification but does not change the wording; callers
// log it separately.
func (s *Selector) Select(domain, reason string) string {
	pool, ok := domainTemplates[strings.ToLower(strings.TrimSpace(domain))]
	if !ok || len(pool) == 0 {
		pool = domainTemplates[generalDomain]
	}

	s.mu.Lock()
	apology := apologies[s.rng.Intn(len(apologies))]
	template := pool[s.rng.Intn(len(pool))]
	s.mu.Unlock()

	return apology + " " + template
}
