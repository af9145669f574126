package fallback

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_DeterministicWithSeededSource(t *testing.T) {
	a := NewSelectorWithSource(rand.NewSource(42))
	b := NewSelectorWithSource(rand.NewSource(42))

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Select("programming", "quota"), b.Select("programming", "quota"))
	}
}

func TestSelect_ApologyPrefixAndDomainBody(t *testing.T) {
	s := NewSelectorWithSource(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		out := s.Select("accounting", "quota")
		require.NotEmpty(t, out)

		var prefixed bool
		for _, apology := range apologies {
			if strings.HasPrefix(out, apology+" ") {
				prefixed = true
				body := strings.TrimPrefix(out, apology+" ")
				assert.Contains(t, domainTemplates["accounting"], body)
			}
		}
		assert.True(t, prefixed, "output %q lacks an apology prefix", out)
	}
}

func TestSelect_UnknownDomainUsesGeneralPool(t *testing.T) {
	s := NewSelectorWithSource(rand.NewSource(7))

	out := s.Select("astrology", "network")
	require.NotEmpty(t, out)

	var matched bool
	for _, tmpl := range domainTemplates[generalDomain] {
		if strings.HasSuffix(out, tmpl) {
			matched = true
		}
	}
	assert.True(t, matched, "output %q not drawn from general pool", out)
}

func TestSelect_NeverEmpty(t *testing.T) {
	s := NewSelector()
	for _, domain := range []string{"", "programming", "Accounting", "  design  ", "unknown"} {
		assert.NotEmpty(t, s.Select(domain, ""))
	}
}

func TestSelect_EveryDomainHasAtLeastTwoTemplates(t *testing.T) {
	for domain, pool := range domainTemplates {
		assert.GreaterOrEqual(t, len(pool), 2, "domain %s", domain)
	}
}
