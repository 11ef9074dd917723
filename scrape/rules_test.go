package scrape

import (
	"testing"

	"github.com/compscan/compscan/compdb"
	"github.com/stretchr/testify/assert"
)

func TestProfileFor(t *testing.T) {
	t.Run("successfully builds built-in defaults for the generic kind", func(tt *testing.T) {
		prof, err := ProfileFor(compdb.AdapterGeneric, nil)
		assert.NoError(tt, err)
		assert.Equal(tt, []string{"h1"}, prof.Rules.TitleSelectors)
		assert.Equal(tt, 160, prof.Rules.PriceWindow)
		assert.Equal(tt, 100.0, prof.Rules.PriceMax)
		assert.Equal(tt, 60, prof.Rules.MaxLinks)
		assert.Equal(tt, PriceStructured, prof.PriceOrder[0])
		assert.Equal(tt, TotalsSelectors, prof.TotalsOrder[0])
	})

	t.Run("successfully puts text banners first for the rafflehall kind", func(tt *testing.T) {
		prof, err := ProfileFor(compdb.AdapterRaffleHall, nil)
		assert.NoError(tt, err)
		assert.Equal(tt, TotalsPatterns, prof.TotalsOrder[0])
		assert.True(tt, prof.totalPats[0].MatchString("THIS PRIZE HAS A MAX OF 500 TICKETS"))
	})

	t.Run("successfully puts the embedded scan first for the prizepot kind", func(tt *testing.T) {
		prof, err := ProfileFor(compdb.AdapterPrizePot, nil)
		assert.NoError(tt, err)
		assert.Equal(tt, TotalsEmbedded, prof.TotalsOrder[0])
	})

	t.Run("successfully overlays a stored document on the defaults", func(tt *testing.T) {
		prof, err := ProfileFor(compdb.AdapterGeneric, &compdb.RuleDocument{
			TitleSelectors: []string{".prize-title"},
			PriceWindow:    300,
		})
		assert.NoError(tt, err)
		assert.Equal(tt, []string{".prize-title"}, prof.Rules.TitleSelectors)
		assert.Equal(tt, 300, prof.Rules.PriceWindow)
		// Untouched fields keep their defaults.
		assert.Equal(tt, 60, prof.Rules.MaxLinks)
		assert.Equal(tt, 100.0, prof.Rules.PriceMax)
	})

	t.Run("successfully bases an unknown kind on its fallback kind", func(tt *testing.T) {
		prof, err := ProfileFor("newsite", &compdb.RuleDocument{Fallback: compdb.AdapterRaffleHall})
		assert.NoError(tt, err)
		assert.Equal(tt, "newsite", prof.Kind)
		assert.True(tt, prof.totalPats[0].MatchString("PRIZE HAS A MAX OF 1,000 TICKETS"))
	})

	t.Run("rejects a document carrying an invalid pattern", func(tt *testing.T) {
		_, err := ProfileFor(compdb.AdapterGeneric, &compdb.RuleDocument{
			TotalPatterns: []string{"("},
		})
		assert.Error(tt, err)

		_, err = ProfileFor(compdb.AdapterGeneric, &compdb.RuleDocument{
			LinkDeny: "[",
		})
		assert.Error(tt, err)
	})
}
