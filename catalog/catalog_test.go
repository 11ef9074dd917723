package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/compscan/compscan/compdb"
	"github.com/stretchr/testify/assert"
)

const testCatalog = `
sites:
  - name: alpha
    listing_url: http://alpha.test/comps
    tier: free
    enabled: true
  - name: beta
    listing_url: http://beta.test/comps
    adapter_kind: rafflehall
    tier: premium
    enabled: true
  - name: gamma
    listing_url: http://gamma.test/comps
    enabled: false
rules:
  rafflehall:
    price_window: 300
`

func writeCatalog(tt *testing.T, body string) string {
	path := filepath.Join(tt.TempDir(), "sites.yaml")
	assert.NoError(tt, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("successfully loads sites and defaults absent fields", func(tt *testing.T) {
		f, err := Load(writeCatalog(tt, testCatalog))
		assert.NoError(tt, err)
		assert.Len(tt, f.SiteList, 3)
		assert.Equal(tt, compdb.AdapterGeneric, f.SiteList[2].AdapterKind)
		assert.Equal(tt, compdb.TierBoth, f.SiteList[2].Tier)
	})

	t.Run("rejects a site missing its name or listing url", func(tt *testing.T) {
		_, err := Load(writeCatalog(tt, "sites:\n  - name: headless\n"))
		assert.Error(tt, err)
	})

	t.Run("rejects a missing or malformed file", func(tt *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(tt, err)

		_, err = Load(writeCatalog(tt, "sites: {not a list"))
		assert.Error(tt, err)
	})
}

func TestProviders(t *testing.T) {
	f, err := Load(writeCatalog(t, testCatalog))
	assert.NoError(t, err)
	ctx := context.Background()

	t.Run("successfully filters sites by tier and enabled flag", func(tt *testing.T) {
		free, err := f.Sites(ctx, compdb.TierFree)
		assert.NoError(tt, err)
		if assert.Len(tt, free, 1) {
			assert.Equal(tt, "alpha", free[0].Name)
		}

		premium, err := f.Sites(ctx, compdb.TierPremium)
		assert.NoError(tt, err)
		if assert.Len(tt, premium, 1) {
			assert.Equal(tt, "beta", premium[0].Name)
		}
	})

	t.Run("successfully returns the unfiltered site list", func(tt *testing.T) {
		all, err := f.AllSites(ctx)
		assert.NoError(tt, err)
		assert.Len(tt, all, 3)
	})

	t.Run("successfully looks up rule documents by adapter kind", func(tt *testing.T) {
		doc, err := f.RulesFor(ctx, compdb.AdapterRaffleHall)
		assert.NoError(tt, err)
		assert.Equal(tt, 300, doc.PriceWindow)
		assert.Equal(tt, compdb.AdapterRaffleHall, doc.Kind)

		_, err = f.RulesFor(ctx, compdb.AdapterGeneric)
		assert.ErrorIs(tt, err, compdb.ErrNoRuleDocument)
	})
}
