package scrape

import (
	"testing"

	"github.com/compscan/compscan/compdb"
	"github.com/stretchr/testify/assert"
)

func mustPage(tt *testing.T, body string) *Page {
	page, err := ParsePage("http://example.test/p", []byte(body))
	assert.NoError(tt, err)
	return page
}

func mustProfile(tt *testing.T, kind string, doc *compdb.RuleDocument) *Profile {
	prof, err := ProfileFor(kind, doc)
	assert.NoError(tt, err)
	return prof
}

func TestPageText(t *testing.T) {
	t.Run("successfully collects visible text, skipping scripts and styles", func(tt *testing.T) {
		page := mustPage(tt, `<html><head><style>.x{color:red}</style></head><body>
			<p>Win   a
			car</p><script>var secret = 9999;</script><p>today</p></body></html>`)
		text := page.Text()
		assert.Equal(tt, "Win a car today", text)
		assert.NotContains(tt, text, "9999")
		assert.NotContains(tt, text, "color")
	})
}

func TestPageTitle(t *testing.T) {
	t.Run("successfully prefers the rule selector over metadata", func(tt *testing.T) {
		prof := mustProfile(tt, compdb.AdapterGeneric, nil)
		page := mustPage(tt, `<html><head><title>site | generic</title></head><body><h1> Dream Car </h1></body></html>`)
		assert.Equal(tt, "Dream Car", page.Title(prof))
	})

	t.Run("successfully falls back to og:title, then the document title", func(tt *testing.T) {
		prof := mustProfile(tt, compdb.AdapterGeneric, nil)
		page := mustPage(tt, `<html><head><meta property="og:title" content="PS5 Bundle"><title>fallback</title></head><body></body></html>`)
		assert.Equal(tt, "PS5 Bundle", page.Title(prof))

		page = mustPage(tt, `<html><head><title>Last Resort</title></head><body></body></html>`)
		assert.Equal(tt, "Last Resort", page.Title(prof))
	})

	t.Run("returns empty when the page carries no usable title", func(tt *testing.T) {
		prof := mustProfile(tt, compdb.AdapterGeneric, nil)
		page := mustPage(tt, `<html><body><p>nothing here</p></body></html>`)
		assert.Equal(tt, "", page.Title(prof))
	})
}
