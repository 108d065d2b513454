package pois

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleClassificationFirstRuleWins(t *testing.T) {
	c := NewClassifier(MatchExact, DefaultGoogleRules())

	assert.Equal(t, "nightlife", c.Classify([]string{"bar", "restaurant"}))
	assert.Equal(t, "nightlife", c.Classify([]string{"restaurant", "bar"}))
	assert.Equal(t, "food_drinks", c.Classify([]string{"restaurant", "point_of_interest"}))
	// park appears under dating before outdoor_nature
	assert.Equal(t, "dating", c.Classify([]string{"park"}))
	assert.Equal(t, "faith_spirituality", c.Classify([]string{"CHURCH"}))
}

func TestGoogleClassificationIsExact(t *testing.T) {
	c := NewClassifier(MatchExact, DefaultGoogleRules())
	// "barber_shop" contains "bar" but is not an exact match
	assert.Equal(t, CategoryOther, c.Classify([]string{"barber_shop"}))
	assert.Equal(t, CategoryOther, c.Classify(nil))
	assert.Equal(t, CategoryOther, c.Classify([]string{"", "  "}))
}

func TestOSMClassificationUsesSubstrings(t *testing.T) {
	c := NewClassifier(MatchSubstring, DefaultOSMRules())

	assert.Equal(t, "food_drinks", c.Classify([]string{"fast_food", "Quick Eats"}))
	assert.Equal(t, "dating", c.Classify([]string{"cafe", "Joe's"}))
	assert.Equal(t, "sports", c.Classify([]string{"sports_centre"}))
	// tag values include the name, so a name can decide the category
	assert.Equal(t, "nightlife", c.Classify([]string{"fast_food", "Burger Barn"}))
	assert.Equal(t, CategoryOther, c.Classify([]string{"bench"}))
}

func TestDefaultTablesKeepOrder(t *testing.T) {
	google := DefaultGoogleRules()
	require.Len(t, google, 25)
	assert.Equal(t, "nightlife", google[0].Category)
	assert.Equal(t, "media_communications", google[len(google)-1].Category)

	osm := DefaultOSMRules()
	require.Len(t, osm, 16)
	assert.Equal(t, "home_living", osm[len(osm)-1].Category)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	t.Run("override one table", func(t *testing.T) {
		path := filepath.Join(dir, "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
google:
  - category: coffee
    keywords: [cafe, coffee_shop]
  - category: nightlife
    keywords: [bar]
`), 0o644))

		set, err := LoadRules(path)
		require.NoError(t, err)
		require.Len(t, set.Google, 2)
		assert.Equal(t, "coffee", NewClassifier(MatchExact, set.Google).Classify([]string{"bar", "cafe"}))
		assert.Equal(t, DefaultOSMRules(), set.OSM)
	})

	t.Run("rule without keywords", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("osm:\n  - category: empty\n"), 0o644))
		_, err := LoadRules(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
