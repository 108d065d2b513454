package feed

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func params(raw string) Params {
	v, _ := url.ParseQuery(raw)
	return v.Get
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage(params(""), 20)
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 1, Limit: 20, Offset: 0}, p)

	p, err = ParsePage(params("page=3&limit=10"), 20)
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 3, Limit: 10, Offset: 20}, p)

	p, err = ParsePage(params("page=2&pageSize=5"), 20)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Offset)

	p, err = ParsePage(params("limit_count=25&offset_count=50"), 20)
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 3, Limit: 25, Offset: 50}, p)

	p, err = ParsePage(params("limit=1000"), 20)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestParsePageRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"page=0", "page=-1", "page=x", "limit=0", "offset_count=-5"} {
		_, err := ParsePage(params(raw), 20)
		var fe *FieldError
		assert.True(t, errors.As(err, &fe), raw)
	}
}

func TestParsePageRejectsOverflowingPage(t *testing.T) {
	_, err := ParsePage(params("page=288230376151711745"), 20)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "page", fe.Field)

	p, err := ParsePage(params("page=1000000&limit=100"), 20)
	require.NoError(t, err)
	assert.Equal(t, 99999900, p.Offset)
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort(params(""))
	require.NoError(t, err)
	assert.Equal(t, Sort{Column: SortCreatedAt, Desc: true}, s)

	s, err = ParseSort(params("sort_by=views&sort_direction=ASC"))
	require.NoError(t, err)
	assert.Equal(t, Sort{Column: SortViews, Desc: false}, s)

	_, err = ParseSort(params("sort_by=content"))
	assert.Error(t, err)
	_, err = ParseSort(params("sort_direction=sideways"))
	assert.Error(t, err)
}

func TestParseViewport(t *testing.T) {
	v, err := ParseViewport(params("north_lat=41&south_lat=40&east_lng=-73&west_lng=-75"))
	require.NoError(t, err)
	assert.True(t, v.Bounds.Contains(40.7128, -74.0060))
	assert.False(t, v.Bounds.CrossesAntimeridian())

	wrap, err := ParseViewport(params("north_lat=10&south_lat=-10&east_lng=-170&west_lng=170"))
	require.NoError(t, err)
	assert.True(t, wrap.Bounds.CrossesAntimeridian())
	assert.True(t, wrap.Bounds.Contains(0, 179))

	for _, raw := range []string{
		"north_lat=41&south_lat=40&east_lng=-73",
		"north_lat=abc&south_lat=40&east_lng=-73&west_lng=-75",
		"north_lat=40&south_lat=41&east_lng=-73&west_lng=-75",
		"north_lat=100&south_lat=40&east_lng=-73&west_lng=-75",
	} {
		_, err := ParseViewport(params(raw))
		assert.Error(t, err, raw)
	}
}

func TestParseRadius(t *testing.T) {
	r, err := ParseRadius(params("lat=40.7&lng=-74&radius_km=2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2500.0, r.Meters())

	r, err = ParseRadius(params("lat=40.7&lng=-74"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRadiusKm, r.RadiusKm)

	_, err = ParseRadius(params("lat=40.7&lng=-74&radius_km=0"))
	assert.Error(t, err)
	_, err = ParseRadius(params("lat=40.7"))
	assert.Error(t, err)
	_, err = ParseRadius(params("lat=NaN&lng=0"))
	assert.Error(t, err)
}

func TestNewPageMeta(t *testing.T) {
	m := NewPageMeta(Page{Number: 1, Limit: 10, Offset: 0}, 25)
	assert.Equal(t, 3, m.TotalPages)
	assert.True(t, m.HasNextPage)
	assert.False(t, m.HasPreviousPage)

	m = NewPageMeta(Page{Number: 3, Limit: 10, Offset: 20}, 25)
	assert.False(t, m.HasNextPage)
	assert.True(t, m.HasPreviousPage)

	m = NewPageMeta(Page{Number: 1, Limit: 10}, 0)
	assert.Equal(t, 0, m.TotalPages)
	assert.False(t, m.HasNextPage)
}
