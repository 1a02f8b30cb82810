package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationEmpty(t *testing.T) {
	t.Parallel()
	lat := 48.85
	assert.True(t, (*Location)(nil).Empty())
	assert.True(t, (&Location{}).Empty())
	assert.False(t, (&Location{City: "Paris"}).Empty())
	assert.False(t, (&Location{Latitude: &lat}).Empty())
}

func TestLocationHasPoint(t *testing.T) {
	t.Parallel()
	lat, lng := 48.85, 2.35
	assert.False(t, (*Location)(nil).HasPoint())
	assert.False(t, (&Location{Latitude: &lat}).HasPoint())
	assert.True(t, (&Location{Latitude: &lat, Longitude: &lng}).HasPoint())
}

func TestEnrichmentEmpty(t *testing.T) {
	t.Parallel()
	assert.True(t, (*Enrichment)(nil).Empty())
	assert.True(t, (&Enrichment{}).Empty())
	assert.True(t, (&Enrichment{Loc: &Location{}, Stats: &CompanyStats{}}).Empty())
	assert.False(t, (&Enrichment{Stats: &CompanyStats{Industry: "Media"}}).Empty())
}
