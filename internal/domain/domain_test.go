package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRefDes = "CE01ISSM-SBD17-06-CTDBPC000"

func TestParseRefDes(t *testing.T) {
	t.Run("standard designator", func(t *testing.T) {
		r, err := ParseRefDes(testRefDes)
		require.NoError(t, err)
		assert.Equal(t, RefDes{Site: "CE01ISSM", Node: "SBD17", Sensor: "06-CTDBPC000"}, r)
		assert.Equal(t, testRefDes, r.String())
		assert.Equal(t, "ctdbp", r.SensorType())
	})

	t.Run("too few parts", func(t *testing.T) {
		_, err := ParseRefDes("CE01ISSM-SBD17")
		require.ErrorIs(t, err, ErrInvalidRefDes)
	})

	t.Run("sensor without port prefix", func(t *testing.T) {
		_, err := ParseRefDes("CE01ISSM-SBD17-CTDBPC000")
		require.ErrorIs(t, err, ErrInvalidRefDes)
	})
}

func TestRefDes_SensorTypeMatchesFixedWidthSubstring(t *testing.T) {
	r := RefDes{Site: "CE02SHSM", Node: "RID27", Sensor: "04-DOSTAD000"}
	require.NoError(t, r.Validate())
	assert.Equal(t, "dosta", r.SensorType())
	assert.Equal(t, r.SensorType(), strings.ToLower(r.String()[18:23]))
}

func TestRefDes_ValidateMissingParts(t *testing.T) {
	for name, r := range map[string]RefDes{
		"site":   {Node: "SBD17", Sensor: "06-CTDBPC000"},
		"node":   {Site: "CE01ISSM", Sensor: "06-CTDBPC000"},
		"sensor": {Site: "CE01ISSM", Node: "SBD17"},
	} {
		t.Run(name, func(t *testing.T) {
			err := r.Validate()
			require.ErrorIs(t, err, ErrInvalidRefDes)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestParseCutoff(t *testing.T) {
	want := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2021-01-01T00:00:00", "2021-01-01T00:00:00Z", "2021-01-01"} {
		c, err := ParseCutoff(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(c.Time), in)
		assert.Equal(t, "2021-01-01T00:00:00", c.String())
	}

	t.Run("offset converted to UTC", func(t *testing.T) {
		c, err := ParseCutoff("2021-01-01T02:00:00+02:00")
		require.NoError(t, err)
		assert.Equal(t, "2021-01-01T00:00:00", c.String())
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseCutoff("01/01/2021")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "01/01/2021")
	})
}

func TestParseCutoff_EmptyDefaultsToStartOfDay(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 27, 6, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	c, err := ParseCutoff("")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-27T00:00:00", c.String())
}

func TestTable_Project(t *testing.T) {
	tbl := Table{
		Columns: []string{"notes", "subsite", "extra", "node"},
		Rows: [][]string{
			{"n1", "CE01ISSM", "x", "SBD17"},
			{"n2", "CE02SHSM"},
		},
	}

	rows, err := tbl.Project([]string{"subsite", "node", "notes"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"CE01ISSM", "SBD17", "n1"},
		{"CE02SHSM", "", "n2"},
	}, rows)
}

func TestTable_ProjectEmptyTable(t *testing.T) {
	rows, err := Table{}.Project(AnnotationColumns)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Rows without a header still need the schema columns.
	_, err = Table{Rows: [][]string{{"x"}}}.Project(AnnotationColumns)
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestTable_ProjectMissingColumn(t *testing.T) {
	tbl := Table{Columns: []string{"subsite"}}
	_, err := tbl.Project(GrossRangeColumns)
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "node")
}

func TestParametersFor(t *testing.T) {
	params, err := ParametersFor("ctdbp")
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "sea_water_temperature", params[0].Name)
	assert.Equal(t, "practical_salinity", params[1].Name)

	// Callers get a copy.
	params[0].Name = "changed"
	again, _ := ParametersFor("ctdbp")
	assert.Equal(t, "sea_water_temperature", again[0].Name)

	_, err = ParametersFor("zzzzz")
	require.ErrorIs(t, err, ErrUnknownSensorType)
}

func TestLookupParameter(t *testing.T) {
	p, err := LookupParameter("phsen", "seawater_ph")
	require.NoError(t, err)
	assert.Equal(t, "phsen_abcdef_ph_seawater", p.Input)

	_, err = LookupParameter("ctdbp", "dissolved_oxygen")
	require.Error(t, err)
}

func TestReference(t *testing.T) {
	missing := NotFound[[]string]("http://example/a.csv")
	assert.False(t, missing.Found)
	assert.Nil(t, missing.Value)

	empty := Found("http://example/a.csv", []string{})
	assert.True(t, empty.Found)
	assert.Empty(t, empty.Value)
}
