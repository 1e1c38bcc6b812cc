package integration_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/qartod-export/internal/adapter/csvfile"
	"github.com/couchcryptid/qartod-export/internal/adapter/engine"
	"github.com/couchcryptid/qartod-export/internal/adapter/qclookup"
	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/couchcryptid/qartod-export/internal/export"
	"github.com/couchcryptid/qartod-export/internal/observability"
)

const fakeEngineEnv = "QARTOD_FAKE_ENGINE"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFakeEngine is not a real test; it stands in for the QC engine when the
// test binary is executed by the engine adapter.
func TestFakeEngine(t *testing.T) {
	if os.Getenv(fakeEngineEnv) != "1" {
		return
	}
	defer os.Exit(0)

	args := map[string]string{}
	rest := os.Args
	for i, a := range rest {
		if a == "--" {
			rest = rest[i+1:]
			break
		}
	}
	for i := 0; i+1 < len(rest); i += 2 {
		args[rest[i]] = rest[i+1]
	}

	site, node, sensor := args["-s"], args["-n"], args["-sn"]
	stream := "ctdbp_cdef_dcl_instrument"
	notes := "computed with data through " + args["-co"]

	out := map[string]any{
		"annotations": map[string]any{
			"columns": domain.AnnotationColumns,
			"rows": [][]string{{
				"", site, node, sensor, "telemetered", stream, "['sea_water_temperature']",
				"1556236800000", "1559347200000", "", "4", "ooi-qartod", "biofouling",
			}},
		},
		"gross_range": map[string]any{
			// Extra engine columns are dropped and the fixed order restored.
			"columns": []string{"notes", "qcConfig", "parameters", "stream", "sensor", "node", "subsite", "source", "engine_version"},
			"rows": [][]string{{
				notes,
				"{'qartod': {'gross_range_test': {'suspect_span': [6.5, 17.6], 'fail_span': [-5, 35]}}}",
				"{'inp': 'sea_water_temperature'}",
				stream, sensor, node, site, "Sensor min/max", "1.4.0",
			}},
		},
		"climatology": map[string]any{
			"columns": domain.ClimatologyColumns,
			"rows": [][]string{{
				site, node, sensor, stream, "{'inp': 'sea_water_temperature', 'tinp': 'time', 'zinp': 'None'}",
				site + "-" + node + "-" + sensor + "-sea_water_temperature.csv", "", notes,
			}},
		},
		"climatology_tables": []string{
			",\"[1, 1]\",\"[2, 2]\"\n\"[0, 0]\",\"[10.1, 12.3]\",\"[9.8, 11.9]\"\n",
			",\"[1, 1]\",\"[2, 2]\"\n\"[0, 0]\",\"[30.0, 33.5]\",\"[30.2, 33.4]\"\n",
		},
	}
	_ = json.NewEncoder(os.Stdout).Encode(out)
}

func fakeEngine(t *testing.T) *engine.Command {
	t.Helper()
	t.Setenv(fakeEngineEnv, "1")
	cmd, err := engine.NewCommand(os.Args[0]+" -test.run=TestFakeEngine --", 30*time.Second, discardLogger())
	require.NoError(t, err)
	return cmd
}

func qcLookupServer(t *testing.T) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"/ctdbp/ctdbp_qartod_gross_range_test_values.csv": `subsite,node,sensor,stream,parameters,qcConfig,source,notes
CE01ISSM,SBD17,06-CTDBPC000,ctdbp_cdef_dcl_instrument,"{'inp': 'sea_water_temperature'}","{'qartod': {'gross_range_test': {'suspect_span': [6.4, 17.7], 'fail_span': [-5, 35]}}}",published,
CE01ISSM,SBD17,06-CTDBPC000,ctdbp_cdef_dcl_instrument,"{'inp': 'practical_salinity'}","{'qartod': {'gross_range_test': {'suspect_span': [30.1, 34.2], 'fail_span': [0, 42]}}}",published,
`,
		"/ctdbp/climatology_tables/CE01ISSM-SBD17-06-CTDBPC000-sea_water_temperature.csv": `,"[1, 1]","[2, 2]"
"[0, 0]","[10.0, 12.4]","[9.9, 11.8]"
`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

// TestExport_EndToEnd runs the engine subprocess, writes the artifact tree and
// loads the published tables for comparison.
func TestExport_EndToEnd(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	base := t.TempDir()
	srv := qcLookupServer(t)
	metrics := observability.NewMetrics()

	exporter := export.New(
		fakeEngine(t),
		csvfile.NewWriter(base, discardLogger()),
		discardLogger(),
		metrics,
		export.WithReferences(qclookup.NewClient(srv.URL+"/", 5*time.Second, 8, metrics, discardLogger())),
	)

	cutoff, err := domain.ParseCutoff("2021-01-01T00:00:00")
	require.NoError(t, err)
	refdes := domain.RefDes{Site: "CE01ISSM", Node: "SBD17", Sensor: "06-CTDBPC000"}

	res, err := exporter.Export(context.Background(), export.Job{
		RefDes:  refdes,
		Cutoff:  cutoff,
		Stream:  "ctdbp_cdef_dcl_instrument",
		Compare: true,
	})
	require.NoError(t, err)

	dir := filepath.Join(base, "ctdbp")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"CE01ISSM-SBD17-06-CTDBPC000.quality_annotations.csv",
		"CE01ISSM-SBD17-06-CTDBPC000.gross_range.csv",
		"CE01ISSM-SBD17-06-CTDBPC000.climatology.csv",
		"CE01ISSM-SBD17-06-CTDBPC000-sea_water_temperature.csv",
		"CE01ISSM-SBD17-06-CTDBPC000-practical_salinity.csv",
	}, names)

	gr := readCSV(t, res.Paths.GrossRange)
	require.Len(t, gr, 2)
	assert.Equal(t, domain.GrossRangeColumns, gr[0])
	assert.Equal(t, []string{"CE01ISSM", "SBD17", "06-CTDBPC000", "ctdbp_cdef_dcl_instrument"}, gr[1][:4])
	assert.Equal(t, "computed with data through 2021-01-01T00:00:00", gr[1][7])

	ann := readCSV(t, res.Paths.Annotations)
	assert.Equal(t, domain.AnnotationColumns, ann[0])

	temp, err := os.ReadFile(filepath.Join(dir, "CE01ISSM-SBD17-06-CTDBPC000-sea_water_temperature.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(temp), `,"[1, 1]","[2, 2]"`))

	require.Len(t, res.Comparisons, 2)
	tempCmp, saltCmp := res.Comparisons[0], res.Comparisons[1]

	assert.True(t, tempCmp.GrossRange.Found)
	require.Len(t, tempCmp.GrossRange.Value, 1)
	suspect, fail, err := tempCmp.GrossRange.Value[0].Spans()
	require.NoError(t, err)
	assert.Equal(t, []float64{6.4, 17.7}, suspect)
	assert.Equal(t, []float64{-5, 35}, fail)
	assert.True(t, tempCmp.Climatology.Found)
	assert.Equal(t, []string{"[0, 0]"}, tempCmp.Climatology.Value.Index)

	assert.True(t, saltCmp.GrossRange.Found)
	assert.False(t, saltCmp.Climatology.Found)
	assert.Equal(t,
		fmt.Sprintf("%s/ctdbp/climatology_tables/CE01ISSM-SBD17-06-CTDBPC000-practical_salinity.csv", srv.URL),
		saltCmp.Climatology.URL)

	assert.Len(t, res.Record.References, 4)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Exports.WithLabelValues("success")), 0)
	// Both parameters share one gross range document.
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReferenceCache.WithLabelValues(domain.KindGrossRange, "hit")), 0)
}

func TestExport_RerunOverwrites(t *testing.T) {
	base := t.TempDir()
	exporter := export.New(fakeEngine(t), csvfile.NewWriter(base, discardLogger()), discardLogger(), observability.NewMetrics())

	cutoff, err := domain.ParseCutoff("2021-01-01")
	require.NoError(t, err)
	job := export.Job{RefDes: domain.RefDes{Site: "CE01ISSM", Node: "SBD17", Sensor: "06-CTDBPC000"}, Cutoff: cutoff}

	first, err := exporter.Export(context.Background(), job)
	require.NoError(t, err)
	before, err := os.ReadFile(first.Paths.GrossRange)
	require.NoError(t, err)

	second, err := exporter.Export(context.Background(), job)
	require.NoError(t, err)
	after, err := os.ReadFile(second.Paths.GrossRange)
	require.NoError(t, err)

	assert.Equal(t, first.Paths, second.Paths)
	assert.Equal(t, before, after)
}
