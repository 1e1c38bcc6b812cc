// Package qclookup fetches the published QARTOD lookup tables from the
// oceanobservatories/qc-lookup repository.
package qclookup

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/couchcryptid/qartod-export/internal/observability"
)

// DefaultBaseURL is the raw-content root of the qc-lookup QARTOD tables.
const DefaultBaseURL = "https://raw.githubusercontent.com/oceanobservatories/qc-lookup/master/qartod/"

const (
	kindGrossRange  = "gross_range"
	kindClimatology = "climatology"
)

// Client reads gross range and climatology reference tables over HTTP.
type Client struct {
	baseURL string
	source  fetcher
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a qc-lookup client. A positive cacheSize keeps that many
// fetched documents in memory so a manifest run downloads each sensor type's
// gross range table once.
func NewClient(baseURL string, timeout time.Duration, cacheSize int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	var src fetcher = &httpFetcher{
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
	}
	if cacheSize > 0 {
		src = newCachedFetcher(src, cacheSize, metrics)
	}
	return &Client{
		baseURL: normalizeBaseURL(baseURL),
		source:  src,
		metrics: metrics,
		logger:  logger,
	}
}

func normalizeBaseURL(u string) string {
	if u == "" {
		u = DefaultBaseURL
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// GrossRangeURL returns the location of the sensor type's gross range table.
func (c *Client) GrossRangeURL(refdes domain.RefDes) string {
	st := refdes.SensorType()
	return c.baseURL + st + "/" + st + "_qartod_gross_range_test_values.csv"
}

// ClimatologyURL returns the location of one parameter's climatology table.
func (c *Client) ClimatologyURL(refdes domain.RefDes, param string) string {
	return c.baseURL + refdes.SensorType() + "/climatology_tables/" + refdes.String() + "-" + param + ".csv"
}

// GrossRange fetches the gross range table for refdes's sensor type and keeps
// the rows for param at this subsite, node and sensor whose stream matches.
// An empty stream matches every row. A table the host does not have yields a
// Reference with Found=false; a table with no matching rows yields Found=true
// and an empty slice.
func (c *Client) GrossRange(ctx context.Context, refdes domain.RefDes, param domain.Parameter, stream string) (domain.Reference[[]domain.GrossRangeRow], error) {
	u := c.GrossRangeURL(refdes)

	doc, err := c.source.fetch(ctx, u, kindGrossRange)
	if err != nil {
		return domain.Reference[[]domain.GrossRangeRow]{}, err
	}
	if !doc.found {
		c.logger.Info("gross range table not published", "url", u)
		return domain.NotFound[[]domain.GrossRangeRow](u), nil
	}

	rows, err := parseGrossRange(doc.records)
	if err != nil {
		return domain.Reference[[]domain.GrossRangeRow]{}, fmt.Errorf("parse %s: %w", u, err)
	}
	return domain.Found(u, filterGrossRange(rows, refdes, param, stream)), nil
}

// Climatology fetches one parameter's climatology table. The first column is
// the row index; every other cell is decoded. A missing table yields
// Found=false and no error.
func (c *Client) Climatology(ctx context.Context, refdes domain.RefDes, param domain.Parameter) (domain.Reference[domain.ClimatologyTable], error) {
	u := c.ClimatologyURL(refdes, param.Name)

	doc, err := c.source.fetch(ctx, u, kindClimatology)
	if err != nil {
		return domain.Reference[domain.ClimatologyTable]{}, err
	}
	if !doc.found {
		c.logger.Info("climatology table not published", "url", u)
		return domain.NotFound[domain.ClimatologyTable](u), nil
	}

	table, err := parseClimatology(doc.records)
	if err != nil {
		return domain.Reference[domain.ClimatologyTable]{}, fmt.Errorf("parse %s: %w", u, err)
	}
	return domain.Found(u, table), nil
}

// document is a fetched CSV file. found is false when the host answered 404 or 410.
type document struct {
	found   bool
	records [][]string
}

type fetcher interface {
	fetch(ctx context.Context, url, kind string) (document, error)
}

type httpFetcher struct {
	httpClient *http.Client
	metrics    *observability.Metrics
}

func (f *httpFetcher) fetch(ctx context.Context, url, kind string) (document, error) {
	start := time.Now()
	doc, err := f.do(ctx, url)
	f.metrics.ReferenceFetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		f.metrics.ReferenceFetches.WithLabelValues(kind, "error").Inc()
	case !doc.found:
		f.metrics.ReferenceFetches.WithLabelValues(kind, "not_found").Inc()
	default:
		f.metrics.ReferenceFetches.WithLabelValues(kind, "found").Inc()
	}
	return doc, err
}

func (f *httpFetcher) do(ctx context.Context, url string) (document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return document{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return document{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return document{}, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return document{}, fmt.Errorf("qc-lookup error: %s: status %d: %s", url, resp.StatusCode, body)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return document{}, fmt.Errorf("read csv %s: %w", url, err)
	}
	return document{found: true, records: records}, nil
}
