// Package manifest loads batch export definitions from YAML.
//
// A manifest names many deployments and shared defaults:
//
//	cutoff: 2021-01-01T00:00:00
//	stream: ctdbp_cdef_dcl_instrument
//	compare: true
//	deployments:
//	  - {site: CE01ISSM, node: SBD17, sensor: 06-CTDBPC000}
//	  - {site: CE02SHSM, node: RID27, sensor: 03-CTDBPC000, cutoff: 2022-06-01}
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/qartod-export/internal/domain"
	"github.com/couchcryptid/qartod-export/internal/export"
)

// ErrEmpty is returned for a manifest without deployments.
var ErrEmpty = errors.New("manifest has no deployments")

// Manifest is the decoded document.
type Manifest struct {
	Cutoff      string       `yaml:"cutoff"`
	Stream      string       `yaml:"stream"`
	Compare     bool         `yaml:"compare"`
	Deployments []Deployment `yaml:"deployments"`
}

// Deployment is one reference designator with optional overrides.
type Deployment struct {
	domain.RefDes `yaml:",inline"`

	Cutoff  string `yaml:"cutoff"`
	Stream  string `yaml:"stream"`
	Compare *bool  `yaml:"compare"`
}

// Load reads and decodes the manifest at path.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest document. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Parse(data []byte) (Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if len(m.Deployments) == 0 {
		return Manifest{}, ErrEmpty
	}
	return m, nil
}

// Jobs resolves every deployment against the manifest defaults. Cutoffs are
// parsed here so a bad entry fails the run before any engine invocation.
func (m Manifest) Jobs() ([]export.Job, error) {
	jobs := make([]export.Job, 0, len(m.Deployments))
	for i, d := range m.Deployments {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("deployment %d: %w", i, err)
		}

		raw := m.Cutoff
		if d.Cutoff != "" {
			raw = d.Cutoff
		}
		cutoff, err := domain.ParseCutoff(raw)
		if err != nil {
			return nil, fmt.Errorf("deployment %d (%s): %w", i, d.RefDes, err)
		}

		job := export.Job{
			RefDes:  d.RefDes,
			Cutoff:  cutoff,
			Stream:  m.Stream,
			Compare: m.Compare,
		}
		if d.Stream != "" {
			job.Stream = d.Stream
		}
		if d.Compare != nil {
			job.Compare = *d.Compare
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
