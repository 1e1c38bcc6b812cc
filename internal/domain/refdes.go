package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRefDes is returned for reference designators that cannot be split
// into site, node and sensor.
var ErrInvalidRefDes = errors.New("invalid reference designator")

// RefDes identifies a single instrument stream.
type RefDes struct {
	Site   string `json:"site" yaml:"site"`
	Node   string `json:"node" yaml:"node"`
	Sensor string `json:"sensor" yaml:"sensor"`
}

// ParseRefDes splits "SITE-NODE-NN-SENSOR" on its first two dashes.
func ParseRefDes(s string) (RefDes, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 3)
	if len(parts) != 3 {
		return RefDes{}, fmt.Errorf("%w: %q", ErrInvalidRefDes, s)
	}
	r := RefDes{Site: parts[0], Node: parts[1], Sensor: parts[2]}
	if err := r.Validate(); err != nil {
		return RefDes{}, err
	}
	return r, nil
}

// String joins the three codes with dashes.
func (r RefDes) String() string {
	return r.Site + "-" + r.Node + "-" + r.Sensor
}

// Validate checks that every part is present and the sensor code carries a
// port prefix followed by at least a five-letter sensor type.
func (r RefDes) Validate() error {
	switch {
	case r.Site == "":
		return fmt.Errorf("%w: site is required", ErrInvalidRefDes)
	case r.Node == "":
		return fmt.Errorf("%w: node is required", ErrInvalidRefDes)
	case r.Sensor == "":
		return fmt.Errorf("%w: sensor is required", ErrInvalidRefDes)
	case len(r.Sensor) < 8 || r.Sensor[2] != '-':
		return fmt.Errorf("%w: sensor %q is not of the form NN-XXXXX", ErrInvalidRefDes, r.Sensor)
	}
	return nil
}

// SensorType returns the lower-cased five-letter instrument class of the
// sensor, e.g. "06-CTDBPC000" -> "ctdbp". The reference designator must be valid.
func (r RefDes) SensorType() string {
	return strings.ToLower(r.Sensor[3:8])
}
