package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownSensorType is returned when no parameter catalog exists for a sensor type.
var ErrUnknownSensorType = errors.New("unknown sensor type")

// Parameter is a monitored quantity of an instrument.
type Parameter struct {
	// Name is the parameter name used in climatology table file names.
	Name string
	// Input is the identifier the qc-lookup tables use in the "parameters"
	// column ({'inp': <Input>}).
	Input string
}

// catalog lists, per sensor type, the parameters the QC engine builds
// climatology tables for. Order is significant: the engine returns its tables
// in this order.
var catalog = map[string][]Parameter{
	"ctdbp": {
		{Name: "sea_water_temperature", Input: "sea_water_temperature"},
		{Name: "practical_salinity", Input: "practical_salinity"},
	},
	"ctdpf": {
		{Name: "sea_water_temperature", Input: "sea_water_temperature"},
		{Name: "practical_salinity", Input: "practical_salinity"},
	},
	"dosta": {
		{Name: "dissolved_oxygen", Input: "dissolved_oxygen"},
	},
	"flort": {
		{Name: "fluorometric_chlorophyll_a", Input: "fluorometric_chlorophyll_a"},
		{Name: "fluorometric_cdom", Input: "fluorometric_cdom"},
		{Name: "optical_backscatter", Input: "optical_backscatter"},
	},
	"phsen": {
		{Name: "seawater_ph", Input: "phsen_abcdef_ph_seawater"},
	},
}

// ParametersFor returns a copy of the tracked parameter list for sensorType.
func ParametersFor(sensorType string) ([]Parameter, error) {
	params, ok := catalog[sensorType]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSensorType, sensorType)
	}
	return append([]Parameter(nil), params...), nil
}

// LookupParameter finds a tracked parameter of sensorType by name.
func LookupParameter(sensorType, name string) (Parameter, error) {
	params, err := ParametersFor(sensorType)
	if err != nil {
		return Parameter{}, err
	}
	for _, p := range params {
		if p.Name == name {
			return p, nil
		}
	}
	return Parameter{}, fmt.Errorf("parameter %q is not tracked for sensor type %q", name, sensorType)
}
