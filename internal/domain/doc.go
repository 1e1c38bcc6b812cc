// Package domain models the QARTOD lookup-table export for Ocean Observatories
// Initiative (OOI) instruments.
//
// # Reference Designators
//
// An instrument stream is identified by a reference designator made of three
// dash-joined codes:
//
//	CE01ISSM-SBD17-06-CTDBPC000
//	^site    ^node ^sensor
//
// The sensor code itself contains a dash: a two-digit port number followed by
// the instrument class, series and sequence ("06-CTDBPC000"). The five letters
// after the port ("CTDBP") name the sensor type. Lower-cased, the sensor type
// keys both the local output directory and the remote qc-lookup folder.
//
// # Cutoff
//
// The cutoff bounds the historical record the QC engine uses to compute the
// gross-range and climatology statistics. It is rendered without a zone
// ("2021-01-01T00:00:00") and is always UTC.
//
// # Artifacts
//
// One export produces four artifacts:
//
//	<refdes>.quality_annotations.csv   annotations, [AnnotationColumns]
//	<refdes>.gross_range.csv           gross range lookup, [GrossRangeColumns]
//	<refdes>.climatology.csv           climatology lookup, [ClimatologyColumns]
//	<refdes>-<parameter>.csv           one climatology table per tracked parameter
//
// Tracked parameters come from a fixed per-sensor-type catalog; see [ParametersFor].
package domain
