// Package output persists a run's aggregated context and generated artifacts
// to fixed, named files. Each destination is written independently with
// whole-file-replace semantics; failures are reported per destination.
package output
