// Package waveform holds sampled signals downloaded from an instrument.
//
// A Waveform is an immutable sequence of samples taken at a fixed interval,
// with one sample index marking the trigger point. The time axis is derived
// on demand: x[i] = (i - triggerIndex) * dx, so the trigger sits at t = 0.
//
// All operations return new values; the sample slice handed to New is
// copied and never exposed for mutation.
//
// # Filtering
//
// X, Y and XY accept predicates that select samples by time (in seconds)
// and/or value. Selection is done by index over the parallel arrays and
// preserves sample order.
//
// # Files
//
// Save and Load store a waveform as a CBOR record (.wfm) holding the samples
// and the dx, trigger index and name metadata; a round trip is exact.
// WriteCSV exports an "x,y" table for external tools.
package waveform
