// Package duration implements a unit-carrying time value for instrument control.
//
// A Duration pairs a floating point magnitude with a TimeUnit. Instruments
// report and accept time quantities in seconds with arbitrary exponents, so
// values are kept in the unit the caller chose and only converted on demand.
//
// # Units
//
// TimeUnit values are integer ratios to one nanosecond (ns=1, us=1e3,
// ms=1e6, s=1e9, ks=1e12). Conversions multiply or divide by an exact power
// of ten, never by a float ratio of two scales.
//
// # Equality
//
// Two durations are equal when they differ by less than one picosecond.
// Ordering compares the nanosecond magnitudes; GreaterOrEqual and
// LessOrEqual are the strict comparison OR'ed with Equal.
//
// # Text Form
//
// Parse accepts "<number><unit>" with optional whitespace around and between
// the parts, e.g. "23us", " 1.5 ms ", "-2e-3 S". Units are case-insensitive.
//
// # Optimization
//
// Optimize re-expresses a value in the largest unit whose magnitude lands in
// [1, 1000). Zero and values outside the unit range fall back to nanoseconds.
package duration
