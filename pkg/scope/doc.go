// Package scope defines the oscilloscope capability model shared by all
// drivers.
//
// Drivers implement three interfaces: Oscilloscope for the instrument
// as a whole, Channel for one analog input and Trigger for the trigger
// subsystem. Algorithms that only need those interfaces live here as free
// functions rather than as methods every driver must repeat:
//
//	window, err := scope.SetTimeWindow(osc, duration.MustParse("23us"))
//	lo, hi, err := scope.SetRangeV(ch, -0.2, 4)
//	z, err := scope.SetImpedanceMax(ch)
//
// # Trigger States
//
//	Disarmed ──arm──▶ ArmedSingle ──fire──▶ Fired
//	   ▲              ArmedAuto   ──fire──▶ ArmedAuto
//	   │              ArmedNormal ──fire──▶ ArmedNormal
//	   └───disarm──── (any)
//
// Arming moves to the matching armed state from any state. Waiting for a
// waveform while disarmed is an error.
//
// # Strict Mode
//
// Coupling and impedance setters take a failOnError flag. When false the
// setter returns whatever the instrument ended up with. When true a
// mismatch between requested and confirmed value returns
// ErrUnsupportedValue.
package scope
