// Package instrument identifies bench instruments and binds them to drivers.
//
// Identification starts from the reply to *IDN?, four comma separated
// fields: make, model, serial number and firmware version. ParseIDN turns
// that reply into an ISpec. A Registry then walks its rules in
// registration order and, on the first rule whose vendor and model
// matchers both accept the ISpec, sets the instrument type and binds the
// rule's driver Factory.
//
// Drivers register themselves without touching existing rules:
//
//	reg := instrument.NewRegistry()
//	reg.Register(instrument.Rule{
//		Vendor:  instrument.Exact("Siglent Technologies"),
//		Model:   instrument.Prefix("SDS8"),
//		Type:    instrument.TypeOscilloscope,
//		Factory: newSDS800,
//	})
//	spec := reg.Resolve(address, idn)
package instrument
