package waveform

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// FileVersion is the current version of the .wfm record format.
const FileVersion = 1

// Store errors.
var (
	// ErrUnsupportedVersion indicates a .wfm record written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported waveform file version")

	// ErrNotWaveformFile indicates CBOR data that is not a .wfm record.
	ErrNotWaveformFile = errors.New("not a waveform file")
)

// record is the on-disk form. Samples are the primary column; the rest is
// record-level metadata.
type record struct {
	Version      int       `cbor:"1,keyasint"`
	Dx           float64   `cbor:"2,keyasint"`
	TriggerIndex int       `cbor:"3,keyasint"`
	Name         string    `cbor:"4,keyasint"`
	Samples      []float64 `cbor:"5,keyasint"`
}

var (
	fileEncMode cbor.EncMode
	fileDecMode cbor.DecMode
)

func init() {
	var err error

	// Floats are kept at full width so a round trip is bit-exact.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		ShortestFloat: cbor.ShortestFloatNone,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsEmpty,
	}
	fileEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create waveform CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	fileDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create waveform CBOR decoder mode: %v", err))
	}
}

// WriteTo encodes w as a single CBOR record.
func (w *Waveform) WriteTo(out io.Writer) (int64, error) {
	data, err := fileEncMode.Marshal(record{
		Version:      FileVersion,
		Dx:           w.dx,
		TriggerIndex: w.triggerIndex,
		Name:         w.name,
		Samples:      w.ys,
	})
	if err != nil {
		return 0, fmt.Errorf("encode waveform: %w", err)
	}
	n, err := out.Write(data)
	return int64(n), err
}

// Read decodes one CBOR record written by WriteTo.
func Read(in io.Reader) (*Waveform, error) {
	var rec record
	if err := fileDecMode.NewDecoder(in).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWaveformFile, err)
	}
	// Every record WriteTo produces has a version; foreign maps decode to 0.
	if rec.Version < 1 {
		return nil, ErrNotWaveformFile
	}
	if rec.Version > FileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, rec.Version)
	}
	return &Waveform{
		dx:           rec.Dx,
		triggerIndex: rec.TriggerIndex,
		ys:           rec.Samples,
		name:         rec.Name,
	}, nil
}

// Save writes w to path, creating parent directories as needed.
func (w *Waveform) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a waveform saved with Save.
func Load(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
