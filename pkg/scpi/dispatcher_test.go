package scpi

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inctrl/inctrl-go/pkg/log"
)

// ---------------------------------------------------------------------------
// stubs
// ---------------------------------------------------------------------------

type stubChannel struct{ mock.Mock }

func (c *stubChannel) Write(cmd string) error { return c.Called(cmd).Error(0) }
func (c *stubChannel) Read() (string, error) {
	ret := c.Called()
	return ret.String(0), ret.Error(1)
}
func (c *stubChannel) ReadBinaryBlock() ([]byte, error) {
	ret := c.Called()
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).([]byte), ret.Error(1)
}
func (c *stubChannel) Close() error { return c.Called().Error(0) }

type stubObserver struct{ mock.Mock }

func (o *stubObserver) ObserveCommand(kind Kind, elapsed time.Duration, n int, err error) {
	o.Called(kind, n, err)
}

type recordingLogger struct {
	events []log.Event
}

func (r *recordingLogger) Log(e log.Event) { r.events = append(r.events, e) }

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestWrite(t *testing.T) {
	ch := &stubChannel{}
	ch.On("Write", ":CHANnel1:SWITch ON").Return(nil).Once()

	d := New(ch, Config{})
	require.NoError(t, d.Write(":CHANnel1:SWITch ON"))
	ch.AssertExpectations(t)
	ch.AssertNotCalled(t, "Read")
}

func TestWriteSyncWaitsForOperationComplete(t *testing.T) {
	ch := &stubChannel{}
	var order []string
	ch.On("Write", ":TRIGger:RUN").Run(func(mock.Arguments) { order = append(order, "run") }).Return(nil).Once()
	ch.On("Write", OperationComplete).Run(func(mock.Arguments) { order = append(order, "opc") }).Return(nil).Once()
	ch.On("Read").Run(func(mock.Arguments) { order = append(order, "read") }).Return("1", nil).Once()

	d := New(ch, Config{})
	require.NoError(t, d.WriteSync(":TRIGger:RUN"))
	assert.Equal(t, []string{"run", "opc", "read"}, order)
	ch.AssertExpectations(t)
}

func TestWriteSyncSkipsOperationCompleteOnWriteError(t *testing.T) {
	ch := &stubChannel{}
	boom := errors.New("broken pipe")
	ch.On("Write", ":TRIGger:STOP").Return(boom).Once()

	d := New(ch, Config{})
	err := d.WriteSync(":TRIGger:STOP")
	assert.ErrorIs(t, err, boom)
	ch.AssertNotCalled(t, "Write", OperationComplete)
}

func TestQueryTrimsReply(t *testing.T) {
	ch := &stubChannel{}
	ch.On("Write", ":TIMebase:SCALe?").Return(nil).Once()
	ch.On("Read").Return(" 5.00E-06\r\n", nil).Once()

	d := New(ch, Config{})
	reply, err := d.Query(":TIMebase:SCALe?")
	require.NoError(t, err)
	assert.Equal(t, "5.00E-06", reply)
}

func TestQueryPropagatesTransportErrors(t *testing.T) {
	timeout := errors.New("i/o timeout")

	ch := &stubChannel{}
	ch.On("Write", "*IDN?").Return(nil)
	ch.On("Read").Return("", timeout).Once()

	rec := &recordingLogger{}
	d := New(ch, Config{ProtocolLogger: rec, Address: "sim"})

	_, err := d.Query("*IDN?")
	require.ErrorIs(t, err, timeout)
	assert.Contains(t, err.Error(), "*IDN?")

	// No retry: exactly one write and one read.
	ch.AssertNumberOfCalls(t, "Write", 1)
	ch.AssertNumberOfCalls(t, "Read", 1)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, log.CategoryError, last.Category)
	assert.Equal(t, "*IDN?", last.Error.Context)
	assert.Equal(t, "sim", last.Address)
}

func TestQueryBytes(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF, 0x7F}

	ch := &stubChannel{}
	ch.On("Write", ":WAVeform:DATA?").Return(nil).Once()
	ch.On("ReadBinaryBlock").Return(payload, nil).Once()

	obs := &stubObserver{}
	obs.On("ObserveCommand", KindQueryBytes, len(payload), nil).Once()

	rec := &recordingLogger{}
	d := New(ch, Config{ProtocolLogger: rec, Observer: obs})

	got, err := d.QueryBytes(":WAVeform:DATA?")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	obs.AssertExpectations(t)

	require.Len(t, rec.events, 2)
	assert.Equal(t, log.CommandBlockQuery, rec.events[0].Command.Kind)
	assert.Equal(t, log.CommandBlock, rec.events[1].Command.Kind)
	assert.Equal(t, len(payload), rec.events[1].Command.Size)
	assert.NotNil(t, rec.events[1].Command.Elapsed)
}

func TestQueryBytesError(t *testing.T) {
	short := errors.New("binary block truncated")

	ch := &stubChannel{}
	ch.On("Write", ":WAVeform:PREamble?").Return(nil).Once()
	ch.On("ReadBinaryBlock").Return(nil, short).Once()

	obs := &stubObserver{}
	obs.On("ObserveCommand", KindQueryBytes, 0, mock.Anything).Once()

	d := New(ch, Config{Observer: obs})
	_, err := d.QueryBytes(":WAVeform:PREamble?")
	assert.ErrorIs(t, err, short)
	obs.AssertExpectations(t)
}

func TestProtocolEventsShareConnectionID(t *testing.T) {
	ch := &stubChannel{}
	ch.On("Write", mock.Anything).Return(nil)
	ch.On("Read").Return("1", nil)

	rec := &recordingLogger{}
	d := New(ch, Config{ProtocolLogger: rec})
	require.NotEmpty(t, d.ConnectionID())

	require.NoError(t, d.WriteSync("*RST"))
	require.Len(t, rec.events, 3)
	for _, e := range rec.events {
		assert.Equal(t, d.ConnectionID(), e.ConnectionID)
		assert.Equal(t, log.LayerDispatcher, e.Layer)
	}
	assert.Equal(t, log.DirectionOut, rec.events[0].Direction)
	assert.Equal(t, log.CommandQuery, rec.events[1].Command.Kind)
	assert.Equal(t, log.DirectionIn, rec.events[2].Direction)
}

func TestExplicitConnectionID(t *testing.T) {
	d := New(&stubChannel{}, Config{ConnectionID: "bench-1"})
	assert.Equal(t, "bench-1", d.ConnectionID())

	other := New(&stubChannel{}, Config{})
	assert.NotEqual(t, other.ConnectionID(), New(&stubChannel{}, Config{}).ConnectionID())
}

func TestClose(t *testing.T) {
	ch := &stubChannel{}
	ch.On("Close").Return(nil).Once()

	require.NoError(t, New(ch, Config{}).Close())
	ch.AssertExpectations(t)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "write", KindWrite.String())
	assert.Equal(t, "query", KindQuery.String())
	assert.Equal(t, "query_bytes", KindQueryBytes.String())
	assert.Equal(t, "unknown", Kind(7).String())
}
