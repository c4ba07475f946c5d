package eeprom

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockI2CBus is a mock implementation of vario.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockTxBus additionally supports combined write-then-read transactions.
type MockTxBus struct {
	MockI2CBus
}

func (m *MockTxBus) TxAddr(ctx context.Context, address byte, w, r []byte) error {
	args := m.Called(ctx, address, w, r)
	if data, ok := args.Get(0).([]byte); ok {
		copy(r, data)
	}
	return args.Error(1)
}

func TestDriver_WriteByteAt(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x50), []byte{0x12, 0x34, 0xAB}).Return(nil).Once()

	err := New(bus).WriteByteAt(context.Background(), 0x50, 0x1234, 0xAB)

	assert.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestDriver_WriteBufferAt(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x51), []byte{0x00, 0x40, 0x01, 0x02, 0x03}).Return(nil).Once()

	err := New(bus).WriteBufferAt(context.Background(), 0x51, 0x0040, []byte{0x01, 0x02, 0x03})

	assert.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestDriver_ReadWithoutTransactor(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x50), []byte{0x7F, 0xFF}).Return(nil).Twice()
	bus.On("ReadFromAddr", mock.Anything, byte(0x50), mock.MatchedBy(func(b []byte) bool { return len(b) == 1 })).
		Return([]byte{0x42}, nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x50), mock.MatchedBy(func(b []byte) bool { return len(b) == 3 })).
		Return([]byte{0x01, 0x02, 0x03}, nil).Once()
	d := New(bus)
	ctx := context.Background()

	v, err := d.ReadByteAt(ctx, 0x50, 0x7FFF)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), v)

	buf := make([]byte, 3)
	require.NoError(t, d.ReadBufferAt(ctx, 0x50, 0x7FFF, buf))
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, buf)

	bus.AssertExpectations(t)
}

func TestDriver_ReadWithTransactor(t *testing.T) {
	bus := new(MockTxBus)
	bus.On("TxAddr", mock.Anything, byte(0x50), []byte{0x00, 0x08}, mock.Anything).
		Return([]byte{0xDE, 0xAD}, nil).Once()

	buf := make([]byte, 2)
	err := New(bus).ReadBufferAt(context.Background(), 0x50, 0x0008, buf)

	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD}, buf)
	bus.AssertExpectations(t)
	bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
	bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
}

func TestDriver_BusErrors(t *testing.T) {
	busErr := errors.New("nack")
	tests := []struct {
		name          string
		setupMock     func(*MockI2CBus)
		call          func(*Driver) error
		expectedError string
	}{
		{
			name: "write byte",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(0x50), mock.Anything).Return(busErr).Once()
			},
			call: func(d *Driver) error {
				return d.WriteByteAt(context.Background(), 0x50, 0x0001, 0x00)
			},
			expectedError: "eeprom: write byte at 0x0001 failed: nack",
		},
		{
			name: "write buffer",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(0x50), mock.Anything).Return(busErr).Once()
			},
			call: func(d *Driver) error {
				return d.WriteBufferAt(context.Background(), 0x50, 0x0100, []byte{0x01, 0x02})
			},
			expectedError: "eeprom: write 2 bytes at 0x0100 failed: nack",
		},
		{
			name: "read byte address phase",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(0x50), mock.Anything).Return(busErr).Once()
			},
			call: func(d *Driver) error {
				_, err := d.ReadByteAt(context.Background(), 0x50, 0x0002)
				return err
			},
			expectedError: "eeprom: read byte at 0x0002 failed: nack",
		},
		{
			name: "read buffer data phase",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(0x50), mock.Anything).Return(nil).Once()
				bus.On("ReadFromAddr", mock.Anything, byte(0x50), mock.Anything).Return(nil, busErr).Once()
			},
			call: func(d *Driver) error {
				return d.ReadBufferAt(context.Background(), 0x50, 0x0010, make([]byte, 4))
			},
			expectedError: "eeprom: read 4 bytes at 0x0010 failed: nack",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockI2CBus)
			tt.setupMock(bus)
			err := tt.call(New(bus))
			assert.EqualError(t, err, tt.expectedError)
			assert.ErrorIs(t, err, busErr)
			bus.AssertExpectations(t)
		})
	}
}

func TestDriver_ByteRoundTrip(t *testing.T) {
	bus := NewSimulatedBus()
	bus.AddDevice(DefaultDeviceAddress, 0)
	bus.AddDevice(0x57, 4096)
	d := New(bus)
	ctx := context.Background()

	tests := []struct {
		dev   byte
		addr  uint16
		value byte
	}{
		{DefaultDeviceAddress, 0x0000, 0x00},
		{DefaultDeviceAddress, 0x0001, 0xFF},
		{DefaultDeviceAddress, 0x7FFF, 0x5A},
		{0x57, 0x0FFF, 0xA5},
	}
	for _, tt := range tests {
		require.NoError(t, d.WriteByteAt(ctx, tt.dev, tt.addr, tt.value))
		v, err := d.ReadByteAt(ctx, tt.dev, tt.addr)
		require.NoError(t, err)
		assert.Equal(t, tt.value, v, "dev %#x addr %#x", tt.dev, tt.addr)
	}
}

func TestDriver_BufferRoundTrip(t *testing.T) {
	bus := NewSimulatedBus()
	bus.AddDevice(DefaultDeviceAddress, 0)
	d := New(bus)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(42))

	for _, length := range []int{0, 1, 2, 16, 32, 64, 200} {
		data := make([]byte, length)
		rnd.Read(data)
		addr := uint16(rnd.Intn(0x7000))

		require.NoError(t, d.WriteBufferAt(ctx, DefaultDeviceAddress, addr, data))
		got := make([]byte, length)
		require.NoError(t, d.ReadBufferAt(ctx, DefaultDeviceAddress, addr, got))
		assert.Equal(t, data, got, "length %d at %#x", length, addr)
	}
}

func TestDriver_WritesDoNotOverlap(t *testing.T) {
	bus := NewSimulatedBus()
	dev := bus.AddDevice(DefaultDeviceAddress, 16)
	d := New(bus)
	ctx := context.Background()

	require.NoError(t, d.WriteBufferAt(ctx, DefaultDeviceAddress, 0x0002, []byte{0x01, 0x02}))
	require.NoError(t, d.WriteByteAt(ctx, DefaultDeviceAddress, 0x0005, 0x03))

	expected := []byte{
		0xFF, 0xFF, 0x01, 0x02, 0xFF, 0x03, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	assert.Equal(t, expected, dev.Bytes())
}

func TestSimulatedBus_Errors(t *testing.T) {
	bus := NewSimulatedBus()
	bus.AddDevice(DefaultDeviceAddress, 16)
	ctx := context.Background()

	err := bus.WriteToAddr(ctx, 0x51, []byte{0x00, 0x00})
	assert.ErrorIs(t, err, ErrNoDevice)

	err = bus.ReadFromAddr(ctx, 0x51, make([]byte, 1))
	assert.ErrorIs(t, err, ErrNoDevice)

	err = bus.WriteToAddr(ctx, DefaultDeviceAddress, []byte{0x00})
	assert.ErrorIs(t, err, ErrShortAddress)

	_, err = New(bus).ReadByteAt(ctx, 0x52, 0x0000)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestSimulatedBus_AddressWraps(t *testing.T) {
	bus := NewSimulatedBus()
	dev := bus.AddDevice(DefaultDeviceAddress, 8)
	d := New(bus)
	ctx := context.Background()

	require.NoError(t, d.WriteBufferAt(ctx, DefaultDeviceAddress, 0x0006, []byte{0x0A, 0x0B, 0x0C}))
	assert.Equal(t, []byte{0x0C, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x0A, 0x0B}, dev.Bytes())
}

func TestSimulatedBus_RegisterDevice(t *testing.T) {
	bus := NewSimulatedBus()
	bus.AddRegisterDevice(0x4D, []byte{0x19, 0x40})
	ctx := context.Background()

	require.NoError(t, bus.WriteToAddr(ctx, 0x4D, []byte{0x01}))
	buf := make([]byte, 1)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x4D, buf))
	assert.Equal(t, byte(0x40), buf[0])

	require.NoError(t, bus.WriteToAddr(ctx, 0x4D, []byte{0x00}))
	require.NoError(t, bus.ReadFromAddr(ctx, 0x4D, buf))
	assert.Equal(t, byte(0x19), buf[0])

	err := bus.WriteToAddr(ctx, 0x4D, nil)
	assert.ErrorIs(t, err, ErrShortAddress)
}

func TestSimulatedDevice_Load(t *testing.T) {
	bus := NewSimulatedBus()
	dev := bus.AddDevice(DefaultDeviceAddress, 4)

	assert.Equal(t, 4, dev.Load([]byte{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, []byte{1, 2, 3, 4}, dev.Bytes())

	assert.Equal(t, 1, dev.Load([]byte{9}))
	assert.Equal(t, []byte{9, 2, 3, 4}, dev.Bytes())
}
