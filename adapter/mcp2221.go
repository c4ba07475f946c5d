package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/vario"
	"github.com/mklimuk/vario/vctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// maxPayload is the I2C data that fits a single 64 byte HID report.
const maxPayload = 60

const (
	cmdStatusSetParams = 0x10
	cmdI2CWrite        = 0x90
	cmdI2CRead         = 0x91
	cmdI2CGetData      = 0x40

	statusCancelTransfer = 0x10
	statusSetSpeed       = 0x20
	speedAccepted        = 0x20

	getDataError     = 0x41
	getDataSizeError = 127

	internalClock = 12_000_000
)

var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")
var ErrPayloadTooLarge = fmt.Errorf("payload exceeds %d bytes", maxPayload)

var _ vario.I2CBus = &MCP2221{}

type hidDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// MCP2221 drives a Microchip MCP2221(A) USB to I2C bridge over HID.
// The device is opened on first use and kept open until Close.
type MCP2221 struct {
	mx           sync.Mutex
	dev          hidDevice
	open         func() (hidDevice, error)
	index        int
	request      []byte
	response     []byte
	responseWait time.Duration
	log          *slog.Logger
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type MCP2221Opt func(*MCP2221)

// WithDeviceIndex picks one of several connected bridges (see ListDevices).
func WithDeviceIndex(index int) MCP2221Opt {
	return func(d *MCP2221) {
		d.index = index
	}
}

// WithResponseWait sets the pause between a request and reading its response.
func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 50 * time.Millisecond,
		log:          slog.Default().With("component", "mcp2221"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.open = d.openHID
	return d
}

// ListDevices returns every connected MCP2221.
func ListDevices() []hid.DeviceInfo {
	return hid.Enumerate(VendorID, ProductID)
}

func (d *MCP2221) openHID() (hidDevice, error) {
	devs := ListDevices()
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	if d.index < 0 || d.index >= len(devs) {
		return nil, fmt.Errorf("no device with index %d (%d connected)", d.index, len(devs))
	}
	dev, err := devs[d.index].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	d.log.Debug("device opened", "path", devs[d.index].Path, "serial", devs[d.index].Serial)
	return dev, nil
}

// Init opens the device. Calling it is optional; the first command opens it too.
func (d *MCP2221) Init() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.ensureOpen()
}

func (d *MCP2221) ensureOpen() error {
	if d.dev != nil {
		return nil
	}
	dev, err := d.open()
	if err != nil {
		return err
	}
	d.dev = dev
	return nil
}

func (d *MCP2221) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil
	return err
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(buffer) > maxPayload {
		return fmt.Errorf("write to %x: %w", address, ErrPayloadTooLarge)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CWrite
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] != 0x00 {
		d.log.Debug("adapter busy", "address", address)
		return vario.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(buffer) > maxPayload {
		return fmt.Errorf("read from %x: %w", address, ErrPayloadTooLarge)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CRead
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] != 0x00 {
		return vario.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdI2CGetData
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == getDataError {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine: %w", ErrCommandFailed)
	}
	if d.response[3] == getDataSizeError || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:4+len(buffer)])
	return nil
}

// SetSpeed sets the I2C clock in kHz.
func (d *MCP2221) SetSpeed(ctx context.Context, khz int) error {
	if khz <= 0 {
		return fmt.Errorf("invalid speed %d kHz", khz)
	}
	divider := internalClock/(khz*1000) - 3
	if divider < 0 || divider > 0xFF {
		return fmt.Errorf("speed %d kHz out of range", khz)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[3] = statusSetSpeed
	d.request[4] = byte(divider)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("set speed request failed: %w", err)
	}
	if d.response[3] != speedAccepted {
		return fmt.Errorf("speed not accepted (transfer in progress?): %w", ErrCommandFailed)
	}
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
		25: I2C read pending
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// Release cancels any pending transfer, freeing the bus.
func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[2] = statusCancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	verbose := vctx.IsVerbose(ctx)
	if verbose {
		d.log.Debug("sending message to adapter", "dump", "\n"+hex.Dump(d.request))
	}
	n, err := d.dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != len(d.request) {
		return fmt.Errorf("short write: %d", n)
	}
	if d.responseWait > 0 {
		timer := time.NewTimer(d.responseWait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n, err = d.dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != len(d.response) {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		d.log.Debug("read message from adapter", "dump", "\n"+hex.Dump(d.response))
	}
	if d.response[0] != d.request[0] {
		return fmt.Errorf("response to %#x echoes command %#x: %w", d.request[0], d.response[0], ErrCommandFailed)
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
