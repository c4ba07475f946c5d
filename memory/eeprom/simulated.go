package eeprom

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/vario"
)

var ErrNoDevice = errors.New("no device acknowledged the address")
var ErrShortAddress = errors.New("write shorter than the memory address")

var _ vario.I2CBus = &SimulatedBus{}

// SimulatedBus models a two-wire bus with 24xx EEPROMs attached. It keeps each
// device's memory and internal address pointer so writes can be read back without
// hardware. Register devices with a one byte pointer (e.g. a TC74) can share it.
//
// Example usage:
//
//	bus := NewSimulatedBus()
//	bus.AddDevice(DefaultDeviceAddress, 32*1024)
//	mem := New(bus)
type SimulatedBus struct {
	mx      sync.Mutex
	devices map[byte]*SimulatedDevice
}

// SimulatedDevice is the memory of a single simulated EEPROM. Addresses wrap around
// the device size, as on a real part.
type SimulatedDevice struct {
	mem       []byte
	pointer   int
	addrBytes int
}

func NewSimulatedBus() *SimulatedBus {
	return &SimulatedBus{devices: make(map[byte]*SimulatedDevice)}
}

// AddDevice attaches an erased (0xFF filled) device of size bytes at address.
// A non-positive size selects a 24LC256 (32 KiB).
func (b *SimulatedBus) AddDevice(address byte, size int) *SimulatedDevice {
	b.mx.Lock()
	defer b.mx.Unlock()
	if size <= 0 {
		size = 32 * 1024
	}
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	dev := &SimulatedDevice{mem: mem, addrBytes: 2}
	b.devices[address] = dev
	return dev
}

// AddRegisterDevice attaches a device addressed with a single register byte and
// initialised with regs.
func (b *SimulatedBus) AddRegisterDevice(address byte, regs []byte) *SimulatedDevice {
	b.mx.Lock()
	defer b.mx.Unlock()
	mem := make([]byte, max(len(regs), 1))
	copy(mem, regs)
	dev := &SimulatedDevice{mem: mem, addrBytes: 1}
	b.devices[address] = dev
	return dev
}

// Load overwrites the start of the device memory with data and returns how many
// bytes were taken.
func (d *SimulatedDevice) Load(data []byte) int {
	return copy(d.mem, data)
}

// Bytes returns a copy of the device memory.
func (d *SimulatedDevice) Bytes() []byte {
	out := make([]byte, len(d.mem))
	copy(out, d.mem)
	return out
}

func (b *SimulatedBus) device(address byte) (*SimulatedDevice, error) {
	dev, ok := b.devices[address]
	if !ok {
		return nil, fmt.Errorf("simulated bus %#x: %w", address, ErrNoDevice)
	}
	return dev, nil
}

// WriteToAddr expects the device address bytes (two for memories, one for register
// devices) followed by optional data. An address-only write just moves the pointer,
// as a random read does.
func (b *SimulatedBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	dev, err := b.device(address)
	if err != nil {
		return err
	}
	if len(buffer) < dev.addrBytes {
		return fmt.Errorf("simulated bus %#x: %w", address, ErrShortAddress)
	}
	pointer := 0
	for _, v := range buffer[:dev.addrBytes] {
		pointer = pointer<<8 | int(v)
	}
	dev.pointer = pointer % len(dev.mem)
	for _, v := range buffer[dev.addrBytes:] {
		dev.mem[dev.pointer] = v
		dev.pointer = (dev.pointer + 1) % len(dev.mem)
	}
	return nil
}

// ReadFromAddr performs a sequential read from the current pointer.
func (b *SimulatedBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	dev, err := b.device(address)
	if err != nil {
		return err
	}
	for i := range buffer {
		buffer[i] = dev.mem[dev.pointer]
		dev.pointer = (dev.pointer + 1) % len(dev.mem)
	}
	return nil
}

func (b *SimulatedBus) Release(ctx context.Context) error {
	return nil
}
