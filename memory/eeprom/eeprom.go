// Package eeprom provides byte level access to two-wire (I2C) serial EEPROMs of the
// 24xx family, addressed with a device address and a 16-bit memory address.
//
// The driver is a thin pass-through to the bus: it does not page, chunk, retry or
// bounds-check. Keeping a write within a device page and a read within the bus
// transaction limit is up to the caller.
//
// Example usage:
//
//	bus, _ := i2c.NewGenericBus("/dev/i2c-1")
//	mem := eeprom.New(bus)
//	_ = mem.WriteBufferAt(ctx, 0x50, 0x0100, []byte("vario"))
//	buf := make([]byte, 5)
//	_ = mem.ReadBufferAt(ctx, 0x50, 0x0100, buf)
package eeprom

import (
	"context"
	"fmt"

	"github.com/mklimuk/vario"
)

// DefaultDeviceAddress is the 7-bit address of a 24xx EEPROM with A2..A0 tied low.
const DefaultDeviceAddress = 0x50

// Driver performs addressed byte I/O on a shared bus. It never owns the bus.
type Driver struct {
	bus vario.I2CBus
}

func New(bus vario.I2CBus) *Driver {
	return &Driver{bus: bus}
}

// WriteByteAt writes a single byte at memAddr.
func (d *Driver) WriteByteAt(ctx context.Context, devAddr byte, memAddr uint16, value byte) error {
	hi, lo := splitAddress(memAddr)
	err := d.bus.WriteToAddr(ctx, devAddr, []byte{hi, lo, value})
	if err != nil {
		return fmt.Errorf("eeprom: write byte at %#04x failed: %w", memAddr, err)
	}
	return nil
}

// WriteBufferAt writes data in one transaction starting at memAddr.
func (d *Driver) WriteBufferAt(ctx context.Context, devAddr byte, memAddr uint16, data []byte) error {
	hi, lo := splitAddress(memAddr)
	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, hi, lo)
	frame = append(frame, data...)
	err := d.bus.WriteToAddr(ctx, devAddr, frame)
	if err != nil {
		return fmt.Errorf("eeprom: write %d bytes at %#04x failed: %w", len(data), memAddr, err)
	}
	return nil
}

// ReadByteAt reads a single byte from memAddr.
func (d *Driver) ReadByteAt(ctx context.Context, devAddr byte, memAddr uint16) (byte, error) {
	buf := make([]byte, 1)
	if err := d.read(ctx, devAddr, memAddr, buf); err != nil {
		return 0, fmt.Errorf("eeprom: read byte at %#04x failed: %w", memAddr, err)
	}
	return buf[0], nil
}

// ReadBufferAt fills buf with len(buf) bytes starting at memAddr.
func (d *Driver) ReadBufferAt(ctx context.Context, devAddr byte, memAddr uint16, buf []byte) error {
	if err := d.read(ctx, devAddr, memAddr, buf); err != nil {
		return fmt.Errorf("eeprom: read %d bytes at %#04x failed: %w", len(buf), memAddr, err)
	}
	return nil
}

// read sets the device address pointer and then reads sequentially from it.
func (d *Driver) read(ctx context.Context, devAddr byte, memAddr uint16, buf []byte) error {
	hi, lo := splitAddress(memAddr)
	if tx, ok := d.bus.(vario.AddressableTransactor); ok {
		return tx.TxAddr(ctx, devAddr, []byte{hi, lo}, buf)
	}
	if err := d.bus.WriteToAddr(ctx, devAddr, []byte{hi, lo}); err != nil {
		return err
	}
	return d.bus.ReadFromAddr(ctx, devAddr, buf)
}

func splitAddress(memAddr uint16) (byte, byte) {
	return byte(memAddr >> 8), byte(memAddr)
}
