package telemetry

import (
	"context"
	"fmt"

	"github.com/mklimuk/vario"
)

const TC74DefaultAddress = 0x4D

const (
	tc74TempRegister   = 0x00
	tc74ConfigRegister = 0x01

	tc74ConfigDataReady = 0x40
	tc74ConfigStandby   = 0x80
)

// TC74 represents a Microchip TC74 Digital Temperature Sensor
// See: https://ww1.microchip.com/downloads/en/DeviceDoc/21462D.pdf
//
// It usually shares the bus with the EEPROM.
type TC74 struct {
	transport vario.I2CBus
	address   byte
	lastTemp  float32
}

type TC74Config struct {
	Address byte
}

type TC74ConfigOption func(*TC74Config)

func WithAddress(address byte) TC74ConfigOption {
	return func(c *TC74Config) {
		c.Address = address
	}
}

func NewTC74(trans vario.I2CBus, opts ...TC74ConfigOption) *TC74 {
	config := &TC74Config{
		Address: TC74DefaultAddress,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &TC74{transport: trans, address: config.Address}
}

func (sensor *TC74) readRegister(ctx context.Context, reg byte) (byte, error) {
	err := sensor.transport.WriteToAddr(ctx, sensor.address, []byte{reg})
	if err != nil {
		return 0, fmt.Errorf("tc74: could not select register %#x: %w", reg, err)
	}
	resp := make([]byte, 1)
	err = sensor.transport.ReadFromAddr(ctx, sensor.address, resp)
	if err != nil {
		return 0, fmt.Errorf("tc74: could not read register %#x: %w", reg, err)
	}
	return resp[0], nil
}

// GetConfig returns the configuration register.
func (sensor *TC74) GetConfig(ctx context.Context) (byte, error) {
	return sensor.readRegister(ctx, tc74ConfigRegister)
}

// GetTemperature returns the temperature in Celsius. While the first conversion
// after power-up or standby is not ready the previous reading is returned.
func (sensor *TC74) GetTemperature(ctx context.Context) (float32, error) {
	config, err := sensor.GetConfig(ctx)
	if err != nil {
		return 0, err
	}
	if config&tc74ConfigStandby != 0 {
		return 0, fmt.Errorf("tc74: sensor in standby")
	}
	if config&tc74ConfigDataReady == 0 {
		return sensor.lastTemp, nil
	}
	raw, err := sensor.readRegister(ctx, tc74TempRegister)
	if err != nil {
		return 0, err
	}
	// two's complement, 1 degree per LSB
	sensor.lastTemp = float32(int8(raw))
	return sensor.lastTemp, nil
}
