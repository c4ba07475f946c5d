package vario

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// AddressableTransactor is implemented by buses able to write and then read
// within a single transaction (repeated start, no stop in between).
type AddressableTransactor interface {
	TxAddr(ctx context.Context, address byte, w, r []byte) error
}

// I2CBus is a shared two-wire bus. Devices hold a reference to it but never own it.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
