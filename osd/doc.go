// Package osd drives an on-screen display overlay rendered by a companion
// video chip.
//
// A Device owns the transport to the chip (a hal.Bus) and serializes every
// command through it. It is made of four parts:
//
//   - the lifecycle controller (Reset, Enable, Disable), which owns the
//     overlay state and refuses other commands until the first successful
//     Reset;
//   - the display memory writer (WriteRow, Clear), which turns a row index,
//     character codes and an inversion flag into a fixed-width row write;
//   - the configuration port (SetFilter, SetMemoryConfig), which validates
//     before it writes and only records a value once the chip accepted it;
//   - the control decoder (GetControls), which debounces the Up, Down,
//     Select and Menu lines into the 0x01/0x02/0x04/0x08 bitmask.
//
// Overlay state moves Uninitialized -> Disabled <-> Enabled. Reset is valid
// in any state and always lands in Disabled, or in Uninitialized when the
// chip does not acknowledge.
//
// Errors fall in three classes, tested with errors.Is: ErrValidation and
// ErrSequence are caller bugs and never touch the bus; ErrHardwareFault
// reports a transport failure or a missing reset acknowledgement.
package osd
