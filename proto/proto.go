package proto

// Op identifies a companion chip command, carried in the high bits of the
// first byte of every transfer.
type Op uint8

const (
	OpUnknown Op = iota
	OpReadStatus
	OpWriteRow
	OpDisable
	OpEnable
	OpReset
	OpFilter
	OpMemConfig
)

func (o Op) String() string {
	switch o {
	case OpReadStatus:
		return "read_status"
	case OpWriteRow:
		return "write_row"
	case OpDisable:
		return "disable"
	case OpEnable:
		return "enable"
	case OpReset:
		return "reset"
	case OpFilter:
		return "filter"
	case OpMemConfig:
		return "mem_config"
	default:
		return "unknown"
	}
}

// Command bytes. Low bits carry the argument where the command takes one.
const (
	CmdReadStatus byte = 0x00
	CmdWriteRow   byte = 0x20
	CmdDisable    byte = 0x40
	CmdEnable     byte = 0x60
	CmdReset      byte = 0x80
	CmdFilter     byte = 0xC0
	CmdMemConfig  byte = 0xF0
)

// Status byte returned by CmdReadStatus.
const (
	StatusReady    byte = 0x80
	StatusEnabled  byte = 0x40
	StatusControls byte = 0x0F
)

// AttrInvert is bit 0 of the row attribute byte.
const AttrInvert byte = 0x01

// Blank is the character code the chip shows for an empty cell.
const Blank byte = 0x20

const (
	MaxRows      = 32
	MaxFilter    = 3
	MaxMemConfig = 0x0F
)

// BootMode selects the reset flavour sent in bit 0 of CmdReset.
type BootMode uint8

const (
	// BootSoft re-synchronizes the chip without touching display memory
	// or configuration.
	BootSoft BootMode = iota
	// BootCold restores display memory, filters and memory layout to
	// hardware defaults.
	BootCold
)

func (m BootMode) String() string {
	switch m {
	case BootSoft:
		return "soft"
	case BootCold:
		return "cold"
	default:
		return "invalid"
	}
}

// Valid reports whether m is a known boot mode.
func (m BootMode) Valid() bool { return m == BootSoft || m == BootCold }

// ResetCommand encodes a reset with the given boot mode.
func ResetCommand(mode BootMode) byte { return CmdReset | byte(mode)&0x01 }

// FilterCommand packs a filter pair. Callers validate the range first;
// out-of-range bits are masked.
func FilterCommand(lowRes, highRes uint8) byte {
	return CmdFilter | (highRes&0x03)<<2 | lowRes&0x03
}

// MemConfigCommand encodes a memory layout selection.
func MemConfigCommand(mem uint8) byte { return CmdMemConfig | mem&MaxMemConfig }

// StatusRequest returns the two byte read-status transfer. The reply lands
// in the second byte of the read buffer.
func StatusRequest() []byte { return []byte{CmdReadStatus, 0x00} }

// RowPayload encodes a row write into dst (grown if needed) and returns it.
//
// Layout:
//   - u8: CmdWriteRow | row
//   - u8: attribute (AttrInvert)
//   - cols x u8: character codes, text truncated or padded with Blank
func RowPayload(dst []byte, row int, text []byte, cols int, inverted bool) []byte {
	n := 2 + cols
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	dst[0] = CmdWriteRow | byte(row)&(MaxRows-1)
	dst[1] = 0
	if inverted {
		dst[1] = AttrInvert
	}
	cells := dst[2:]
	c := copy(cells, text)
	for i := c; i < len(cells); i++ {
		cells[i] = Blank
	}
	return dst
}

// Decode splits a command byte into its op and argument.
func Decode(cmd byte) (op Op, arg uint8) {
	switch {
	case cmd == CmdReadStatus:
		return OpReadStatus, 0
	case cmd&0xE0 == CmdWriteRow:
		return OpWriteRow, cmd & (MaxRows - 1)
	case cmd == CmdDisable:
		return OpDisable, 0
	case cmd == CmdEnable:
		return OpEnable, 0
	case cmd&0xFE == CmdReset:
		return OpReset, cmd & 0x01
	case cmd&0xF0 == CmdFilter:
		return OpFilter, cmd & 0x0F
	case cmd&0xF0 == CmdMemConfig:
		return OpMemConfig, cmd & MaxMemConfig
	default:
		return OpUnknown, 0
	}
}

// DecodeFilter unpacks the argument of an OpFilter command.
func DecodeFilter(arg uint8) (lowRes, highRes uint8) {
	return arg & 0x03, (arg >> 2) & 0x03
}
