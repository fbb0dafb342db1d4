package panel

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// ST7789 is a 240x240 IPS controller.
var ST7789 = Variant{
	Name: "st7789",
	W:    240,
	H:    240,
	Orientation: [4]Orientation{
		{},
		{MirrorCols: true, Swap: true},
		{MirrorRows: true, MirrorCols: true},
		{MirrorRows: true, Swap: true},
	},
	Inverted: true,
	Init: []Step{
		{Cmd: 0xB2, Params: []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}}, // porch
		{Cmd: 0xB7, Params: []byte{0x35}},                         // gate
		{Cmd: 0xBB, Params: []byte{0x28}},                         // VCOM
		{Cmd: 0xC0, Params: []byte{0x0C}},                         // LCM
		{Cmd: 0xC2, Params: []byte{0x01, 0xFF}},                   // VDV/VRH enable
		{Cmd: 0xC3, Params: []byte{0x10}},                         // VRH
		{Cmd: 0xC4, Params: []byte{0x20}},                         // VDV
		{Cmd: 0xC6, Params: []byte{0x0F}},                         // 60Hz
	},
	Hz:         40 * physic.MegaHertz,
	BufferSize: 480,
	SwapDMA:    true,
}

// ILI9341 is a 240x320 portrait controller with BGR glass.
var ILI9341 = Variant{
	Name: "ili9341",
	W:    240,
	H:    320,
	Orientation: [4]Orientation{
		{MirrorRows: true},
		{MirrorRows: true, MirrorCols: true, Swap: true},
		{MirrorCols: true},
		{Swap: true},
	},
	ColorOrder: madBGR,
	Init:       iliPower,
	Hz:         40 * physic.MegaHertz,
	BufferSize: 960,
}

// ILI9342 is the 320x240 landscape sibling of the ILI9341.
var ILI9342 = Variant{
	Name: "ili9342",
	W:    320,
	H:    240,
	Orientation: [4]Orientation{
		{MirrorRows: true, MirrorCols: true},
		{MirrorRows: true, Swap: true},
		{},
		{MirrorCols: true, Swap: true},
	},
	Init:       iliPower,
	Hz:         40 * physic.MegaHertz,
	BufferSize: 960,
}

// ST7796 is a 320x480 controller.
var ST7796 = Variant{
	Name: "st7796",
	W:    320,
	H:    480,
	Orientation: [4]Orientation{
		{MirrorCols: true},
		{Swap: true},
		{MirrorRows: true},
		{MirrorRows: true, MirrorCols: true, Swap: true},
	},
	Init: []Step{
		{Cmd: 0xF0, Params: []byte{0xC3}},             // command set 2 part I
		{Cmd: 0xF0, Params: []byte{0x96}},             // command set 2 part II
		{Cmd: 0xB6, Params: []byte{0x80, 0x02, 0x3B}}, // display function
		{Cmd: 0xC0, Params: []byte{0x80}},
		{Cmd: 0xC1, Params: []byte{0x13}},
		{Cmd: 0xC2, Params: []byte{0xA7}},
		{Cmd: 0xC5, Params: []byte{0x09, 0x09}},
		{Cmd: 0xC6, Params: []byte{0x22}},
		{Cmd: 0xF0, Params: []byte{0x3C}},
		{Cmd: 0xF0, Params: []byte{0x69}, Delay: 120 * time.Millisecond},
	},
	Hz:         62500 * physic.KiloHertz,
	BufferSize: 4096,
}

var iliPower = []Step{
	{Cmd: 0xCB, Params: []byte{0x39, 0x2C, 0x00, 0x34, 0x02}},
	{Cmd: 0xCF, Params: []byte{0x00, 0xC1, 0x30}},
	{Cmd: 0xE8, Params: []byte{0x85, 0x00, 0x78}},
	{Cmd: 0xEA, Params: []byte{0x00, 0x00}},
	{Cmd: 0xED, Params: []byte{0x64, 0x03, 0x12, 0x81}},
	{Cmd: 0xF7, Params: []byte{0x20}},
	{Cmd: 0xC0, Params: []byte{0x23}},
	{Cmd: 0xC1, Params: []byte{0x10}},
	{Cmd: 0xC5, Params: []byte{0x3E, 0x28}},
	{Cmd: 0xC7, Params: []byte{0x86}},
	{Cmd: 0xB1, Params: []byte{0x00, 0x18}},
	{Cmd: 0xB6, Params: []byte{0x08, 0x82, 0x27}},
	{Cmd: 0xF2, Params: []byte{0x00}},
	{Cmd: 0x26, Params: []byte{0x01}},
}

var variants = map[string]Variant{
	ST7789.Name:  ST7789,
	ILI9341.Name: ILI9341,
	ILI9342.Name: ILI9342,
	ST7796.Name:  ST7796,
}
