package eink

// Panel controller commands.
const (
	cmdDriverOutput     = 0x01
	cmdBoosterSoftStart = 0x0C
	cmdDeepSleep        = 0x10
	cmdDataEntryMode    = 0x11
	cmdSoftReset        = 0x12
	cmdTempSensor       = 0x18
	cmdWriteTemp        = 0x1A
	cmdMasterActivation = 0x20
	cmdDisplayUpdate2   = 0x22
	cmdWriteRAM         = 0x24
	cmdWriteRAM2        = 0x26
	cmdBorderWaveform   = 0x3C
	cmdRAMXWindow       = 0x44
	cmdRAMYWindow       = 0x45
	cmdRAMXCounter      = 0x4E
	cmdRAMYCounter      = 0x4F
)

// Command arguments.
const (
	internalTempSensor = 0x80
	entryXIncYInc      = 0x03
	entryXDecYInc      = 0x02
	borderFollowLUT    = 0x01
	borderPartial      = 0x80
	tempFast           = 0x6A
	tempGray           = 0x5A
	updateFull         = 0xF7
	updateFast         = 0xD7
	updatePartial      = 0xFF
)

// boosterSoftStart are the booster phase settings shared by every mode.
var boosterSoftStart = []byte{cmdBoosterSoftStart, 0xAE, 0xC7, 0xC3, 0xC0, 0x80}

func lo(v int) byte { return byte(v % 256) }
func hi(v int) byte { return byte(v / 256) }

// driverOutput selects all gate lines.
func driverOutput() []byte {
	return []byte{cmdDriverOutput, lo(Height - 1), hi(Height - 1), 0x02}
}
