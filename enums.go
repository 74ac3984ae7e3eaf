package icsneo

import "fmt"

// DeviceType mirrors devicetype_t, the hardware product family code
// reported during enumeration.
type DeviceType uint32

const (
	DeviceTypeUnknown      DeviceType = 0x00000000
	DeviceTypeBlue         DeviceType = 0x00000001
	DeviceTypeECUAVB       DeviceType = 0x00000002
	DeviceTypeRADSupermoon DeviceType = 0x00000003
	DeviceTypeDWVCAN       DeviceType = 0x00000004
	DeviceTypeRADMoon2     DeviceType = 0x00000005
	DeviceTypeRADMars      DeviceType = 0x00000006
	DeviceTypeVCAN41       DeviceType = 0x00000007
	DeviceTypeFIRE         DeviceType = 0x00000008
	DeviceTypeRADPluto     DeviceType = 0x00000009
	DeviceTypeVCAN42EL     DeviceType = 0x0000000A
	DeviceTypeRADIOCANHub  DeviceType = 0x0000000B
	DeviceTypeNeoECU12     DeviceType = 0x0000000C
	DeviceTypeOBD2LCBadge  DeviceType = 0x0000000D
	DeviceTypeRADMoonDuo   DeviceType = 0x0000000E
	DeviceTypeFIRE3        DeviceType = 0x0000000F
	DeviceTypeVCAN3        DeviceType = 0x00000010
	DeviceTypeRADJupiter   DeviceType = 0x00000011
	DeviceTypeVCAN4Ind     DeviceType = 0x00000012
	DeviceTypeGigastar     DeviceType = 0x00000013
	DeviceTypeRED2         DeviceType = 0x00000014
	DeviceTypeEtherBadge   DeviceType = 0x00000016
	DeviceTypeRADA2B       DeviceType = 0x00000017
	DeviceTypeRADEpsilon   DeviceType = 0x00000018
	DeviceTypeRED          DeviceType = 0x00000040
	DeviceTypeECU          DeviceType = 0x00000080
	DeviceTypeIEVB         DeviceType = 0x00000100
	DeviceTypePendant      DeviceType = 0x00000200
	DeviceTypeOBD2Pro      DeviceType = 0x00000400
	DeviceTypeECUChip      DeviceType = 0x00000800
	DeviceTypePlasma       DeviceType = 0x00001000
	DeviceTypeNeoAnalog    DeviceType = 0x00004000
	DeviceTypeCTOBD        DeviceType = 0x00008000
	DeviceTypeION          DeviceType = 0x00040000
	DeviceTypeRADStar      DeviceType = 0x00080000
	DeviceTypeFIRE2        DeviceType = 0x00200000
	DeviceTypeFlex         DeviceType = 0x00400000
	DeviceTypeRADGalaxy    DeviceType = 0x00800000
	DeviceTypeRADStar2     DeviceType = 0x01000000
	DeviceTypeVividCAN     DeviceType = 0x02000000
	DeviceTypeOBD2Sim      DeviceType = 0x04000000
)

var deviceTypeNames = map[DeviceType]string{
	DeviceTypeUnknown:      "Unknown",
	DeviceTypeBlue:         "neoVI Blue",
	DeviceTypeECUAVB:       "neoECU AVB/TSN",
	DeviceTypeRADSupermoon: "RAD-Supermoon",
	DeviceTypeDWVCAN:       "DW_VCAN",
	DeviceTypeRADMoon2:     "RAD-Moon 2",
	DeviceTypeRADMars:      "RAD-Mars",
	DeviceTypeVCAN41:       "ValueCAN 4-1",
	DeviceTypeFIRE:         "neoVI FIRE",
	DeviceTypeRADPluto:     "RAD-Pluto",
	DeviceTypeVCAN42EL:     "ValueCAN 4-2EL",
	DeviceTypeRADIOCANHub:  "RAD-IO2 CANHub",
	DeviceTypeNeoECU12:     "neoECU 12",
	DeviceTypeOBD2LCBadge:  "neoOBD2 LC Badge",
	DeviceTypeRADMoonDuo:   "RAD-Moon Duo",
	DeviceTypeFIRE3:        "neoVI FIRE 3",
	DeviceTypeVCAN3:        "ValueCAN 3",
	DeviceTypeRADJupiter:   "RAD-Jupiter",
	DeviceTypeVCAN4Ind:     "ValueCAN 4 Industrial",
	DeviceTypeGigastar:     "RAD-Gigastar",
	DeviceTypeRED2:         "neoVI RED 2",
	DeviceTypeEtherBadge:   "EtherBADGE",
	DeviceTypeRADA2B:       "RAD-A2B",
	DeviceTypeRADEpsilon:   "RAD-Epsilon",
	DeviceTypeRED:          "neoVI RED",
	DeviceTypeECU:          "neoECU",
	DeviceTypeIEVB:         "IEVB",
	DeviceTypePendant:      "Pendant",
	DeviceTypeOBD2Pro:      "neoOBD2 Pro",
	DeviceTypeECUChip:      "neoECU Chip UART",
	DeviceTypePlasma:       "neoVI PLASMA",
	DeviceTypeNeoAnalog:    "NeoAnalog",
	DeviceTypeCTOBD:        "CT_OBD",
	DeviceTypeION:          "neoVI ION",
	DeviceTypeRADStar:      "RAD-Star",
	DeviceTypeFIRE2:        "neoVI FIRE 2",
	DeviceTypeFlex:         "neoVI Flex",
	DeviceTypeRADGalaxy:    "RAD-Galaxy",
	DeviceTypeRADStar2:     "RAD-Star 2",
	DeviceTypeVividCAN:     "VividCAN",
	DeviceTypeOBD2Sim:      "neoOBD2 Sim",
}

func (t DeviceType) String() string {
	if s, ok := deviceTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("DeviceType(0x%X)", uint32(t))
}

// NetID mirrors neonetid_t, a device-relative network identifier.
type NetID uint16

const (
	NetIDDevice  NetID = 0
	NetIDHSCAN   NetID = 1
	NetIDMSCAN   NetID = 2
	NetIDSWCAN   NetID = 3
	NetIDLSFTCAN NetID = 4
	NetIDLIN     NetID = 16
	NetIDHSCAN2  NetID = 42
	NetIDHSCAN3  NetID = 44
	NetIDHSCAN4  NetID = 61
	NetIDHSCAN5  NetID = 62
)

var netIDNames = map[NetID]string{
	NetIDDevice:  "Device",
	NetIDHSCAN:   "HSCAN",
	NetIDMSCAN:   "MSCAN",
	NetIDSWCAN:   "SWCAN",
	NetIDLSFTCAN: "LSFTCAN",
	NetIDLIN:     "LIN",
	NetIDHSCAN2:  "HSCAN2",
	NetIDHSCAN3:  "HSCAN3",
	NetIDHSCAN4:  "HSCAN4",
	NetIDHSCAN5:  "HSCAN5",
}

func (n NetID) String() string {
	if s, ok := netIDNames[n]; ok {
		return s
	}
	return fmt.Sprintf("NetID(%d)", uint16(n))
}

// NetType mirrors neonettype_t, the bus technology of a network.
type NetType uint8

const (
	NetTypeInvalid  NetType = 0
	NetTypeInternal NetType = 1
	NetTypeCAN      NetType = 2
	NetTypeLIN      NetType = 3
	NetTypeFlexRay  NetType = 4
	NetTypeMOST     NetType = 5
	NetTypeEthernet NetType = 6
	NetTypeLSFTCAN  NetType = 7
	NetTypeSWCAN    NetType = 8
	NetTypeISO9141  NetType = 9
	NetTypeAny      NetType = 0xFE
	NetTypeOther    NetType = 0xFF
)

var netTypeNames = map[NetType]string{
	NetTypeInvalid:  "Invalid",
	NetTypeInternal: "Internal",
	NetTypeCAN:      "CAN",
	NetTypeLIN:      "LIN",
	NetTypeFlexRay:  "FlexRay",
	NetTypeMOST:     "MOST",
	NetTypeEthernet: "Ethernet",
	NetTypeLSFTCAN:  "LSFTCAN",
	NetTypeSWCAN:    "SWCAN",
	NetTypeISO9141:  "ISO9141",
	NetTypeAny:      "Any",
	NetTypeOther:    "Other",
}

func (t NetType) String() string {
	if s, ok := netTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("NetType(%d)", uint8(t))
}

// IOType mirrors neoio_t, the selector for digital IO access.
type IOType uint32

const (
	IOEthernetActivation IOType = 0
	IOUSBHostPower       IOType = 1
	IOBackupPowerEnabled IOType = 2
	IOBackupPowerGood    IOType = 3
	IOMisc               IOType = 4
	IOEMisc              IOType = 5
)

var ioTypeNames = map[IOType]string{
	IOEthernetActivation: "EthernetActivation",
	IOUSBHostPower:       "USBHostPower",
	IOBackupPowerEnabled: "BackupPowerEnabled",
	IOBackupPowerGood:    "BackupPowerGood",
	IOMisc:               "Misc",
	IOEMisc:              "EMisc",
}

func (t IOType) String() string {
	if s, ok := ioTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("IOType(%d)", uint32(t))
}

// Severity classifies a native event.
type Severity uint8

const (
	SeverityInfo    Severity = 0x10
	SeverityWarning Severity = 0x20
	SeverityError   Severity = 0x30
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(0x%X)", uint8(s))
}
