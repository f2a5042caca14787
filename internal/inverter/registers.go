package inverter

// Kind selects how raw register words become a number.
type Kind int

const (
	Unsigned16 Kind = iota
	Signed16
	// Unsigned32 combines two words with the high word first.
	Unsigned32
)

// RegisterSpec describes one measurement in the reverse-engineered
// register map. The table is immutable after startup.
type RegisterSpec struct {
	Name        string
	DisplayName string
	Address     uint16
	Count       uint16
	Kind        Kind
	Scale       float64
	Precision   int
	Unit        string
	DeviceClass string
	StateClass  string
	Icon        string
	// Invert marks charge/discharge measurements whose sign is flipped
	// when the global inversion option is enabled.
	Invert bool
}

// The map below is reverse engineered from the inverter's RS232 port and
// is known to be incomplete. Addresses and scales must not be changed
// without re-verifying against the device.
var registerMap = []RegisterSpec{
	{Name: "total_output_load", DisplayName: "Total Output Load", Address: 256, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "%", DeviceClass: "battery", StateClass: "measurement", Icon: "mdi:reload"},
	{Name: "battery_voltage", DisplayName: "Battery Voltage", Address: 277, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", Icon: "mdi:flash-triangle-outline"},
	{Name: "battery_current", DisplayName: "Battery Current", Address: 278, Count: 1, Kind: Signed16, Scale: 0.1, Precision: 1, Unit: "A", DeviceClass: "current", Icon: "mdi:current-ac", Invert: true},
	{Name: "battery_power", DisplayName: "Battery Power", Address: 279, Count: 1, Kind: Signed16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", Icon: "mdi:flash-outline", Invert: true},
	{Name: "battery_soc", DisplayName: "Battery State of Charge", Address: 280, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "%", DeviceClass: "battery", Icon: "mdi:battery-charging-50"},
	{Name: "total_pv_power", DisplayName: "Total PV Power", Address: 302, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "grid_input_voltage", DisplayName: "Grid Input Voltage", Address: 338, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "grid_power", DisplayName: "Grid Power", Address: 340, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "grid_line_voltage", DisplayName: "Grid Line Voltage", Address: 342, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "total_output_power", DisplayName: "Total Output Power", Address: 344, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "VA", DeviceClass: "apparent_power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "l1_voltage", DisplayName: "L1 Voltage", Address: 346, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "l1_current", DisplayName: "L1 Current", Address: 347, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "A", DeviceClass: "current", StateClass: "measurement", Icon: "mdi:current-ac"},
	{Name: "l1_power", DisplayName: "L1 Power", Address: 348, Count: 1, Kind: Signed16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "l1_apparent_power", DisplayName: "L1 Apparent Power", Address: 349, Count: 1, Kind: Signed16, Scale: 1, Precision: 0, Unit: "VA", DeviceClass: "apparent_power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "l1_load", DisplayName: "L1 Load", Address: 350, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "%", DeviceClass: "battery", StateClass: "measurement", Icon: "mdi:reload"},
	{Name: "pv1_voltage", DisplayName: "PV1 Voltage", Address: 351, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "pv1_current", DisplayName: "PV1 Current", Address: 352, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "A", DeviceClass: "current", StateClass: "measurement", Icon: "mdi:current-ac"},
	{Name: "pv1_power", DisplayName: "PV1 Power", Address: 353, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "l2_voltage", DisplayName: "L2 Voltage", Address: 384, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "l2_current", DisplayName: "L2 Current", Address: 385, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "A", DeviceClass: "current", StateClass: "measurement", Icon: "mdi:current-ac"},
	{Name: "l2_apparent_power", DisplayName: "L2 Apparent Power", Address: 386, Count: 1, Kind: Signed16, Scale: 1, Precision: 0, Unit: "VA", DeviceClass: "apparent_power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "l2_power", DisplayName: "L2 Power", Address: 387, Count: 1, Kind: Signed16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "l2_load", DisplayName: "L2 Load", Address: 388, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "%", DeviceClass: "battery", StateClass: "measurement", Icon: "mdi:reload"},
	{Name: "pv2_voltage", DisplayName: "PV2 Voltage", Address: 389, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "pv2_current", DisplayName: "PV2 Current", Address: 390, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "A", DeviceClass: "current", StateClass: "measurement", Icon: "mdi:current-ac"},
	{Name: "pv2_power", DisplayName: "PV2 Power", Address: 391, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "voltage_conf", DisplayName: "Voltage Configuration", Address: 606, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "l2_power_conf", DisplayName: "L2 Power Configuration", Address: 607, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "W", DeviceClass: "power", StateClass: "measurement", Icon: "mdi:flash-outline"},
	{Name: "frequency_conf", DisplayName: "Frequency Configuration", Address: 608, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Unit: "Hz", DeviceClass: "frequency", StateClass: "measurement", Icon: "mdi:waveform"},
	{Name: "floating_charging_voltage", DisplayName: "Floating Charging Voltage", Address: 638, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "max_total_charging_current", DisplayName: "Max Total Charging Current", Address: 640, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "A", DeviceClass: "current", StateClass: "measurement", Icon: "mdi:current-ac"},
	{Name: "max_grid_charging_current", DisplayName: "Max Grid Charging Current", Address: 641, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "A", DeviceClass: "current", StateClass: "measurement", Icon: "mdi:current-ac"},
	{Name: "soc_point_back_to_utility", DisplayName: "SOC Point Back to Utility", Address: 644, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "l1_cutoff_voltage", DisplayName: "L1 Cutoff Voltage", Address: 645, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "l2_cutoff_voltage", DisplayName: "L2 Cutoff Voltage", Address: 646, Count: 1, Kind: Unsigned16, Scale: 0.1, Precision: 1, Unit: "V", DeviceClass: "voltage", StateClass: "measurement", Icon: "mdi:flash-triangle-outline"},
	{Name: "year", DisplayName: "Year", Address: 696, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Icon: "mdi:calendar-month"},
	{Name: "month", DisplayName: "Month", Address: 697, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Icon: "mdi:calendar-month"},
	{Name: "day", DisplayName: "Day", Address: 698, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Icon: "mdi:calendar-today"},
	{Name: "hour", DisplayName: "Hour", Address: 699, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Icon: "mdi:clock-outline"},
	{Name: "minute", DisplayName: "Minute", Address: 700, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Icon: "mdi:clock-outline"},
	{Name: "second", DisplayName: "Second", Address: 701, Count: 1, Kind: Unsigned16, Scale: 1, Precision: 0, Icon: "mdi:clock-outline"},
	{Name: "energy_today", DisplayName: "Energy Today", Address: 702, Count: 1, Kind: Unsigned16, Scale: 0.01, Precision: 2, Unit: "kWh", DeviceClass: "energy", StateClass: "total_increasing", Icon: "mdi:flash-outline"},
	{Name: "energy_year", DisplayName: "Energy Year", Address: 704, Count: 1, Kind: Unsigned16, Scale: 0.01, Precision: 2, Unit: "kWh", DeviceClass: "energy", StateClass: "total_increasing", Icon: "mdi:flash-outline"},
}

// Registers returns the register map in ascending address order. Callers
// must treat the returned slice as read-only.
func Registers() []RegisterSpec {
	return registerMap
}
