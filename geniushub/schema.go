package geniushub

// This file holds the hub's integer/bitmask vocabulary and the lookup
// tables used to translate it into the v1 schema. Data only; the logic
// that applies these tables lives in zone.go, device.go and issues.go.

// ZoneType is the hub's integer zone type code.
//
// ControlOnOffPID is never sent by the hub itself: it is derived for TPI
// zones with subtype 0, and that correction must happen before any
// type-dependent branch (see effectiveZoneType).
type ZoneType int

const (
	ZoneTypeManager         ZoneType = 1
	ZoneTypeOnOffTimer      ZoneType = 2
	ZoneTypeControlSP       ZoneType = 3
	ZoneTypeControlOnOffPID ZoneType = 4
	ZoneTypeTPI             ZoneType = 5
	ZoneTypeSurrogate       ZoneType = 6
)

var zoneTypeNames = map[ZoneType]string{
	ZoneTypeManager:         "manager",
	ZoneTypeOnOffTimer:      "on / off",
	ZoneTypeControlSP:       "radiator",
	ZoneTypeControlOnOffPID: "wet underfloor",
	ZoneTypeTPI:             "hot water temperature",
	ZoneTypeSurrogate:       "group",
}

// ZoneMode is the hub's zone mode code. The values are bitmask-shaped but
// the hub only ever reports a single scalar mode.
type ZoneMode int

const (
	ZoneModeOff       ZoneMode = 1
	ZoneModeTimer     ZoneMode = 2
	ZoneModeFootprint ZoneMode = 4
	ZoneModeAway      ZoneMode = 8
	ZoneModeBoost     ZoneMode = 16
	ZoneModeEarly     ZoneMode = 32
	ZoneModeTest      ZoneMode = 64
	ZoneModeLinked    ZoneMode = 128
	ZoneModeOther     ZoneMode = 256
)

var zoneModeNames = map[ZoneMode]string{
	ZoneModeOff:       "off",
	ZoneModeTimer:     "timer",
	ZoneModeFootprint: "footprint",
	ZoneModeAway:      "away",
	ZoneModeBoost:     "override",
	ZoneModeEarly:     "early",
	ZoneModeTest:      "test",
	ZoneModeLinked:    "linked",
	ZoneModeOther:     "other",
}

var zoneModeCodes = func() map[string]ZoneMode {
	m := make(map[string]ZoneMode, len(zoneModeNames))
	for code, name := range zoneModeNames {
		m[name] = code
	}
	return m
}()

// KitFlag values are tested with bitwise AND against a zone's
// iFlagExpectedKit field.
type KitFlag int

const (
	KitTemp KitFlag = 1 << iota
	KitValve
	KitPIR
	KitPower
	KitSwitch
	KitDimmer
	KitAlarm
	KitGlobalTemp
	KitHumidity
	KitLuminance
)

// The hub reports weekdays as 0..6 starting on Sunday.
var weekdayNames = [7]string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

// deviceHashModels maps a node's hardware hash (manufacturer_product) to
// the v1 model name. Hashes not listed here resolve to "unknown" unless
// the receiver-channel special case in normalizeDevice applies.
var deviceHashModels = map[string]string{
	"0x00000059_0x00000001": "Radiator Valve",
	"0x00000059_0x00000002": "Room Thermostat",
	"0x00000059_0x00000003": "Room Sensor",
	"0x00000059_0x00000004": "Genius Valve",
	"0x00000060_0x00000001": "Smart Plug",
	"0x00000060_0x00000002": "Electric Switch",
	"0x00000099_0x00000001": "Single Channel Receiver",
	"0x00000099_0x00000002": "Dual Channel Receiver",
	"0x00000099_0x00000003": "Underfloor Receiver",
	"0x00000159_0x00000001": "Temperature Sensor",
}

const unknownDeviceType = "unknown"

// deviceStateSlugs maps a node's child value names to the canonical v1
// state slugs. SwitchBinary is booleanized; see normalizeDevice.
const (
	childValueBattery     = "Battery"
	childValueHeating     = "HEATING_1"
	childValueTemperature = "TEMPERATURE"
	childValueLuminance   = "LUMINANCE"
	childValueMotion      = "Motion"
	childValueSwitch      = "SwitchBinary"
	childValueLocation    = "location"
	childValueHash        = "hash"
)

// issueDescriptions maps the hub's issue codes to v1 description
// templates. {zone_name} and {device_type} are substituted from the raw
// issue's data block and the device table respectively.
var issueDescriptions = map[string]string{
	"manager:no_boiler_controller": "The hub does not have a boiler controller assigned",
	"manager:no_boiler_comms":      "The hub has lost communication with the boiler controller",
	"manager:no_temp":              "The hub does not have a valid temperature",
	"manager:weather":              "Unable to fetch the weather data",
	"manager:weather_data":         "Weather data -",
	"zone:using_weather_temp":      "{zone_name} is currently using the outside temperature",
	"zone:using_assumed_temp":      "{zone_name} is currently using the assumed temperature",
	"zone:tpi_no_temp":             "{zone_name} currently has no valid temperature",
	"node:no_comms":                "The {device_type} has lost communication with the Hub",
	"node:not_seen":                "The {device_type} in {zone_name} can not been found by the Hub",
	"node:low_battery":             "The battery for the {device_type} in {zone_name} is dead and needs to be replaced",
	"node:warn_battery":            "The battery for the {device_type} in {zone_name} is low",
}

// unknownIssueDescription is used for issue codes missing from the table;
// the literal code is appended so nothing is swallowed.
const unknownIssueDescription = "An unknown error for the {device_type} in {zone_name} was returned by the hub: "

const unknownDeviceDescription = "Unknown device"

var issueLevels = map[int]string{
	0: "information",
	1: "warning",
	2: "error",
}
