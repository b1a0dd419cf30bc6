package geniushub

import (
	"encoding/json"
	"fmt"
)

// The v1 record types below are what callers consume. The rawZone /
// rawDeviceNode types mirror the local v3 API's JSON and exist only as
// input to the normalizers; cloud v1 responses decode straight into the
// v1 records.

// Zone is the normalized v1 representation of a heating circuit.
//
// Temperature, Setpoint, Occupied, HeatInEnabled, Override, Schedule and
// WarmupDuration are present only for the zone types that support them;
// see normalizeZone. Zones without a room sensor omit the occupied key
// entirely rather than reporting false.
type Zone struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Mode             string    `json:"mode"`
	IsActive         bool      `json:"isActive"`
	IsRequestingHeat bool      `json:"isRequestingHeat"`
	HasRoomSensor    bool      `json:"hasRoomSensor"`
	Temperature      *float64  `json:"temperature,omitempty"`
	Setpoint         *Setpoint `json:"setpoint,omitempty"`
	Occupied         *bool     `json:"occupied,omitempty"`
	HeatInEnabled    *bool     `json:"heatInEnabled,omitempty"`
	Override         *Override `json:"override,omitempty"`
	Schedule         *Schedule `json:"schedule,omitempty"`
	WarmupDuration   *Warmup   `json:"warmupDuration,omitempty"`
}

// Setpoint is either a temperature in degrees C or, for on/off timer
// zones, a boolean demand value. It marshals as a bare number or bool to
// stay compatible with the v1 schema.
type Setpoint struct {
	Value  float64
	On     bool
	IsBool bool
}

// TempSetpoint returns a temperature setpoint.
func TempSetpoint(v float64) Setpoint { return Setpoint{Value: v} }

// OnOffSetpoint returns a boolean demand setpoint.
func OnOffSetpoint(on bool) Setpoint { return Setpoint{On: on, IsBool: true} }

func (s Setpoint) MarshalJSON() ([]byte, error) {
	if s.IsBool {
		return json.Marshal(s.On)
	}
	return json.Marshal(s.Value)
}

func (s *Setpoint) UnmarshalJSON(b []byte) error {
	var on bool
	if err := json.Unmarshal(b, &on); err == nil {
		*s = OnOffSetpoint(on)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("setpoint is neither number nor bool: %s", b)
	}
	*s = TempSetpoint(v)
	return nil
}

// Override is a temporary manual setpoint with a countdown, present only
// while the boost timer is running.
type Override struct {
	Duration int      `json:"duration"`
	Setpoint Setpoint `json:"setpoint"`
}

// Schedule holds the two weekly heating programmes of a zone.
type Schedule struct {
	Timer     map[string]DaySchedule `json:"timer,omitempty"`
	Footprint map[string]DaySchedule `json:"footprint,omitempty"`
}

// DaySchedule is one weekday of a reconstructed schedule.
type DaySchedule struct {
	DefaultSetpoint Setpoint        `json:"defaultSetpoint"`
	HeatingPeriods  []HeatingPeriod `json:"heatingPeriods"`
}

// HeatingPeriod is a contiguous span of a day at a non-default setpoint.
// Start and End are seconds since midnight; End is 86400 when the period
// runs to the end of the day.
type HeatingPeriod struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Setpoint Setpoint `json:"setpoint"`
}

// Warmup is the zone's warm-up profile, reported for radiator zones that
// have learned one.
type Warmup struct {
	RiseRate  float64 `json:"riseRate"`
	LagTime   int     `json:"lagTime"`
	TotalTime int     `json:"totalTime"`
}

// Device is the normalized v1 representation of a hub device.
type Device struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	AssignedZones []AssignedZone `json:"assignedZones"`
	State         DeviceState   `json:"state"`
}

// AssignedZone names the zone a device belongs to. The list always has
// exactly one element; Name is null when the device is unassigned.
type AssignedZone struct {
	Name *string `json:"name"`
}

// DeviceState carries the live values of a device, keyed by the canonical
// v1 slugs. Fields are present only when the source node reports them.
type DeviceState struct {
	OutputOnOff         *bool    `json:"outputOnOff,omitempty"`
	BatteryLevel        *float64 `json:"batteryLevel,omitempty"`
	SetTemperature      *float64 `json:"setTemperature,omitempty"`
	MeasuredTemperature *float64 `json:"measuredTemperature,omitempty"`
	Luminance           *float64 `json:"luminance,omitempty"`
	OccupancyTrigger    *float64 `json:"occupancyTrigger,omitempty"`
}

// Issue is a formatted hub issue.
type Issue struct {
	Description string `json:"description"`
	Level       string `json:"level"`
}

// Version reports the hub software release.
type Version struct {
	HubSoftwareVersion string `json:"hubSoftwareVersion"`
}

// flexBool accepts the hub's boolean-as-float fields (0/1, sometimes a
// real JSON bool) and decodes them to a plain bool.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexBool(v)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("value is neither bool nor number: %s", b)
	}
	*f = n != 0
	return nil
}

// rawZone mirrors one element of the v3 /zones response.
type rawZone struct {
	ID                 int                `json:"iID"`
	Name               string             `json:"strName"`
	Type               int                `json:"iType"`
	Subtype            int                `json:"zoneSubType"`
	Mode               int                `json:"iMode"`
	Temperature        *float64           `json:"fPV,omitempty"`
	Setpoint           float64            `json:"fSP"`
	FlagExpectedKit    int                `json:"iFlagExpectedKit"`
	IsActive           flexBool           `json:"bIsActive"`
	OutRequestHeat     flexBool           `json:"bOutRequestHeat"`
	InHeatEnabled      *flexBool          `json:"bInHeatEnabled,omitempty"`
	BoostTimeRemaining int                `json:"iBoostTimeRemaining"`
	BoostSetpoint      float64            `json:"fBoostSP"`
	Trigger            rawTrigger         `json:"trigger"`
	Footprint          *rawFootprint      `json:"objFootprint,omitempty"`
	Timer              []rawScheduleEvent `json:"objTimer"`
	Warmup             *rawWarmup         `json:"objWarmup,omitempty"`
	Issues             []rawIssue         `json:"lstIssues"`
}

type rawTrigger struct {
	Reactive flexBool `json:"reactive"`
	Output   flexBool `json:"output"`
}

type rawFootprint struct {
	AwaySetpoint float64            `json:"fFootprintAwaySP"`
	NightStart   int                `json:"iFootprintTmNightStart"`
	IsNight      flexBool           `json:"bIsNight"`
	Reactive     rawReactive        `json:"objReactive"`
	Setpoints    []rawScheduleEvent `json:"lstSP"`
}

type rawReactive struct {
	ActivityLevel float64 `json:"fActivityLevel"`
}

// rawScheduleEvent is one per-day setpoint change event. Time is seconds
// since midnight, or -1 for the day-start sentinel.
type rawScheduleEvent struct {
	Day      int     `json:"iDay"`
	Time     int     `json:"iTm"`
	Setpoint float64 `json:"fSP"`
}

type rawWarmup struct {
	RiseRate  float64 `json:"fRiseRate"`
	LagTime   int     `json:"iLagTime"`
	TotalTime int     `json:"iTotalTime"`
}

type rawIssue struct {
	ID    string       `json:"id"`
	Level int          `json:"level"`
	Data  rawIssueData `json:"data"`
}

type rawIssueData struct {
	Location string `json:"location"`
	NodeID   string `json:"nodeID"`
}

// rawDeviceNode is one node of the v3 data manager tree.
type rawDeviceNode struct {
	Addr        string                   `json:"addr"`
	ChildValues map[string]rawChildValue `json:"childValues"`
	ChildNodes  map[string]rawDeviceNode `json:"childNodes"`
}

type rawChildValue struct {
	Val  any    `json:"val"`
	Path string `json:"path"`
}
