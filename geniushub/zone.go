package geniushub

import (
	"fmt"
	"strconv"
)

// ConversionError reports a v3 field that could not be translated into
// its v1 shape. It names the owning entity so one bad field can be logged
// without losing the rest of the record.
type ConversionError struct {
	Entity string
	ID     string
	Field  string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s %s: cannot convert %s: %s", e.Entity, e.ID, e.Field, e.Reason)
}

func zoneConvErr(id int, field, format string, args ...any) *ConversionError {
	return &ConversionError{
		Entity: "zone",
		ID:     strconv.Itoa(id),
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// effectiveZoneType returns the zone's type code corrected for the one
// derived case: a TPI zone with subtype 0 is a wet underfloor circuit,
// not a hot water cylinder. Every type-dependent branch must use this,
// never the raw code.
func effectiveZoneType(raw rawZone) ZoneType {
	if ZoneType(raw.Type) == ZoneTypeTPI && raw.Subtype == 0 {
		return ZoneTypeControlOnOffPID
	}
	return ZoneType(raw.Type)
}

// deriveOccupancy computes whether a zone currently counts as occupied.
// All five conditions are required: a PIR kit is expected, it is not
// night, both reactive trigger flags are set, and there has been some
// recent activity.
func deriveOccupancy(raw rawZone) bool {
	if raw.FlagExpectedKit&int(KitPIR) == 0 {
		return false
	}
	if raw.Footprint == nil {
		return false
	}
	return !bool(raw.Footprint.IsNight) &&
		bool(raw.Trigger.Reactive) &&
		bool(raw.Trigger.Output) &&
		raw.Footprint.Reactive.ActivityLevel > 0
}

func typeSupportsOverride(zt ZoneType) bool {
	switch zt {
	case ZoneTypeOnOffTimer, ZoneTypeControlSP, ZoneTypeControlOnOffPID, ZoneTypeTPI:
		return true
	}
	return false
}

func typeHasSchedule(zt ZoneType) bool {
	return zt != ZoneTypeManager && zt != ZoneTypeSurrogate
}

// normalizeZone builds the v1 record for one raw v3 zone. It is a pure
// function and total: malformed sections are reported as ConversionErrors
// in the returned slice while the remaining sections still populate, so
// callers always get a best-effort record and one bad zone never aborts
// its siblings.
func normalizeZone(raw rawZone) (Zone, []error) {
	var errs []error
	zt := effectiveZoneType(raw)

	z := Zone{
		ID:               raw.ID,
		Name:             raw.Name,
		IsActive:         bool(raw.IsActive),
		IsRequestingHeat: bool(raw.OutRequestHeat),
		HasRoomSensor:    raw.FlagExpectedKit&int(KitPIR) != 0,
	}

	// Schema lookups fall back to the literal code so an unrecognized
	// zone never blocks the batch.
	if name, ok := zoneTypeNames[zt]; ok {
		z.Type = name
	} else {
		z.Type = strconv.Itoa(raw.Type)
		errs = append(errs, zoneConvErr(raw.ID, "iType", "unknown zone type code %d", raw.Type))
	}
	if name, ok := zoneModeNames[ZoneMode(raw.Mode)]; ok {
		z.Mode = name
	} else {
		z.Mode = strconv.Itoa(raw.Mode)
		errs = append(errs, zoneConvErr(raw.ID, "iMode", "unknown zone mode code %d", raw.Mode))
	}

	// Temperature and setpoint apply only to some zone types; on/off
	// timer setpoints are boolean demand, not degrees.
	switch zt {
	case ZoneTypeControlSP, ZoneTypeTPI:
		if raw.Temperature != nil {
			t := *raw.Temperature
			z.Temperature = &t
		} else {
			errs = append(errs, zoneConvErr(raw.ID, "fPV", "missing measured temperature"))
		}
		sp := TempSetpoint(raw.Setpoint)
		z.Setpoint = &sp
	case ZoneTypeManager:
		if raw.Temperature != nil {
			t := *raw.Temperature
			z.Temperature = &t
		}
	case ZoneTypeOnOffTimer:
		sp := OnOffSetpoint(raw.Setpoint != 0)
		z.Setpoint = &sp
	}

	if zt == ZoneTypeControlSP && raw.InHeatEnabled != nil {
		b := bool(*raw.InHeatEnabled)
		z.HeatInEnabled = &b
	}

	// Occupancy only exists for zones that expect a PIR; sensor-less
	// zones omit the key entirely rather than reporting false.
	if z.HasRoomSensor {
		if raw.Footprint == nil {
			errs = append(errs, zoneConvErr(raw.ID, "objFootprint", "missing footprint for zone with room sensor"))
		}
		occ := deriveOccupancy(raw)
		z.Occupied = &occ
	}

	if typeSupportsOverride(zt) && raw.BoostTimeRemaining != 0 {
		ov := Override{
			Duration: raw.BoostTimeRemaining,
			Setpoint: TempSetpoint(raw.BoostSetpoint),
		}
		if zt == ZoneTypeOnOffTimer {
			ov.Setpoint = OnOffSetpoint(raw.BoostSetpoint != 0)
		}
		z.Override = &ov
	}

	if typeHasSchedule(zt) {
		sched := &Schedule{}
		timer, err := buildTimerSchedule(raw.Timer, raw.Setpoint, zt == ZoneTypeOnOffTimer)
		if err != nil {
			errs = append(errs, zoneConvErr(raw.ID, "objTimer", "%s", err))
		}
		if len(timer) > 0 {
			sched.Timer = timer
		}
		// An empty lstSP means no footprint programme is configured, not a
		// broken one.
		if zt == ZoneTypeControlSP && raw.Footprint != nil && len(raw.Footprint.Setpoints) > 0 {
			fp, err := buildFootprintSchedule(raw.Footprint.Setpoints, raw.Footprint.AwaySetpoint, raw.Footprint.NightStart)
			if err != nil {
				errs = append(errs, zoneConvErr(raw.ID, "objFootprint.lstSP", "%s", err))
			}
			if len(fp) > 0 {
				sched.Footprint = fp
			}
		}
		if sched.Timer != nil || sched.Footprint != nil {
			z.Schedule = sched
		}
	}

	if zt == ZoneTypeControlSP && raw.Warmup != nil {
		z.WarmupDuration = &Warmup{
			RiseRate:  raw.Warmup.RiseRate,
			LagTime:   raw.Warmup.LagTime,
			TotalTime: raw.Warmup.TotalTime,
		}
	}

	return z, errs
}
