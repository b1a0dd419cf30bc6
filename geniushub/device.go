package geniushub

import (
	"fmt"
	"sort"
	"strings"
)

func deviceConvErr(id, field, format string, args ...any) *ConversionError {
	return &ConversionError{
		Entity: "device",
		ID:     id,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// flattenDeviceNodes walks the data manager tree depth-first and returns
// every node that looks like a physical device, in a deterministic order.
func flattenDeviceNodes(root rawDeviceNode) []rawDeviceNode {
	var out []rawDeviceNode
	var walk func(n rawDeviceNode)
	walk = func(n rawDeviceNode) {
		if isDeviceNode(n) {
			out = append(out, n)
		}
		keys := make([]string, 0, len(n.ChildNodes))
		for k := range n.ChildNodes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(n.ChildNodes[k])
		}
	}
	walk(root)
	return out
}

// A device node has a hub address plus either a hardware hash or a
// switch channel; structural nodes and the weather pseudo-node have
// neither.
func isDeviceNode(n rawDeviceNode) bool {
	if n.Addr == "" || n.Addr == "WeatherData" {
		return false
	}
	if _, ok := n.ChildValues[childValueHash]; ok {
		return true
	}
	_, ok := n.ChildValues[childValueSwitch]
	return ok
}

// normalizeDevice builds the v1 record for one device node. Like
// normalizeZone it is total: unknown hashes and malformed child values
// degrade the record instead of failing it.
func normalizeDevice(raw rawDeviceNode) (Device, []error) {
	var errs []error

	d := Device{
		ID:            raw.Addr,
		Type:          unknownDeviceType,
		AssignedZones: []AssignedZone{{}},
	}

	if cv, ok := raw.ChildValues[childValueHash]; ok {
		hash, ok := cv.Val.(string)
		if !ok {
			errs = append(errs, deviceConvErr(raw.Addr, "hash", "expected string, got %T", cv.Val))
		} else if model, found := deviceHashModels[hash]; found {
			d.Type = model
		}
	}
	if d.Type == unknownDeviceType {
		// Receiver channels have no hash of their own; the channel
		// number sits in the control path.
		if cv, ok := raw.ChildValues[childValueSwitch]; ok {
			if ch, ok := receiverChannel(cv.Path); ok {
				d.Type = "Dual Channel Receiver - Channel " + ch
			}
		}
	}

	// The assigned zone list always has exactly one element; the name is
	// null for unassigned devices.
	if cv, ok := raw.ChildValues[childValueLocation]; ok {
		if name, ok := cv.Val.(string); ok && name != "" {
			d.AssignedZones[0].Name = &name
		}
	}

	d.State, errs = buildDeviceState(raw, errs)
	return d, errs
}

// receiverChannel extracts the channel number from a nested SwitchBinary
// control path, e.g. "zwave/DualChannelReceiver/2/SwitchBinary" -> "2".
// Top-level switch paths have no channel component.
func receiverChannel(path string) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) < 4 || parts[len(parts)-1] != childValueSwitch {
		return "", false
	}
	return parts[len(parts)-2], true
}

func buildDeviceState(raw rawDeviceNode, errs []error) (DeviceState, []error) {
	var st DeviceState

	numeric := func(child string, dst **float64) {
		cv, ok := raw.ChildValues[child]
		if !ok {
			return
		}
		v, ok := cv.Val.(float64)
		if !ok {
			errs = append(errs, deviceConvErr(raw.Addr, child, "expected number, got %T", cv.Val))
			return
		}
		val := v
		*dst = &val
	}

	numeric(childValueBattery, &st.BatteryLevel)
	numeric(childValueHeating, &st.SetTemperature)
	numeric(childValueTemperature, &st.MeasuredTemperature)
	numeric(childValueLuminance, &st.Luminance)
	numeric(childValueMotion, &st.OccupancyTrigger)

	if cv, ok := raw.ChildValues[childValueSwitch]; ok {
		switch v := cv.Val.(type) {
		case bool:
			on := v
			st.OutputOnOff = &on
		case float64:
			on := v != 0
			st.OutputOnOff = &on
		default:
			errs = append(errs, deviceConvErr(raw.Addr, childValueSwitch, "expected number or bool, got %T", cv.Val))
		}
	}

	return st, errs
}
