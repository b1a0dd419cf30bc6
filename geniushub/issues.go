package geniushub

import (
	"strconv"
	"strings"
)

// formatIssue renders one raw hub issue against its description template.
// deviceTypes maps hub device ids to resolved model names; ids missing
// from the table substitute as "Unknown device" so formatting never
// fails for an unrecognized node.
func formatIssue(raw rawIssue, deviceTypes map[string]string) Issue {
	tmpl, ok := issueDescriptions[raw.ID]
	if !ok {
		tmpl = unknownIssueDescription + raw.ID
	}

	if strings.Contains(tmpl, "{zone_name}") {
		tmpl = strings.ReplaceAll(tmpl, "{zone_name}", raw.Data.Location)
	}
	if strings.Contains(tmpl, "{device_type}") {
		deviceType, found := deviceTypes[raw.Data.NodeID]
		if !found {
			deviceType = unknownDeviceDescription
		}
		tmpl = strings.ReplaceAll(tmpl, "{device_type}", deviceType)
	}

	level, ok := issueLevels[raw.Level]
	if !ok {
		level = strconv.Itoa(raw.Level)
	}

	return Issue{Description: tmpl, Level: level}
}
