package geniushub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatIssue(t *testing.T) {
	deviceTypes := map[string]string{"32": "Room Sensor"}

	tests := []struct {
		name     string
		raw      rawIssue
		wantDesc string
		wantLvl  string
	}{
		{
			name:     "no placeholders",
			raw:      rawIssue{ID: "manager:no_boiler_comms", Level: 2},
			wantDesc: "The hub has lost communication with the boiler controller",
			wantLvl:  "error",
		},
		{
			name:     "zone name substituted",
			raw:      rawIssue{ID: "zone:tpi_no_temp", Level: 1, Data: rawIssueData{Location: "Kitchen"}},
			wantDesc: "Kitchen currently has no valid temperature",
			wantLvl:  "warning",
		},
		{
			name:     "device type and zone substituted",
			raw:      rawIssue{ID: "node:low_battery", Level: 2, Data: rawIssueData{Location: "Kitchen", NodeID: "32"}},
			wantDesc: "The battery for the Room Sensor in Kitchen is dead and needs to be replaced",
			wantLvl:  "error",
		},
		{
			name:     "device missing from table",
			raw:      rawIssue{ID: "node:warn_battery", Level: 1, Data: rawIssueData{Location: "Hall", NodeID: "99"}},
			wantDesc: "The battery for the Unknown device in Hall is low",
			wantLvl:  "warning",
		},
		{
			name:     "unknown issue code keeps the literal code",
			raw:      rawIssue{ID: "node:exploded", Level: 0, Data: rawIssueData{Location: "Hall", NodeID: "32"}},
			wantDesc: "An unknown error for the Room Sensor in Hall was returned by the hub: node:exploded",
			wantLvl:  "information",
		},
		{
			name:     "unknown level is stringified",
			raw:      rawIssue{ID: "manager:no_temp", Level: 7},
			wantDesc: "The hub does not have a valid temperature",
			wantLvl:  "7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatIssue(tt.raw, deviceTypes)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.Equal(t, tt.wantLvl, got.Level)
		})
	}
}
