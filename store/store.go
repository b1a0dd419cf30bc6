// Package store persists selected numeric readings from each poll cycle
// to a local timestamped SQLite table.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/manzanotti/geniushub-client-sub000/geniushub"
)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	entity      TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	metric      TEXT NOT NULL,
	value       REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_entity ON readings (entity, entity_id, metric);
`

// Open opens (creating if needed) the readings database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create readings table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordZone writes one row per numeric zone metric for this poll cycle.
func (s *Store) RecordZone(ts time.Time, z geniushub.Zone) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := fmt.Sprintf("%d", z.ID)
	if err := insertReading(tx, ts, "zone", id, "heat_request", boolMetric(z.IsRequestingHeat)); err != nil {
		return err
	}
	if z.Temperature != nil {
		if err := insertReading(tx, ts, "zone", id, "temperature", *z.Temperature); err != nil {
			return err
		}
	}
	if z.Setpoint != nil {
		v := z.Setpoint.Value
		if z.Setpoint.IsBool {
			v = boolMetric(z.Setpoint.On)
		}
		if err := insertReading(tx, ts, "zone", id, "setpoint", v); err != nil {
			return err
		}
	}
	if z.Occupied != nil {
		if err := insertReading(tx, ts, "zone", id, "occupied", boolMetric(*z.Occupied)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit zone readings: %w", err)
	}
	return nil
}

// RecordDevice writes one row per reported device state value.
func (s *Store) RecordDevice(ts time.Time, d geniushub.Device) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	metrics := map[string]*float64{
		"battery_level":        d.State.BatteryLevel,
		"set_temperature":      d.State.SetTemperature,
		"measured_temperature": d.State.MeasuredTemperature,
		"luminance":            d.State.Luminance,
		"occupancy_trigger":    d.State.OccupancyTrigger,
	}
	for metric, v := range metrics {
		if v == nil {
			continue
		}
		if err := insertReading(tx, ts, "device", d.ID, metric, *v); err != nil {
			return err
		}
	}
	if d.State.OutputOnOff != nil {
		if err := insertReading(tx, ts, "device", d.ID, "output_on_off", boolMetric(*d.State.OutputOnOff)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit device readings: %w", err)
	}
	return nil
}

func insertReading(tx *sql.Tx, ts time.Time, entity, entityID, metric string, value float64) error {
	_, err := tx.Exec(`INSERT INTO readings (recorded_at, entity, entity_id, metric, value) VALUES (?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339), entity, entityID, metric, value)
	if err != nil {
		return fmt.Errorf("failed to insert %s reading for %s %s: %w", metric, entity, entityID, err)
	}
	return nil
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
