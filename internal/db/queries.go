package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"homehub/internal/models"

	"github.com/jackc/pgx/v5"
)

// FindDeviceBySerial fetches a device row. Returns models.ErrDeviceNotFound
// when no row matches.
func (d *DB) FindDeviceBySerial(ctx context.Context, serial string) (*models.Device, error) {
	var dev models.Device
	err := d.pool.QueryRow(ctx,
		"SELECT serial, name, space_id, account_id, power FROM devices WHERE serial = $1 AND deleted_at IS NULL",
		serial).
		Scan(&dev.Serial, &dev.Name, &dev.SpaceID, &dev.AccountID, &dev.Power)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

// FindRulesByInput fetches all non-deleted rules whose input is the given device.
func (d *DB) FindRulesByInput(ctx context.Context, deviceID string) ([]models.Rule, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, input_device_id, output_device_id, component_id, value_active, logic_operator, output_action, output_value
		 FROM device_links WHERE input_device_id = $1 AND deleted_at IS NULL ORDER BY id`,
		deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// FindRulesByOutput fetches all non-deleted rules targeting the given device.
func (d *DB) FindRulesByOutput(ctx context.Context, deviceID string) ([]models.Rule, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, input_device_id, output_device_id, component_id, value_active, logic_operator, output_action, output_value
		 FROM device_links WHERE output_device_id = $1 AND deleted_at IS NULL ORDER BY id`,
		deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]models.Rule, error) {
	var rules []models.Rule
	for rows.Next() {
		var r models.Rule
		if err := rows.Scan(&r.ID, &r.InputDeviceID, &r.OutputDeviceID, &r.ComponentID,
			&r.ValueActive, &r.LogicOperator, &r.OutputAction, &r.OutputValue); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// CreateHourlyValue persists one completed hour window.
func (d *DB) CreateHourlyValue(ctx context.Context, row models.HourlyValue) error {
	avg, err := json.Marshal(row.AvgValue)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx,
		"INSERT INTO hourly_values (device_serial, space_id, hour_timestamp, avg_value, sample_count) VALUES ($1, $2, $3, $4, $5)",
		row.DeviceSerial, row.SpaceID, row.HourTimestamp, avg, row.SampleCount)
	return err
}

// QueryHourlyValues fetches persisted hourly rows for a device within [from, to).
func (d *DB) QueryHourlyValues(ctx context.Context, serial string, from, to time.Time) ([]models.HourlyValue, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT device_serial, space_id, hour_timestamp, avg_value, sample_count
		 FROM hourly_values
		 WHERE device_serial = $1 AND hour_timestamp >= $2 AND hour_timestamp < $3 AND deleted_at IS NULL
		 ORDER BY hour_timestamp`,
		serial, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []models.HourlyValue
	for rows.Next() {
		var v models.HourlyValue
		var avg []byte
		if err := rows.Scan(&v.DeviceSerial, &v.SpaceID, &v.HourTimestamp, &avg, &v.SampleCount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(avg, &v.AvgValue); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// UpdateDeviceState updates a device's power state.
func (d *DB) UpdateDeviceState(ctx context.Context, deviceID string, power bool) error {
	_, err := d.pool.Exec(ctx, "UPDATE devices SET power = $1 WHERE serial = $2", power, deviceID)
	return err
}

// InsertActionLog records one dispatched automation command.
func (d *DB) InsertActionLog(ctx context.Context, cmd models.Command) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO device_actions_history (output_device_id, action, output_value, triggered_by, timestamp) VALUES ($1, $2, $3, $4, NOW())",
		cmd.OutputDeviceID, cmd.Action, cmd.OutputValue, cmd.TriggeredBy)
	return err
}
