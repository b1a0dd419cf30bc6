package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	wx "github.com/cdzombak/libwx"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/influxdata/influxdb-client-go/v2"
	influxdb2api "github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/manzanotti/geniushub-client-sub000/geniushub"
	"github.com/manzanotti/geniushub-client-sub000/store"
)

type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	Server    string `json:"server"`
	Port      int    `json:"port,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	TopicRoot string `json:"topic_root"`
}

// Config describes the monitor's configuration. It is used to parse the
// configuration JSON file. Set token for the cloud v1 API, or hub_host
// plus username/password for a hub on the local network.
type Config struct {
	HubHost                   string     `json:"hub_host,omitempty"`
	Username                  string     `json:"username,omitempty"`
	Password                  string     `json:"password,omitempty"`
	Token                     string     `json:"token,omitempty"`
	PollIntervalSeconds       int        `json:"poll_interval_seconds,omitempty"`
	InfluxServer              string     `json:"influx_server,omitempty"`
	InfluxOrg                 string     `json:"influx_org,omitempty"`
	InfluxUser                string     `json:"influx_user,omitempty"`
	InfluxPass                string     `json:"influx_password,omitempty"`
	InfluxToken               string     `json:"influx_token,omitempty"`
	InfluxBucket              string     `json:"influx_bucket,omitempty"`
	InfluxHealthCheckDisabled bool       `json:"influx_health_check_disabled"`
	SQLitePath                string     `json:"sqlite_path,omitempty"`
	MQTT                      MQTTConfig `json:"mqtt"`
}

const (
	zoneNameTag   = "zone_name"
	zoneIDTag     = "zone_id"
	deviceIDTag   = "device_id"
	deviceTypeTag = "device_type"
	source        = "geniushub"
	sourceTag     = "data_source"
)

var version = "<dev>"

func main() {
	configFile := flag.String("config", "", "Configuration JSON file.")
	listZones := flag.Bool("list-zones", false, "List the hub's zones, then exit.")
	listDevices := flag.Bool("list-devices", false, "List the hub's devices, then exit.")
	listIssues := flag.Bool("list-issues", false, "List the hub's current issues, then exit.")
	printVersion := flag.Bool("version", false, "Print version and exit.")
	flag.Parse()

	if *printVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *configFile == "" {
		fmt.Println("-config is required.")
		os.Exit(1)
	}

	config := Config{}
	cfgBytes, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatalf("Unable to read config file '%s': %s", *configFile, err)
	}
	if err = json.Unmarshal(cfgBytes, &config); err != nil {
		log.Fatalf("Unable to parse config file '%s': %s", *configFile, err)
	}

	var client *geniushub.Client
	if config.Token != "" {
		client = geniushub.NewCloudClient(config.Token)
	} else if config.HubHost != "" && config.Username != "" {
		client = geniushub.NewLocalClient(config.HubHost, config.Username, config.Password)
	} else {
		log.Fatal("Either token, or hub_host plus username/password, must be set in the config file.")
	}

	ctx := context.Background()

	if *listZones {
		zones, err := client.GetZones(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, z := range zones {
			fmt.Printf("'%s': ID %d (%s, mode %s)\n", z.Name, z.ID, z.Type, z.Mode)
		}
		os.Exit(0)
	}
	if *listDevices {
		devices, err := client.GetDevices(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, d := range devices {
			zone := "unassigned"
			if len(d.AssignedZones) > 0 && d.AssignedZones[0].Name != nil {
				zone = *d.AssignedZones[0].Name
			}
			fmt.Printf("'%s': %s (%s)\n", d.ID, d.Type, zone)
		}
		os.Exit(0)
	}
	if *listIssues {
		issues, err := client.GetIssues(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, i := range issues {
			fmt.Printf("[%s] %s\n", i.Level, i.Description)
		}
		os.Exit(0)
	}

	var influxClient influxdb2.Client
	var influxWriteAPI influxdb2api.WriteAPIBlocking
	influxEnabled := config.InfluxServer != "" && config.InfluxBucket != ""
	const influxTimeout = 3 * time.Second

	if influxEnabled {
		authString := ""
		if config.InfluxUser != "" || config.InfluxPass != "" {
			authString = fmt.Sprintf("%s:%s", config.InfluxUser, config.InfluxPass)
		} else if config.InfluxToken != "" {
			authString = config.InfluxToken
		}
		influxClient = influxdb2.NewClient(config.InfluxServer, authString)
		if !config.InfluxHealthCheckDisabled {
			hcCtx, cancel := context.WithTimeout(ctx, influxTimeout)
			defer cancel()
			health, err := influxClient.Health(hcCtx)
			if err != nil {
				log.Fatalf("failed to check InfluxDB health: %v", err)
			}
			if health.Status != "pass" {
				log.Fatalf("InfluxDB did not pass health check: status %s; message '%s'", health.Status, *health.Message)
			}
		}
		influxWriteAPI = influxClient.WriteAPIBlocking(config.InfluxOrg, config.InfluxBucket)
		log.Printf("Connected to InfluxDB at %s", config.InfluxServer)
	} else {
		log.Printf("InfluxDB is not configured, data will not be written to InfluxDB")
	}

	var mqttClient mqtt.Client
	mqttEnabled := config.MQTT.Enabled
	if mqttEnabled {
		if config.MQTT.Server == "" || config.MQTT.TopicRoot == "" {
			log.Fatalf("MQTT is enabled but server or topic_root is not set in the config file.")
		}

		opts := mqtt.NewClientOptions()
		port := config.MQTT.Port
		if port == 0 {
			port = 1883 // Default MQTT port
		}
		broker := fmt.Sprintf("tcp://%s:%d", config.MQTT.Server, port)
		opts.AddBroker(broker)

		if config.MQTT.Username != "" {
			opts.SetUsername(config.MQTT.Username)
			opts.SetPassword(config.MQTT.Password)
		}

		opts.SetClientID(fmt.Sprintf("geniushub_monitor_%d", time.Now().Unix()))
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)

		mqttClient = mqtt.NewClient(opts)
		if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", token.Error())
		}

		log.Printf("Connected to MQTT broker at %s", broker)
	}

	var readings *store.Store
	if config.SQLitePath != "" {
		readings, err = store.Open(config.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open readings database: %v", err)
		}
		defer readings.Close()
		log.Printf("Recording readings to %s", config.SQLitePath)
	}

	// Require at least one output method to be enabled:
	if !influxEnabled && !mqttEnabled && readings == nil {
		log.Fatalf("At least one output method (InfluxDB, MQTT, or SQLite) must be configured")
	}

	writeInflux := func(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
		if !influxEnabled {
			return
		}
		if err := retry.Do(func() error {
			wrCtx, cancel := context.WithTimeout(ctx, influxTimeout)
			defer cancel()
			return influxWriteAPI.WritePoint(wrCtx,
				influxdb2.NewPoint(measurement, tags, fields, ts))
		}, retry.Attempts(3), retry.Delay(1*time.Second)); err != nil {
			log.Printf("failed to write %s point: %v", measurement, err)
		}
	}

	doUpdate := func() {
		if err := retry.Do(
			func() error {
				zones, err := client.GetZones(ctx)
				if err != nil {
					return err
				}
				devices, err := client.GetDevices(ctx)
				if err != nil {
					return err
				}
				issues, err := client.GetIssues(ctx)
				if err != nil {
					return err
				}
				now := time.Now()

				for _, z := range zones {
					fields := map[string]any{
						"is_active":    z.IsActive,
						"heat_request": z.IsRequestingHeat,
					}
					if z.Temperature != nil {
						temp := wx.TempC(*z.Temperature)
						fields["temperature"] = temp.Unwrap()
						fields["temperature_c"] = temp.Unwrap()
						fields["temperature_f"] = temp.F().Unwrap()
					}
					if z.Setpoint != nil {
						if z.Setpoint.IsBool {
							fields["setpoint_on"] = z.Setpoint.On
						} else {
							sp := wx.TempC(z.Setpoint.Value)
							fields["set_point"] = sp.Unwrap()
							fields["set_point_c"] = sp.Unwrap()
							fields["set_point_f"] = sp.F().Unwrap()
						}
					}
					if z.Occupied != nil {
						fields["occupied"] = *z.Occupied
					}

					fmt.Printf("Zone '%s' at %s:\n", z.Name, now.Format(time.RFC3339))
					if z.Temperature != nil {
						fmt.Printf("\ttemperature: %.1f degC\n", *z.Temperature)
					}
					fmt.Printf("\tmode: %s\n\theat request: %t\n", z.Mode, z.IsRequestingHeat)

					writeInflux("geniushub_zone", map[string]string{
						zoneNameTag: z.Name,
						zoneIDTag:   strconv.Itoa(z.ID),
						"mode":      z.Mode,
						sourceTag:   source,
					}, fields, now)

					if mqttEnabled && mqttClient != nil {
						if err := publishFieldsToMQTT(mqttClient, config, "zone/"+z.Name, fields); err != nil {
							log.Printf("MQTT publish for zone '%s': %v", z.Name, err)
						}
					}
					if readings != nil {
						if err := readings.RecordZone(now, z); err != nil {
							log.Printf("failed to record zone '%s': %v", z.Name, err)
						}
					}
				}

				for _, d := range devices {
					fields := map[string]any{}
					if d.State.BatteryLevel != nil {
						fields["battery_level"] = *d.State.BatteryLevel
					}
					if d.State.SetTemperature != nil {
						fields["set_temperature"] = *d.State.SetTemperature
					}
					if d.State.MeasuredTemperature != nil {
						temp := wx.TempC(*d.State.MeasuredTemperature)
						fields["measured_temperature"] = temp.Unwrap()
						fields["measured_temperature_f"] = temp.F().Unwrap()
					}
					if d.State.Luminance != nil {
						fields["luminance"] = *d.State.Luminance
					}
					if d.State.OccupancyTrigger != nil {
						fields["occupancy_trigger"] = *d.State.OccupancyTrigger
					}
					if d.State.OutputOnOff != nil {
						fields["output_on_off"] = *d.State.OutputOnOff
					}
					if len(fields) == 0 {
						continue
					}

					zone := ""
					if len(d.AssignedZones) > 0 && d.AssignedZones[0].Name != nil {
						zone = *d.AssignedZones[0].Name
					}
					writeInflux("geniushub_device", map[string]string{
						deviceIDTag:   d.ID,
						deviceTypeTag: d.Type,
						zoneNameTag:   zone,
						sourceTag:     source,
					}, fields, now)

					if mqttEnabled && mqttClient != nil {
						if err := publishFieldsToMQTT(mqttClient, config, "device/"+d.ID, fields); err != nil {
							log.Printf("MQTT publish for device '%s': %v", d.ID, err)
						}
					}
					if readings != nil {
						if err := readings.RecordDevice(now, d); err != nil {
							log.Printf("failed to record device '%s': %v", d.ID, err)
						}
					}
				}

				issueCounts := map[string]any{"information": 0, "warning": 0, "error": 0}
				for _, i := range issues {
					log.Printf("hub issue [%s]: %s", i.Level, i.Description)
					if n, ok := issueCounts[i.Level].(int); ok {
						issueCounts[i.Level] = n + 1
					}
				}
				writeInflux("geniushub_issues", map[string]string{sourceTag: source}, issueCounts, now)

				return nil
			},
			retry.Attempts(3),
			retry.Delay(5*time.Second),
		); err != nil {
			// Keep the last-known-good data; the next tick polls again.
			log.Printf("update failed: %v", err)
		}
	}

	pollInterval := time.Duration(config.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	doUpdate()
	for range time.Tick(pollInterval) {
		doUpdate()
	}
}
