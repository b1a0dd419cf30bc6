package geniushub

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClientAuthDigest(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"release":"5.2.4"}}`))
	}))
	defer srv.Close()

	c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
	v, err := c.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5.2.4", v.HubSoftwareVersion)

	digest := sha256.Sum256([]byte("alice" + "s3cret"))
	want := "Basic " + base64.StdEncoding.EncodeToString(
		[]byte("alice:"+hex.EncodeToString(digest[:])))
	assert.Equal(t, want, gotAuth)
}

func TestCloudClientBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"hubSoftwareVersion":"6.0.1"}`))
	}))
	defer srv.Close()

	c := NewCloudClient("tok123", WithBaseURL(srv.URL))
	v, err := c.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "6.0.1", v.HubSoftwareVersion)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestRequestRetriesOnceOnDisconnect(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Drop the connection mid-flight to simulate the hub's
			// occasional resets.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		_, _ = w.Write([]byte(`{"data":{"release":"5.2.4"}}`))
	}))
	defer srv.Close()

	c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
	v, err := c.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5.2.4", v.HubSoftwareVersion)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRequestDoesNotRetryServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
	_, err := c.GetVersion(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "release", apiErr.Path)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetZonesLocalNormalizes(t *testing.T) {
	raw := radiatorZone()
	payload, err := json.Marshal(struct {
		Data []rawZone `json:"data"`
	}{Data: []rawZone{raw}})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
	zones, err := c.GetZones(context.Background())
	require.NoError(t, err)
	require.Len(t, zones, 1)

	assert.Equal(t, raw.ID, zones[0].ID)
	assert.Equal(t, "radiator", zones[0].Type)
	require.NotNil(t, zones[0].Temperature)
	assert.Equal(t, *raw.Temperature, *zones[0].Temperature)
}

func TestGetZonesCloudPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/zones", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":4,"name":"Kitchen","type":"radiator","mode":"timer","temperature":19.5,"setpoint":21,"isActive":true,"output":true,"hasRoomSensor":false}]`))
	}))
	defer srv.Close()

	c := NewCloudClient("tok123", WithBaseURL(srv.URL))
	zones, err := c.GetZones(context.Background())
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, 4, zones[0].ID)
	assert.Equal(t, "Kitchen", zones[0].Name)
}

func TestSetZoneMode(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		var gotMethod, gotPath, gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
		require.NoError(t, c.SetZoneMode(context.Background(), 4, "footprint"))
		assert.Equal(t, http.MethodPatch, gotMethod)
		assert.Equal(t, "/zone/4", gotPath)
		assert.JSONEq(t, `{"iMode":4}`, gotBody)
	})

	t.Run("cloud", func(t *testing.T) {
		var gotMethod, gotPath, gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := NewCloudClient("tok123", WithBaseURL(srv.URL))
		require.NoError(t, c.SetZoneMode(context.Background(), 4, "off"))
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "/zones/4/mode", gotPath)
		assert.JSONEq(t, `"off"`, gotBody)
	})

	t.Run("unknown mode", func(t *testing.T) {
		c := NewCloudClient("tok123")
		err := c.SetZoneMode(context.Background(), 4, "turbo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "turbo")
	})
}

func TestSetZoneOverride(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
	require.NoError(t, c.SetZoneOverride(context.Background(), 4, 22.5, time.Hour))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/zone/4", gotPath)
	assert.JSONEq(t, `{"iMode":16,"fBoostSP":22.5,"iBoostTimeRemaining":3600}`, gotBody)
}

func TestGetIssuesLocal(t *testing.T) {
	raw := radiatorZone()
	raw.Issues = []rawIssue{{
		ID:    "node:low_battery",
		Level: 2,
		Data:  rawIssueData{Location: raw.Name, NodeID: "32"},
	}}
	zonesPayload, err := json.Marshal(struct {
		Data []rawZone `json:"data"`
	}{Data: []rawZone{raw}})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/zones":
			_, _ = w.Write(zonesPayload)
		case "/data_manager":
			_, _ = w.Write([]byte(`{"data":{"childNodes":{"32":{"addr":"32","childValues":{"hash":{"val":"0x00000059_0x00000003"},"location":{"val":"` + raw.Name + `"}}}}}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
	issues, err := c.GetIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "error", issues[0].Level)
	assert.Equal(t,
		"The battery for the Room Sensor in "+raw.Name+" is dead and needs to be replaced",
		issues[0].Description)
}

func TestGetDevicesLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data_manager", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"childNodes":{
			"2":{"addr":"2","childValues":{"hash":{"val":"0x00000059_0x00000001"},"location":{"val":"Kitchen"},"Battery":{"val":80},"HEATING_1":{"val":21}}},
			"WeatherData":{"addr":"WeatherData","childValues":{"hash":{"val":"x"}}}
		}}}`))
	}))
	defer srv.Close()

	c := NewLocalClient("hub.local", "alice", "s3cret", WithBaseURL(srv.URL))
	devices, err := c.GetDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)

	d := devices[0]
	assert.Equal(t, "2", d.ID)
	assert.Equal(t, "Radiator Valve", d.Type)
	require.NotNil(t, d.AssignedZones[0].Name)
	assert.Equal(t, "Kitchen", *d.AssignedZones[0].Name)
	require.NotNil(t, d.State.BatteryLevel)
	assert.Equal(t, 80.0, *d.State.BatteryLevel)
	require.NotNil(t, d.State.SetTemperature)
	assert.Equal(t, 21.0, *d.State.SetTemperature)
}
