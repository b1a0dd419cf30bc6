// Package geniushub is a client for the Genius Hub heating system. It
// speaks either the cloud v1 REST API (bearer token, responses already in
// the v1 schema) or a hub's local v3 REST API, whose raw bit-packed
// payloads are normalized into the same v1-shaped records.
package geniushub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/golang/glog"
	"golang.org/x/oauth2"
)

const (
	cloudAPIURL = "https://my.geniushub.co.uk/v1"
	localV3Port = 1223

	requestTimeout = 30 * time.Second
)

// Client represents a Genius Hub API client. All configuration is fixed
// at construction; a Client holds no mutable state and is safe for
// concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	// basic-auth header for the local v3 API; empty in cloud mode, where
	// the oauth2 transport injects the bearer token instead.
	authHeader string
	v1         bool
}

// Option adjusts a Client at construction time.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Mainly useful for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewCloudClient returns a client for the cloud v1 API, authenticated
// with the hub owner's API token.
func NewCloudClient(token string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c := &Client{
		http:    oauth2.NewClient(context.Background(), src),
		baseURL: cloudAPIURL,
		v1:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewLocalClient returns a client for a hub's local v3 API. The password
// never goes over the wire as-is: the hub expects the hex sha256 digest
// of username+password as the basic-auth secret.
func NewLocalClient(host, username, password string, opts ...Option) *Client {
	digest := sha256.Sum256([]byte(username + password))
	cred := username + ":" + hex.EncodeToString(digest[:])
	c := &Client{
		http:       &http.Client{Timeout: requestTimeout},
		baseURL:    fmt.Sprintf("http://%s:%d/v3", host, localV3Port),
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(cred)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned for any non-2xx response from the hub or cloud.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: invalid server response: %s", e.Method, e.Path, e.Status)
}

// request issues one HTTP call against the configured base URL, retrying
// exactly once when the connection dropped mid-flight. Any other failure,
// including non-2xx statuses, surfaces immediately.
func (c *Client) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling json: %v", err)
		}
	}

	glog.V(2).Infof("%s %s/%s %s", method, c.baseURL, path, payload)

	var out []byte
	err := retry.Do(
		func() error {
			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
			if err != nil {
				return fmt.Errorf("error building request: %v", err)
			}
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			if c.authHeader != "" {
				req.Header.Set("Authorization", c.authHeader)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("error on %s request: %w", method, err)
			}
			defer resp.Body.Close()

			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("error reading body: %w", err)
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Status: resp.Status}
			}
			out = b
			return nil
		},
		retry.Attempts(2),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(isDisconnect),
	)
	if err != nil {
		return nil, err
	}

	glog.V(2).Infof("%s %s response: %s", method, path, out)
	return out, nil
}

// isDisconnect reports whether err looks like the peer dropped the
// connection; those are the only failures worth one more attempt.
func isDisconnect(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset")
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error unmarshalling %s response: %v", path, err)
	}
	return nil
}

// GetVersion reports the hub's software release.
func (c *Client) GetVersion(ctx context.Context) (*Version, error) {
	if c.v1 {
		var v Version
		if err := c.get(ctx, "version", &v); err != nil {
			return nil, err
		}
		return &v, nil
	}
	var resp struct {
		Data struct {
			Release string `json:"release"`
		} `json:"data"`
	}
	if err := c.get(ctx, "release", &resp); err != nil {
		return nil, err
	}
	return &Version{HubSoftwareVersion: resp.Data.Release}, nil
}

func (c *Client) fetchRawZones(ctx context.Context) ([]rawZone, error) {
	var resp struct {
		Data []rawZone `json:"data"`
	}
	if err := c.get(ctx, "zones", &resp); err != nil {
		return nil, fmt.Errorf("error fetching zones: %w", err)
	}
	return resp.Data, nil
}

// GetZones fetches every zone. In cloud mode the response is passed
// through; in local mode each raw v3 zone is normalized, and per-zone
// conversion problems are logged rather than failing the batch.
func (c *Client) GetZones(ctx context.Context) ([]Zone, error) {
	if c.v1 {
		var zones []Zone
		if err := c.get(ctx, "zones", &zones); err != nil {
			return nil, fmt.Errorf("error fetching zones: %w", err)
		}
		return zones, nil
	}

	raw, err := c.fetchRawZones(ctx)
	if err != nil {
		return nil, err
	}
	zones := make([]Zone, 0, len(raw))
	for _, rz := range raw {
		z, errs := normalizeZone(rz)
		for _, cerr := range errs {
			glog.Warningf("partial zone record: %v", cerr)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// GetDevices fetches every device known to the hub.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	if c.v1 {
		var devices []Device
		if err := c.get(ctx, "devices", &devices); err != nil {
			return nil, fmt.Errorf("error fetching devices: %w", err)
		}
		return devices, nil
	}

	var resp struct {
		Data rawDeviceNode `json:"data"`
	}
	if err := c.get(ctx, "data_manager", &resp); err != nil {
		return nil, fmt.Errorf("error fetching devices: %w", err)
	}
	nodes := flattenDeviceNodes(resp.Data)
	devices := make([]Device, 0, len(nodes))
	for _, n := range nodes {
		d, errs := normalizeDevice(n)
		for _, cerr := range errs {
			glog.Warningf("partial device record: %v", cerr)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// GetIssues fetches the hub's current issue list, formatted per the v1
// schema. The local API reports issues per zone, referencing devices by
// id; the device table resolves those references for the descriptions.
func (c *Client) GetIssues(ctx context.Context) ([]Issue, error) {
	if c.v1 {
		var issues []Issue
		if err := c.get(ctx, "issues", &issues); err != nil {
			return nil, fmt.Errorf("error fetching issues: %w", err)
		}
		return issues, nil
	}

	raw, err := c.fetchRawZones(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := c.GetDevices(ctx)
	if err != nil {
		return nil, err
	}
	deviceTypes := make(map[string]string, len(devices))
	for _, d := range devices {
		deviceTypes[d.ID] = d.Type
	}

	issues := []Issue{}
	for _, z := range raw {
		for _, ri := range z.Issues {
			issues = append(issues, formatIssue(ri, deviceTypes))
		}
	}
	return issues, nil
}

// SetZoneMode switches a zone to the named v1 mode ("off", "timer",
// "footprint", "override", ...).
func (c *Client) SetZoneMode(ctx context.Context, zoneID int, mode string) error {
	code, ok := zoneModeCodes[mode]
	if !ok {
		return fmt.Errorf("unknown zone mode %q", mode)
	}
	if c.v1 {
		_, err := c.request(ctx, http.MethodPut, fmt.Sprintf("zones/%d/mode", zoneID), mode)
		return err
	}
	_, err := c.request(ctx, http.MethodPatch, fmt.Sprintf("zone/%d", zoneID), map[string]int{
		"iMode": int(code),
	})
	return err
}

// SetZoneOverride boosts a zone to the given setpoint for duration.
func (c *Client) SetZoneOverride(ctx context.Context, zoneID int, setpoint float64, duration time.Duration) error {
	secs := int(duration.Seconds())
	if c.v1 {
		_, err := c.request(ctx, http.MethodPut, fmt.Sprintf("zones/%d/override", zoneID), map[string]any{
			"setpoint": setpoint,
			"duration": secs,
		})
		return err
	}
	_, err := c.request(ctx, http.MethodPatch, fmt.Sprintf("zone/%d", zoneID), map[string]any{
		"iMode":               int(ZoneModeBoost),
		"fBoostSP":            setpoint,
		"iBoostTimeRemaining": secs,
	})
	return err
}
