// Package push implements the device binding registry and the Outbound
// Push Fan-out (spec §4.9): upserting device bindings, listing them with
// push_url redacted, and delivering notifications to every matching
// binding.
package push

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prime-system/prime-agent/pkg/utils/atomicfile"
	appjson "github.com/prime-system/prime-agent/pkg/utils/json"
)

const moduleName = "push"

// Device is one persisted binding. PushURL is an opaque capability URL
// containing a secret path segment; it is never logged in full and never
// returned from a listing.
type Device struct {
	InstallationID string    `json:"installation_id"`
	DeviceType     string    `json:"device_type"`
	DeviceName     string    `json:"device_name,omitempty"`
	PushURL        string    `json:"push_url"`
	RegisteredAt   time.Time `json:"registered_at"`
	LastSeen       time.Time `json:"last_seen"`
}

// registryFile is the on-disk document shape: {"devices": [...]}.
type registryFile struct {
	Devices []Device `json:"devices"`
}

// Registry is the atomic-file-backed store of device bindings.
type Registry struct {
	path string

	mu      sync.Mutex
	devices map[string]Device
}

func NewRegistry(dataDir string) *Registry {
	return &Registry{path: filepath.Join(dataDir, "devices", "registry.json"), devices: map[string]Device{}}
}

// Load reads the registry file from disk if it exists. Call once at
// startup; a missing file is not an error (fresh install).
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read device registry: %w", err)
	}

	var file registryFile
	if err := appjson.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse device registry: %w", err)
	}
	for _, d := range file.Devices {
		r.devices[d.InstallationID] = d
	}
	return nil
}

func (r *Registry) saveLocked() error {
	file := registryFile{Devices: make([]Device, 0, len(r.devices))}
	for _, d := range r.devices {
		file.Devices = append(file.Devices, d)
	}
	data, err := appjson.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal device registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create device registry dir: %w", err)
	}
	return atomicfile.WriteFile(r.path, data, 0o600)
}

// Register upserts a device binding by installation_id, writing the
// registry atomically. Readers either see the pre-write state or the
// fully-written post-write state, never a partial file (spec testable
// property 6).
func (r *Registry) Register(d Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.devices[d.InstallationID]
	if ok {
		d.RegisteredAt = existing.RegisteredAt
	} else {
		d.RegisteredAt = now
	}
	d.LastSeen = now
	r.devices[d.InstallationID] = d

	return r.saveLocked()
}

// Remove deletes a binding, e.g. after the relay reports HTTP 410.
func (r *Registry) Remove(installationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[installationID]; !ok {
		return nil
	}
	delete(r.devices, installationID)
	return r.saveLocked()
}

// List returns every binding with push_url redacted, suitable for the
// GET /devices response.
func (r *Registry) List() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		d.PushURL = ""
		out = append(out, d)
	}
	return out
}

// Matching returns every binding whose device_name or device_type equals
// filter, or every binding when filter is empty.
func (r *Registry) Matching(filter string) []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		if filter == "" || d.DeviceName == filter || d.DeviceType == filter {
			out = append(out, d)
		}
	}
	return out
}

// redactedPushURLPrefix returns only the non-secret scheme+host portion of
// a push_url, for correlation in logs without leaking the capability path.
func redactedPushURLPrefix(pushURL string) string {
	u, err := url.Parse(pushURL)
	if err != nil || u.Host == "" {
		return "<unparseable push_url>"
	}
	return u.Scheme + "://" + u.Host
}
