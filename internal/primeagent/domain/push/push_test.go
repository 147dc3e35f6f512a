package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterThenListRedactsPushURL(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	require.NoError(t, reg.Register(Device{
		InstallationID: "dev1",
		DeviceType:     "ios",
		PushURL:        "https://relay.example/push/secret-token",
	}))

	list := reg.List()
	require.Len(t, list, 1)
	assert.Empty(t, list[0].PushURL)
	assert.Equal(t, "dev1", list[0].InstallationID)
}

func TestRegistry_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)
	require.NoError(t, reg.Register(Device{InstallationID: "dev1", DeviceType: "ios", PushURL: "https://x/y"}))

	reloaded := NewRegistry(dir)
	require.NoError(t, reloaded.Load())
	matching := reloaded.Matching("")
	require.Len(t, matching, 1)
	assert.Equal(t, "https://x/y", matching[0].PushURL)
}

func TestRegistry_RegisterCreatesRegistryFile(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)
	require.NoError(t, reg.Register(Device{InstallationID: "dev1", DeviceType: "ios", PushURL: "https://x/y"}))

	path := filepath.Join(dir, "devices", "registry.json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestFanout_SendHandles410AndRemovesBinding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	reg := NewRegistry(t.TempDir())
	require.NoError(t, reg.Register(Device{InstallationID: "dev1", DeviceType: "ios", PushURL: srv.URL}))

	fo := NewFanout(reg, srv.Client())
	summary := fo.Send(context.Background(), "t", "b", nil, "")

	assert.Equal(t, 1, summary.InvalidTokensRemoved)
	assert.Equal(t, 0, summary.Sent)
	assert.Empty(t, reg.Matching(""))
}

func TestFanout_SendCountsFailedButContinues(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	reg := NewRegistry(t.TempDir())
	require.NoError(t, reg.Register(Device{InstallationID: "ok", DeviceType: "ios", PushURL: ok.URL}))
	require.NoError(t, reg.Register(Device{InstallationID: "bad", DeviceType: "ios", PushURL: bad.URL}))

	fo := NewFanout(reg, http.DefaultClient)
	summary := fo.Send(context.Background(), "t", "b", nil, "")

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
}

func TestFanout_SendWithNoMatchingDevicesReturnsEmptySummary(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	fo := NewFanout(reg, http.DefaultClient)
	summary := fo.Send(context.Background(), "t", "b", nil, "")
	assert.Equal(t, 0, summary.Sent)
	assert.Empty(t, summary.PerDevice)
}

type fakeAuditSink struct {
	recorded []DeliveryAttempt
}

func (f *fakeAuditSink) RecordDelivery(installationID string, attempt DeliveryAttempt) error {
	f.recorded = append(f.recorded, attempt)
	return nil
}

func TestFanout_SendRecordsDeliveryHistoryWhenAuditSinkSet(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	reg := NewRegistry(t.TempDir())
	require.NoError(t, reg.Register(Device{InstallationID: "dev1", DeviceType: "ios", PushURL: ok.URL}))

	sink := &fakeAuditSink{}
	fo := NewFanout(reg, http.DefaultClient)
	fo.SetAuditSink(sink)

	fo.Send(context.Background(), "t", "b", nil, "")

	require.Len(t, sink.recorded, 1)
	assert.Equal(t, "sent", sink.recorded[0].Status)
}
