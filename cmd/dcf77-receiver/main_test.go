package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Error|debug.Fatal)
	os.Exit(m.Run())
}

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "pi-helper.env")
}

func TestReadNetworkInfoFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pi-helper.env")
	content := "NETWORK_TYPE=wifi\n" +
		"NETWORK_IP=192.168.1.100\n" +
		"NETWORK_STATUS=connected\n" +
		"NETWORK_GATEWAY=192.168.1.1\n" +
		"NETWORK_WIFI_STATUS=connected\n" +
		"NETWORK_WIFI_SSID=\"My Network\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// the file wins over the process environment
	t.Setenv(envNetworkIP, "10.0.0.1")

	info := readNetworkInfo(path)
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	if info.Type != "wifi" {
		t.Errorf("Type: got %q, want wifi", info.Type)
	}
	if info.IP != "192.168.1.100" {
		t.Errorf("IP: got %q, want 192.168.1.100", info.IP)
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want connected", info.Status)
	}
	if info.Gateway != "192.168.1.1" {
		t.Errorf("Gateway: got %q, want 192.168.1.1", info.Gateway)
	}
	if info.WifiStatus != "connected" {
		t.Errorf("WifiStatus: got %q, want connected", info.WifiStatus)
	}
	if info.SSID != "My Network" {
		t.Errorf("SSID: got %q, want %q", info.SSID, "My Network")
	}
}

func TestReadNetworkInfoEnvFallback(t *testing.T) {
	t.Setenv(envNetworkType, "ethernet")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "")
	t.Setenv(envNetworkWifiSSID, "")

	info := readNetworkInfo(missingEnvFile(t))
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	if info.Type != "ethernet" {
		t.Errorf("Type: got %q, want ethernet", info.Type)
	}
	if info.IP != "192.168.1.100" {
		t.Errorf("IP: got %q, want 192.168.1.100", info.IP)
	}
	if info.SSID != "" {
		t.Errorf("SSID: got %q, want empty", info.SSID)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	info := readNetworkInfo(missingEnvFile(t))
	if info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pi-helper.env")
	if err := os.WriteFile(path, []byte("NETWORK_STATUS=connected\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	info := readNetworkInfo(path)
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.Type != "" || info.IP != "" || info.Gateway != "" || info.WifiStatus != "" || info.SSID != "" {
		t.Errorf("expected empty fields, got %+v", info)
	}
}

func TestResolveWSBroker(t *testing.T) {
	tests := []struct {
		ws, broker, want string
	}{
		{"", "tcp://192.168.1.200:1883", "ws://192.168.1.200:9001"},
		{"", "tcp://broker.local:1883", "ws://broker.local:9001"},
		{"off", "tcp://192.168.1.200:1883", ""},
		{"ws://other:8080/mqtt", "tcp://192.168.1.200:1883", "ws://other:8080/mqtt"},
		{"", "://bad", ""},
	}
	for _, tt := range tests {
		if got := resolveWSBroker(tt.ws, tt.broker); got != tt.want {
			t.Errorf("resolveWSBroker(%q, %q) = %q, want %q", tt.ws, tt.broker, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if got := levelString(true); got != "HIGH" {
		t.Errorf("levelString(true) = %q, want HIGH", got)
	}
	if got := levelString(false); got != "LOW" {
		t.Errorf("levelString(false) = %q, want LOW", got)
	}
}

func TestPhasedTickerTicks(t *testing.T) {
	tk := newPhasedTicker(5 * time.Millisecond)
	defer tk.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-tk.C():
		case <-time.After(time.Second):
			t.Fatalf("tick %d not delivered", i)
		}
	}
}

func TestPhasedTickerRephase(t *testing.T) {
	tk := newPhasedTicker(time.Hour)
	defer tk.Stop()

	// half of a one hour period is far away; rephasing to an hour ago
	// makes the next tick due immediately.
	tk.Rephase(time.Now().Add(-time.Hour))

	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("tick not delivered after rephase")
	}
}

func TestPhasedTickerStop(t *testing.T) {
	tk := newPhasedTicker(time.Millisecond)
	tk.Stop()
	tk.Stop()

	done := make(chan struct{})
	go func() {
		tk.Rephase(time.Now())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Rephase blocked after Stop")
	}
}
