package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"mediafetch", "job.transition", "mediafetch.job.transition"},
		{"", " job/duration ", "job_duration"},
		{"mediafetch", "info..lookup", "mediafetch.info.lookup"},
		{"mediafetch", "  ", ""},
		{"mediafetch", "...", "mediafetch"},
	}

	for _, tt := range tests {
		if got := metricName(tt.prefix, tt.name); got != tt.want {
			t.Fatalf("metricName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestRenderTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env":       "prod",
		" service ": " mediafetch ",
	}
	local := map[string]string{
		"platform": " tiktok ",
		"":         "ignored",
		"env":      "stage",
	}

	got := renderTags(global, local)
	want := "|#env:stage,platform:tiktok,service:mediafetch"
	if got != want {
		t.Fatalf("renderTags mismatch\n got: %q\nwant: %q", got, want)
	}

	if got := renderTags(nil, nil); got != "" {
		t.Fatalf("renderTags(nil, nil) = %q, want empty string", got)
	}
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".mediafetch.",
		GlobalTags: map[string]string{"service": "mediafetch"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	client.Count("job.transition", 1, map[string]string{"platform": "youtube"})
	client.Timing("job.duration", 1500*time.Millisecond, nil)

	want := []string{
		"mediafetch.job.transition:1|c|#platform:youtube,service:mediafetch",
		"mediafetch.job.duration:1500|ms|#service:mediafetch",
	}
	buf := make([]byte, 512)
	for _, w := range want {
		_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got := string(buf[:n]); got != w {
			t.Fatalf("datagram = %q, want %q", got, w)
		}
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	// Writes after Close are dropped rather than panicking.
	client.Count("job.transition", 1, nil)

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	nilClient.Gauge("jobs.active", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabled(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{Enabled: true, Address: "   "},
		{Enabled: false, Address: "127.0.0.1:8125"},
	} {
		client, err := NewClient(cfg)
		if err != nil {
			t.Fatalf("NewClient error: %v", err)
		}
		if client.Enabled() {
			t.Fatalf("expected client to stay disabled for %+v", cfg)
		}
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("job.transition", 1, map[string]string{"result": "success"})
	r.Count("job.transition", 2, map[string]string{"result": "error"})
	r.Timing("job.duration", 250*time.Millisecond, nil)

	if got := r.Total("job.transition", nil); got != 3 {
		t.Fatalf("Total = %v, want 3", got)
	}
	if got := r.Total("job.transition", map[string]string{"result": "error"}); got != 2 {
		t.Fatalf("Total(error) = %v, want 2", got)
	}
	if got := r.Named("job.duration"); len(got) != 1 || got[0].Value != 250 {
		t.Fatalf("Named(job.duration) = %+v", got)
	}
}
