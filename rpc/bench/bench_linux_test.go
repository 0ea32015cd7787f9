//go:build linux

package bench

import (
	"bufio"
	"bytes"
	"errors"
	"github.com/ValentinKolb/skv/lib/store/lstore"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/ValentinKolb/skv/rpc/server"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// startServer runs an skv server on an ephemeral loopback port until the test ends
func startServer(t *testing.T) common.TransportConfig {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Transport.Port = 0

	s := server.NewServer(config, lstore.NewLocalStore(), server.NewIStoreServerAdapter())
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve()
	}()
	t.Cleanup(func() {
		_ = s.Shutdown()
		<-done
	})

	transport := config.Transport
	transport.Port = s.Addr().Port
	return transport
}

func benchConfig(transport common.TransportConfig) common.BenchConfig {
	config := common.DefaultBenchConfig()
	config.Transport = transport
	config.Concurrency = 4
	config.ValueSize = 16
	config.BatchSize = 10
	config.ReportInterval = 20 * time.Millisecond
	config.Count = 5000
	return config
}

// runBench runs b with a deadline
func runBench(t *testing.T, b *Bench, out io.Writer) (summaryCount int64, err error) {
	t.Helper()

	type result struct {
		count int64
		err   error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := b.Run(out)
		done <- result{summary.Count, err}
	}()

	select {
	case r := <-done:
		return r.count, r.err
	case <-time.After(30 * time.Second):
		_ = b.Shutdown()
		t.Fatalf("Benchmark did not finish")
		return 0, nil
	}
}

func TestBenchAgainstServer(t *testing.T) {
	transport := startServer(t)

	config := benchConfig(transport)
	config.CSVPath = filepath.Join(t.TempDir(), "report.csv")

	var out bytes.Buffer
	count, err := runBench(t, New(config), &out)
	if err != nil {
		t.Fatalf("Benchmark failed: %v", err)
	}

	// every acknowledged request is recorded exactly once
	if count != int64(config.Count) {
		t.Errorf("Expected %d samples, got %d", config.Count, count)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "time, count, p50, p90, p99" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	for _, line := range lines[1:] {
		if fields := strings.Split(line, ", "); len(fields) != 5 {
			t.Errorf("Malformed report line %q", line)
		}
	}

	csvData, err := os.ReadFile(config.CSVPath)
	if err != nil {
		t.Fatalf("Failed to read CSV output: %v", err)
	}
	if !strings.HasPrefix(string(csvData), "time,count,p50,p90,p99\n") {
		t.Errorf("Unexpected CSV output %q", csvData)
	}
}

func TestBenchConnectFailure(t *testing.T) {
	// reserve a port and release it again so nothing listens on it
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	transport := common.DefaultTransportConfig()
	transport.Port = port

	if _, err := runBench(t, New(benchConfig(transport)), io.Discard); err == nil {
		t.Errorf("Expected connect failure to be fatal")
	}
}

// TestBenchMalformedAck runs against a server that answers every line with ERR
func TestBenchMalformedAck(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					if _, err := c.Read(buf); err != nil {
						return
					}
					if _, err := io.WriteString(c, "ERR\n"); err != nil {
						return
					}
				}
			}(c)
		}
	}()

	transport := common.DefaultTransportConfig()
	transport.Port = l.Addr().(*net.TCPAddr).Port

	config := benchConfig(transport)
	config.Concurrency = 2

	_, err = runBench(t, New(config), io.Discard)
	if !errors.Is(err, ErrAllConnectionsLost) {
		t.Errorf("Expected ErrAllConnectionsLost, got %v", err)
	}
}

// TestBenchCountWithLostConnection runs against a server that closes the first
// connection after a few requests while the second one keeps answering
func TestBenchCountWithLostConnection(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for accepted := 0; ; accepted++ {
			c, err := l.Accept()
			if err != nil {
				return
			}
			limit := -1
			if accepted == 0 {
				limit = 4
			}
			go func(c net.Conn, limit int) {
				defer c.Close()
				scanner := bufio.NewScanner(c)
				for answered := 0; limit < 0 || answered < limit; answered++ {
					if !scanner.Scan() {
						return
					}
					if _, err := io.WriteString(c, "OK\n"); err != nil {
						return
					}
				}
			}(c, limit)
		}
	}()

	transport := common.DefaultTransportConfig()
	transport.Port = l.Addr().(*net.TCPAddr).Port

	config := benchConfig(transport)
	config.Concurrency = 2
	config.Count = 200

	count, err := runBench(t, New(config), io.Discard)
	if err != nil {
		t.Fatalf("Benchmark failed: %v", err)
	}
	if count == 0 || count >= int64(config.Count) {
		t.Errorf("Expected fewer than %d but some samples, got %d", config.Count, count)
	}
}

func TestBenchShutdown(t *testing.T) {
	transport := startServer(t)

	config := benchConfig(transport)
	config.Count = 0

	b := New(config)
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = b.Shutdown()
	}()

	count, err := runBench(t, b, io.Discard)
	if err != nil {
		t.Fatalf("Benchmark failed: %v", err)
	}
	if count == 0 {
		t.Errorf("Expected some requests to be acknowledged")
	}
}
