package bench

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/skv/lib/latency"
	"github.com/ValentinKolb/skv/lib/util"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/ValentinKolb/skv/rpc/reactor"
	"github.com/ValentinKolb/skv/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

var Logger = logger.GetLogger("bench")

// ErrAllConnectionsLost is returned by Run once no connection is left
var ErrAllConnectionsLost = errors.New("all benchmark connections lost")

var _ reactor.Handler = (*Bench)(nil)

// Bench drives the benchmark connections and measures the request latency
type Bench struct {
	config common.BenchConfig

	loop  *reactor.Loop
	conns *reactor.Slab[*connection]
	gen   *generator

	hist     *latency.Histogram
	handoff  *util.Handoff[latency.Histogram]
	acked    int
	lost     int // requests dropped with removed connections
	reporter *latency.Reporter

	// read by Shutdown from other goroutines
	running  atomic.Pointer[reactor.Loop]
	stopping atomic.Bool
}

// New creates a benchmark for config. Nothing is connected before Run.
func New(config common.BenchConfig) *Bench {
	return &Bench{
		config: config,
		conns:  reactor.NewSlab[*connection](config.Concurrency),
		gen:    newGenerator(config.ValueSize, util.GenerateSeed()),
		hist:   latency.NewHistogram(),
	}
}

// Run connects all connections and runs the benchmark until the configured
// number of requests was acknowledged, Shutdown is called, SIGINT or SIGTERM
// is received or a fatal error occurs. The report lines are printed to out.
func (b *Bench) Run(out io.Writer) (latency.Summary, error) {
	if err := b.config.Validate(); err != nil {
		return latency.Summary{}, fmt.Errorf("invalid benchmark config: %w", err)
	}
	if b.config.LogLevel != "" {
		if err := common.InitLoggers(b.config.LogLevel); err != nil {
			return latency.Summary{}, err
		}
	}

	Logger.Infof("starting benchmark of skv server on %s with pid %d", b.config.Transport.Endpoint(), b.config.PID)
	Logger.Infof("%s", b.config.String())

	loop, err := reactor.NewLoop(0)
	if err != nil {
		return latency.Summary{}, fmt.Errorf("failed to create event loop: %w", err)
	}
	b.loop = loop
	defer b.close()

	b.running.Store(loop)
	if b.stopping.Load() {
		return latency.Summary{}, nil
	}

	if err := b.connect(); err != nil {
		return latency.Summary{}, err
	}

	var csvOut io.Writer
	if b.config.CSVPath != "" {
		file, err := os.Create(b.config.CSVPath)
		if err != nil {
			return latency.Summary{}, fmt.Errorf("failed to create CSV file: %w", err)
		}
		defer file.Close()
		csvOut = file
	}

	b.handoff = util.NewHandoff[latency.Histogram]()
	b.reporter = latency.NewReporter(b.handoff, out, csvOut)
	b.reporter.Start()

	// stop the loop on SIGINT and SIGTERM
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(signals)
		close(signals)
	}()
	go func() {
		if sig, ok := <-signals; ok {
			Logger.Infof("received %s, stopping benchmark", sig)
			_ = b.loop.Shutdown()
		}
	}()

	b.loop.Timeout(b.config.ReportInterval)
	runErr := b.loop.Run(b)

	// report the last, possibly incomplete interval
	if b.hist.Count() > 0 {
		b.handoff.Push(b.hist)
		b.hist = latency.NewHistogram()
	}
	b.handoff.Close()
	if err := b.reporter.Wait(); err != nil {
		Logger.Warningf("failed to write CSV output: %v", err)
	}

	summary := b.reporter.Summary()
	Logger.Infof("benchmark finished: %s", summary)
	return summary, runErr
}

// Shutdown stops a running benchmark.
//
// Thread-safety: This method is safe to call from any goroutine while Run is running.
func (b *Bench) Shutdown() error {
	b.stopping.Store(true)
	if loop := b.running.Load(); loop != nil {
		return loop.Shutdown()
	}
	return nil
}

// --------------------------------------------------------------------------
// Reactor Handler
// --------------------------------------------------------------------------

// Ready handles one readiness notification of a benchmark connection
func (b *Bench) Ready(l *reactor.Loop, token reactor.Token, readiness reactor.Readiness) error {
	c, ok := b.conns.Get(token)
	if !ok {
		return nil
	}

	if readiness.IsError() || readiness.IsHangup() {
		if !c.connected {
			return fmt.Errorf("failed to connect %s: %w", c.socket, connectError(c))
		}
		return b.remove(l, token, c, fmt.Errorf("socket reported %s", readiness))
	}

	if !c.connected && readiness.IsWritable() {
		if err := c.socket.ConnectError(); err != nil {
			return fmt.Errorf("failed to connect %s: %w", c.socket, err)
		}
		c.connected = true
		c.SetInterest(reactor.Readable)
		Logger.Debugf("connected %s as %s", c.socket, token)
	}

	if readiness.IsReadable() {
		if err := b.readable(c); err != nil {
			return b.remove(l, token, c, err)
		}
	}

	// acknowledgements free in-flight slots, so writing is attempted on every notification
	if c.connected {
		if err := b.writable(c); err != nil {
			return b.remove(l, token, c, err)
		}
	}

	if b.finished() {
		return reactor.ErrStop
	}

	if err := l.Reregister(c.Fd(), token, c.Interest()); err != nil {
		return b.remove(l, token, c, fmt.Errorf("failed to re-arm: %w", err))
	}
	return nil
}

// Timeout hands the current histogram to the reporter and re-arms the timer
func (b *Bench) Timeout(l *reactor.Loop) error {
	b.handoff.Push(b.hist)
	b.hist = latency.NewHistogram()

	l.Timeout(b.config.ReportInterval)
	return nil
}

// --------------------------------------------------------------------------
// Read and Write Path
// --------------------------------------------------------------------------

// readable drains the socket and matches all complete acknowledgements
func (b *Bench) readable(c *connection) error {
	recvTime := latency.Now()

	eof, err := c.Fill()
	if err != nil {
		return err
	}

	acks, err := countAcks(c.ReadBuffer())
	if err != nil {
		return err
	}
	if err := c.Latency.Acked(acks, recvTime, b.hist); err != nil {
		return err
	}
	c.Consume(acks * len(ack))
	b.acked += acks

	if eof {
		return ErrPeerClosed
	}
	return nil
}

// writable tops up the in-flight requests and writes as much as the socket accepts
func (b *Bench) writable(c *connection) error {
	for c.inFlight() < b.config.BatchSize && b.canGenerate() {
		c.enqueue(b.gen.appendPut)
	}

	if c.WriteBuffered() == 0 {
		return nil
	}

	n, err := c.Flush()
	sendTime := latency.Now()

	if sent := c.advance(n); sent > 0 {
		c.Latency.Sent(sent, sendTime)
	}
	return err
}

// finished reports whether every one of the configured requests was either
// acknowledged or lost with a removed connection
func (b *Bench) finished() bool {
	if b.config.Count <= 0 || b.acked+b.lost < b.config.Count {
		return false
	}
	if b.lost > 0 {
		Logger.Warningf("%d requests acknowledged, %d lost with closed connections, stopping", b.acked, b.lost)
	} else {
		Logger.Infof("%d requests acknowledged, stopping", b.acked)
	}
	return true
}

// canGenerate reports whether the configured request count allows another request
func (b *Bench) canGenerate() bool {
	return b.config.Count <= 0 || b.gen.generated() < uint64(b.config.Count)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// connect dials all connections. Every failure is fatal.
func (b *Bench) connect() error {
	for i := 0; i < b.config.Concurrency; i++ {
		socket, err := tcp.Dial(b.config.Transport)
		if err != nil {
			return fmt.Errorf("failed to connect benchmark connection %d: %w", i, err)
		}

		c := newConnection(socket)
		token, ok := b.conns.Insert(c)
		if !ok {
			_ = c.Close()
			return fmt.Errorf("connection table full after %d connections", b.conns.Len())
		}

		if err := b.loop.Register(c.Fd(), token, c.Interest()); err != nil {
			b.conns.Remove(token)
			_ = c.Close()
			return fmt.Errorf("failed to register benchmark connection %d: %w", i, err)
		}
	}
	return nil
}

// remove closes one connection. It returns ErrAllConnectionsLost if it was the last one.
func (b *Bench) remove(l *reactor.Loop, token reactor.Token, c *connection, reason error) error {
	if _, ok := b.conns.Remove(token); !ok {
		return nil
	}

	lost := c.inFlight()
	b.lost += lost
	Logger.Errorf("removing connection %s (%d requests lost): %v", c.socket, lost, reason)

	if err := l.Deregister(c.Fd()); err != nil {
		Logger.Debugf("failed to deregister %s: %v", token, err)
	}
	_ = c.Close()

	if b.conns.Len() == 0 {
		return ErrAllConnectionsLost
	}
	if b.finished() {
		return reactor.ErrStop
	}
	return nil
}

// close releases all connections and the loop
func (b *Bench) close() {
	b.conns.Range(func(token reactor.Token, c *connection) bool {
		b.conns.Remove(token)
		_ = b.loop.Deregister(c.Fd())
		_ = c.Close()
		return true
	})
	_ = b.loop.Close()
}

// connectError returns the pending socket error of an unconnected connection
func connectError(c *connection) error {
	if err := c.socket.ConnectError(); err != nil {
		return err
	}
	return errors.New("connection refused or reset")
}

func (b *Bench) String() string {
	return fmt.Sprintf("Bench{target: %s, connections: %d, generated: %d, acked: %d}",
		b.config.Transport.Endpoint(), b.conns.Len(), b.gen.generated(), b.acked)
}
