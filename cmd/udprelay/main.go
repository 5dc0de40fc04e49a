// Command udprelay demonstrates the queue's intended deployment: a set
// of UDP receive workers hand datagrams to a single processing goroutine
// through an MPSC queue, so the sockets are drained without the
// processing cost ever blocking the I/O path.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/marcusspangenberg/waitfreequeue"
)

const udpPayloadSize = 1474

// Default values for the relay configuration.
const (
	DefaultListenAddr = "0.0.0.0:20000"
	DefaultWorkers    = 2
	DefaultQueueSize  = 1 << 16
)

var packetPool = sync.Pool{
	New: func() any {
		return &packet{
			payload: make([]byte, udpPayloadSize),
		}
	},
}

// packet is one received datagram. Instances are pooled; the processing
// goroutine returns them once it is done.
type packet struct {
	payload []byte
	size    int
}

func (p *packet) destroy() {
	packetPool.Put(p)
}

func main() {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancelCtx()

	listenAddr := flag.String("listen", DefaultListenAddr, "UDP address to listen on")
	workers := flag.Int("workers", DefaultWorkers, "receive worker goroutines")
	queueSize := flag.Uint64("queue-size", DefaultQueueSize, "handoff queue capacity (power of two)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	log := newLogger(*verbose)

	if *workers < 1 {
		log.Warn("worker count cannot be lower than 1, falling back",
			"field", "workers", "actual", *workers, "fallback", 1)
		*workers = 1
	}

	if *queueSize < 2 || *queueSize&(*queueSize-1) != 0 {
		log.Warn("queue size is not a power of two, falling back",
			"field", "queue-size", "actual", *queueSize, "fallback", uint64(DefaultQueueSize))
		*queueSize = DefaultQueueSize
	}

	addr, err := net.ResolveUDPAddr("udp", *listenAddr)
	if err != nil {
		log.Error("failed to resolve listen address", "error", err)
		os.Exit(1)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	log.Info("listening", "addr", conn.LocalAddr(), "workers", *workers)

	// The queue must be sized so it never fills: the workers cannot be
	// throttled without stalling the sockets.
	queue := waitfreequeue.NewMPSC[*packet](*queueSize)

	wg := sync.WaitGroup{}
	wg.Add(*workers)
	for idx := range *workers {
		go func(idx int) {
			defer wg.Done()
			receiveLoop(idx, conn, queue, log)
		}(idx)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go processLoop(stop, queue, log, done)

	<-ctx.Done()
	conn.Close()
	wg.Wait()

	// All workers have returned: once the processor sees the queue
	// empty, everything pushed has been accounted for.
	close(stop)
	<-done
}

// receiveLoop reads datagrams from the shared socket and pushes them
// into the queue. Multiple workers may run this concurrently; the queue
// is the only thing they share with the processor.
func receiveLoop(id int, conn *net.UDPConn, queue *waitfreequeue.MPSC[*packet], log *slog.Logger) {
	for {
		pkt := packetPool.Get().(*packet)

		size, _, err := conn.ReadFromUDPAddrPort(pkt.payload)
		if err != nil {
			pkt.destroy()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("read failed", "worker", id, "error", err)
			continue
		}

		pkt.size = size
		queue.Push(pkt)
	}
}

// processLoop is the single consumer. It stays on one OS thread and
// drains the queue, periodically reporting what came through.
func processLoop(stop <-chan struct{}, queue *waitfreequeue.MPSC[*packet], log *slog.Logger, done chan<- struct{}) {
	defer close(done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var packets, bytes uint64
	lastReport := time.Now()

	stopped := false
	for {
		pkt, ok := queue.Pop()
		if !ok {
			if !stopped {
				select {
				case <-stop:
					stopped = true
				default:
				}
			}
			if stopped && queue.Empty() {
				log.Info("drained", "packets", packets, "bytes", bytes)
				return
			}
			runtime.Gosched()
			continue
		}

		packets++
		bytes += uint64(pkt.size)
		pkt.destroy()

		if now := time.Now(); now.Sub(lastReport) >= time.Second {
			log.Info("throughput", "packets", packets, "bytes", bytes)
			lastReport = now
		}
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	stderr := os.Stderr
	handler := tint.NewHandler(colorable.NewColorable(stderr), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(stderr.Fd()),
	})

	return slog.New(handler)
}
