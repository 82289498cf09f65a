// File: cmd/chatease-server/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// chatease-server is the CLI entry point: flag parsing, config file
// loading, pidfile/log setup and the listen socket all live here as
// external collaborators around the core supervisor.Worker, per spec §1.
// Flag/signal wiring is grounded on examples/lowlevel/echo/main.go; the
// listen socket is a plain unix.Socket/Bind/Listen pair in the style
// reactor's epoll backend already uses golang.org/x/sys/unix for.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/studease/chatease-ws/chat"
	"github.com/studease/chatease-ws/internal/chconfig"
	"github.com/studease/chatease-ws/internal/logging"
	"github.com/studease/chatease-ws/internal/pidfile"
	"github.com/studease/chatease-ws/supervisor"
)

// version is the banner string reflected in logs and the handshake
// Server header (spec §4.6).
const version = "chatease-ws/1.0"

// Exit codes per spec §6: 0 on clean shutdown, distinct non-zero codes
// for each named init failure so supervising scripts can distinguish
// them without scraping log text.
const (
	exitOK = iota
	exitStrerrorInit
	exitLogInit
	exitCycleInit
	exitConfigParse
	exitPidfile
	exitListenBind
)

func main() {
	os.Exit(run())
}

func run() int {
	edition := flag.String("e", "", "edition (standard|lite|enterprise)")
	port := flag.Int("p", 0, "listen port (overrides config file's listen key)")
	workers := flag.Int("w", 0, "worker processes (overrides config file)")
	threads := flag.Int("t", -1, "CPU-bound threads per worker (overrides config file)")
	configPath := flag.String("c", "", "path to config file")
	flag.Parse()

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "chatease-server: unknown arguments ignored: %v\n", flag.Args())
	}

	cfg := supervisor.DefaultConfig()
	if *configPath != "" {
		store, err := chconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "chatease-server: config parse: %v\n", err)
			return exitConfigParse
		}
		applyConfigStore(cfg, store)
		cfg.ConfigPath = *configPath
	}
	applyFlags(cfg, *edition, *port, *workers, *threads)

	log, err := logging.New(cfg.LogPath, parseLevel(cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatease-server: log init: %v\n", err)
		return exitLogInit
	}
	log.Infof("starting %s, edition=%s listen=%s workers=%d threads=%d",
		version, cfg.Edition, cfg.ListenAddr, cfg.WorkerProcesses, cfg.WorkerThreads)

	pf, err := pidfile.Create(cfg.PidfilePath)
	if err != nil {
		log.Errorf("pidfile: %v", err)
		return exitPidfile
	}
	defer pf.Remove()

	listenFD, err := bindListener(cfg.ListenAddr)
	if err != nil {
		log.Errorf("listen bind: %v", err)
		return exitListenBind
	}
	defer unix.Close(listenFD)

	w, err := supervisor.NewWorker(cfg, log, listenFD)
	if err != nil {
		log.Errorf("cycle init: %v", err)
		return exitCycleInit
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGQUIT)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- w.Run() }()

	for {
		select {
		case err := <-runErrCh:
			if err != nil {
				log.Errorf("worker run: %v", err)
			}
			return exitOK
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP, syscall.SIGUSR1:
				if err := log.Reopen(); err != nil {
					log.Errorf("log reopen: %v", err)
				}
			case syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				log.Infof("shutting down on signal %v", sig)
				if err := w.Close(); err != nil {
					log.Errorf("worker close: %v", err)
				}
				return exitOK
			}
		}
	}
}

func applyConfigStore(cfg *supervisor.Config, store *chconfig.Store) {
	if v, ok := store.Get("pid"); ok {
		cfg.PidfilePath = v
	}
	if v, ok := store.Get("listen"); ok {
		cfg.ListenAddr = normalizeAddr(v)
	}
	if n := store.GetInt("worker_processes", -1); n >= 0 {
		cfg.WorkerProcesses = n
	}
	if n := store.GetInt("worker_threads", -1); n >= 0 {
		cfg.WorkerThreads = n
	}
	if v, ok := store.GetSection("log", "path"); ok {
		cfg.LogPath = v
	}
	if v, ok := store.GetSection("log", "level"); ok {
		cfg.LogLevel = v
	}
}

func applyFlags(cfg *supervisor.Config, edition string, port, workers, threads int) {
	if edition != "" {
		cfg.Edition = chat.ParseEdition(edition)
	}
	if port > 0 {
		cfg.ListenAddr = normalizeAddr(strconv.Itoa(port))
	}
	if workers > 0 {
		cfg.WorkerProcesses = workers
	}
	if threads >= 0 {
		cfg.WorkerThreads = threads
	}
}

// normalizeAddr accepts either a bare port ("8080") or a host:port pair
// and always returns a ":port" or "host:port" listen address.
func normalizeAddr(v string) string {
	if !strings.Contains(v, ":") {
		return ":" + v
	}
	return v
}

func parseLevel(s string) logging.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logging.Debug
	case "error":
		return logging.Error
	default:
		return logging.Info
	}
}

// bindListener creates a non-blocking TCP listen socket the way the
// worker's reactor expects to receive it: already bound, listening, and
// non-blocking rather than wrapped in a net.Listener. supervisor.NewWorker
// registers it for edge-triggered readiness.
func bindListener(addr string) (int, error) {
	host, portStr, err := splitHostPort(addr)
	if err != nil {
		return -1, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return -1, fmt.Errorf("listen addr %q: bad port: %w", addr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], host[:])
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen %s: %w", addr, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblock: %w", err)
	}
	return fd, nil
}

// splitHostPort returns a 4-byte wildcard address for ":port" forms and
// a numeric host for "host:port" forms; it deliberately does not resolve
// hostnames, matching the core's no-DNS, no-blocking-syscalls contract.
func splitHostPort(addr string) (host [4]byte, port string, err error) {
	parts := strings.SplitN(addr, ":", 2)
	if len(parts) != 2 {
		return host, "", fmt.Errorf("listen addr %q: expected host:port or :port", addr)
	}
	if parts[0] == "" {
		return host, parts[1], nil
	}
	ip := net4(parts[0])
	if ip == nil {
		return host, "", fmt.Errorf("listen addr %q: host must be numeric IPv4 or empty", addr)
	}
	copy(host[:], ip)
	return host, parts[1], nil
}

func net4(s string) []byte {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil
	}
	out := make([]byte, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return nil
		}
		out[i] = byte(n)
	}
	return out
}
