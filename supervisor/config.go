// File: supervisor/config.go
// Package supervisor models the master/worker process supervisor from
// spec §5/§6. The actual fork/exec orchestration, signal handling and
// shared-socket distribution are external collaborators per spec §1; this
// package specifies their interfaces and owns the one piece that lives
// inside a worker process: its reactor-driven event loop and thread pool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Config is grounded on facade/hioload.go's Config/DefaultConfig shape,
// narrowed to the fields spec §6's CLI and config file actually name.

package supervisor

import (
	"time"

	"github.com/studease/chatease-ws/chat"
)

// Config collects every tunable spec §6 names, sourced from CLI flags,
// the config file, or defaults, in that precedence order.
type Config struct {
	Edition chat.Edition

	ListenAddr string

	WorkerProcesses int
	WorkerThreads   int

	PidfilePath string
	ConfigPath  string

	LogPath  string
	LogLevel string

	IdleTimeout time.Duration
}

// DefaultConfig returns the documented defaults for any key spec §6 says
// is optional.
func DefaultConfig() *Config {
	return &Config{
		Edition:         chat.EditionStandard,
		ListenAddr:      ":8080",
		WorkerProcesses: 1,
		WorkerThreads:   0,
		PidfilePath:     "/var/run/chatease-ws.pid",
		LogPath:         "",
		LogLevel:        "info",
		IdleTimeout:     60 * time.Second,
	}
}
