package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths under the data directory.
// All fields are pre-computed strings.
type Paths struct {
	Root string // .dropcache/
	DB   string // .dropcache/dropcache.db (or db_path)

	LogDir    string // .dropcache/log/
	DaemonLog string // .dropcache/log/daemon.log

	RunDir   string // .dropcache/run/
	Socket   string // .dropcache/run/daemon.sock
	PIDFile  string // .dropcache/run/daemon.pid
	AddrFile string // .dropcache/run/http.addr
}

// NewPaths constructs all resolved paths from a data directory. An empty
// dbPath puts the database in the data directory.
func NewPaths(dataDir, dbPath string) *Paths {
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "dropcache.db")
	}
	return &Paths{
		Root: dataDir,
		DB:   dbPath,

		LogDir:    filepath.Join(dataDir, "log"),
		DaemonLog: filepath.Join(dataDir, "log", "daemon.log"),

		RunDir:   filepath.Join(dataDir, "run"),
		Socket:   filepath.Join(dataDir, "run", "daemon.sock"),
		PIDFile:  filepath.Join(dataDir, "run", "daemon.pid"),
		AddrFile: filepath.Join(dataDir, "run", "http.addr"),
	}
}

// EnsureDirs creates the data directory, its subdirectories and the
// database's parent. Idempotent.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.Root,
		p.LogDir,
		p.RunDir,
		filepath.Dir(p.DB),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes ephemeral runtime files (PID file and addr file).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.AddrFile)
}
