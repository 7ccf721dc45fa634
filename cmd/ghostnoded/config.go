package main

import (
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	defaultDataDirname    = "data"
	defaultLogFilename    = "ghostnoded.log"
	defaultMaxLogRolls    = 8
	defaultWorkers        = 8
	defaultMetricsListen  = ":8080"
	defaultListen         = ":16111"
	defaultTargetOutgoing = 8
)

// config is the §6 configuration surface's CLI/INI-file mapping: the
// knobs cmd/ghostnoded needs to construct a dagconfig.Params and wire
// the rest of the process, parsed with go-flags exactly as the teacher's
// own config package does.
type config struct {
	AppDir         string `short:"b" long:"appdir" description:"Directory to store data"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- Alternatively, use subsystem=level,subsystem2=level,... to set the log level for individual subsystems" default:"info"`
	Workers        int    `short:"w" long:"workers" description:"Number of concurrent header-validation workers" default:"8"`
	MetricsListen  string `long:"metricslisten" description:"Address to serve Prometheus metrics on" default:":8080"`
	Listen         string `long:"listen" description:"Address for the net adapter to listen on" default:":16111"`
	TargetOutgoing int    `long:"targetoutgoing" description:"Target number of simultaneous outgoing peer connections" default:"8"`
}

func defaultAppDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".ghostnoded")
}

// loadConfig parses CLI arguments into a config with defaults applied,
// per spec.md §6's Configuration enumeration.
func loadConfig() (*config, error) {
	cfg := config{
		AppDir:         defaultAppDir(),
		DebugLevel:     "info",
		Workers:        defaultWorkers,
		MetricsListen:  defaultMetricsListen,
		Listen:         defaultListen,
		TargetOutgoing: defaultTargetOutgoing,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.TargetOutgoing < 0 {
		cfg.TargetOutgoing = 0
	}

	return &cfg, nil
}

func (c *config) dataDir() string {
	return filepath.Join(c.AppDir, defaultDataDirname)
}

func (c *config) logFile() string {
	return filepath.Join(c.AppDir, "logs", defaultLogFilename)
}
