package config

const (
	defaultConfigPath        = "~/.config/daemonkit/config.toml"
	defaultStateDir          = "~/.local/state/daemonkit"
	defaultPidfile           = defaultStateDir + "/daemonkit.pid"
	defaultStdout            = defaultStateDir + "/daemonkit.out"
	defaultStderr            = defaultStateDir + "/daemonkit.err"
	defaultLogFile           = defaultStateDir + "/daemonkit.log"
	defaultJournalPath       = defaultStateDir + "/journal.db"
	defaultWorkingDir        = "/"
	defaultUmask             = "022"
	defaultDetach            = "auto"
	defaultStopTimeout       = 10
	defaultHeartbeatInterval = 30
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
)

// PidfileEnv overrides daemon.pidfile.
const PidfileEnv = "DAEMONKIT_PIDFILE"

// Default returns a Config populated with defaults. Paths are unexpanded
// until Load normalizes them.
func Default() Config {
	return Config{
		Daemon: Daemon{
			Pidfile:     defaultPidfile,
			WorkingDir:  defaultWorkingDir,
			Umask:       defaultUmask,
			Detach:      defaultDetach,
			PreventCore: true,
			Stdout:      defaultStdout,
			Stderr:      defaultStderr,
			StopTimeout: defaultStopTimeout,
		},
		Service: Service{
			HeartbeatInterval: defaultHeartbeatInterval,
			WatchPidfile:      true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			File:   defaultLogFile,
		},
		Journal: Journal{
			Enabled: true,
			Path:    defaultJournalPath,
		},
		umask: -1,
	}
}
