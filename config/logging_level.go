package config

import (
	"sync"

	"go.uber.org/zap/zapcore"

	"go.viam.com/arduinohub/logging"
)

// debugSettings combines the --debug flag with the config file's "debug" field. Either one being
// set raises logging.GlobalLogLevel to DEBUG.
type debugSettings struct {
	mu        sync.Mutex
	logger    logging.Logger
	cmdLine   bool
	fromFiles bool
}

var globalDebug debugSettings

// InitLoggingSettings records the command line debug flag and sets the global level from it.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalDebug.mu.Lock()
	defer globalDebug.mu.Unlock()
	globalDebug.logger = logger
	globalDebug.cmdLine = cmdLineDebugFlag
	globalDebug.fromFiles = false
	logging.GlobalLogLevel.SetLevel(globalDebug.levelLocked())
	logger.Info("Log level initialized: ", logging.GlobalLogLevel.Level())
}

// UpdateFileConfigDebug is called whenever a config file is read.
func UpdateFileConfigDebug(fileDebug bool) {
	globalDebug.mu.Lock()
	defer globalDebug.mu.Unlock()
	globalDebug.fromFiles = fileDebug

	level := globalDebug.levelLocked()
	if logging.GlobalLogLevel.Level() == level {
		return
	}
	if globalDebug.logger != nil {
		globalDebug.logger.Info("New log level: ", level)
	}
	logging.GlobalLogLevel.SetLevel(level)
}

func (d *debugSettings) levelLocked() zapcore.Level {
	if d.cmdLine || d.fromFiles {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
