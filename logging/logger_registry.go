package logging

import (
	"regexp"
	"sync"
)

var globalLoggerRegistry = newRegistry()

type levelRule struct {
	matcher *regexp.Regexp
	level   Level
}

// Registry tracks named loggers such that their levels can be driven by `LoggerPatternConfig`s.
type Registry struct {
	mu      sync.RWMutex
	loggers map[string]Logger
	rules   []levelRule
}

func newRegistry() *Registry {
	return &Registry{loggers: make(map[string]Logger)}
}

// RegisterConfig applies the pattern configs to every sublogger created so far and to every
// sublogger created afterwards. Invalid patterns are reported to `errorLogger` and skipped.
func RegisterConfig(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	return globalLoggerRegistry.Update(logConfig, errorLogger)
}

// registerLogger stores `logger` without touching its level.
func (lr *Registry) registerLogger(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
}

// register stores `logger` under `name`, replacing any previous logger of that name, and applies
// the current rules to it.
func (lr *Registry) register(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
	if level, ok := lr.levelFor(name); ok {
		logger.SetLevel(level)
	}
}

func (lr *Registry) loggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// levelFor returns the level of the last rule matching `name`. Callers must hold `mu`.
func (lr *Registry) levelFor(name string) (Level, bool) {
	for i := len(lr.rules) - 1; i >= 0; i-- {
		if lr.rules[i].matcher.MatchString(name) {
			return lr.rules[i].level, true
		}
	}
	return INFO, false
}

// Update replaces the rules and re-levels every registered logger. Loggers matching no rule are
// reset to INFO. An unknown level fails the whole update and leaves the previous rules in place.
func (lr *Registry) Update(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	rules := make([]levelRule, 0, len(logConfig))
	for _, lpc := range logConfig {
		matcher, err := compilePattern(lpc.Pattern)
		if err != nil {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			return err
		}
		rules = append(rules, levelRule{matcher, level})
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.rules = rules
	for name, logger := range lr.loggers {
		level, _ := lr.levelFor(name)
		logger.SetLevel(level)
	}
	return nil
}
