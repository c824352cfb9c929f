package logging

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func verifySetLevels(registry *Registry, expectedMatches map[string]string) bool {
	for name, level := range expectedMatches {
		logger, ok := registry.loggerNamed(name)
		if !ok || !strings.EqualFold(level, logger.GetLevel().String()) {
			return false
		}
	}
	return true
}

func createTestRegistry(loggerNames []string) *Registry {
	registry := newRegistry()
	for _, name := range loggerNames {
		registry.registerLogger(name, NewBlankLogger(name))
	}
	return registry
}

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	type testCfg struct {
		pattern string
		isValid bool
	}

	tests := []testCfg{
		{"arduino.poller", true},
		{"arduino.poller.*", true},
		{"arduino.*.firmata", true},
		{"arduino.*.*", true},
		{"*.firmata", true},
		{"*", true},

		{"arduino..poller", false},
		{"arduino.poller.", false},
		{".arduino.poller", false},
		{"arduino.poller.**", false},
		{"arduino.**.poller", false},
		{"_.arduino.poller", false},
		{"-.arduino", false},
		{"arduino.-", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.pattern, func(t *testing.T) {
			t.Parallel()
			test.That(t, validatePattern(tc.pattern), test.ShouldEqual, tc.isValid)
		})
	}
}

func TestUpdateLoggerRegistry(t *testing.T) {
	type testCfg struct {
		loggerConfig    []LoggerPatternConfig
		loggerNames     []string
		expectedMatches map[string]string
	}

	tests := []testCfg{
		{
			loggerConfig: []LoggerPatternConfig{{Pattern: "arduino", Level: "WARN"}},
			loggerNames:  []string{"arduino", "arduino.poller", "firmata"},
			expectedMatches: map[string]string{
				"arduino":        "WARN",
				"arduino.poller": "INFO",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{{Pattern: "arduino.*", Level: "DEBUG"}},
			loggerNames:  []string{"arduino.poller", "arduino.poller.0", "arduino.firmata"},
			expectedMatches: map[string]string{
				"arduino.poller":   "DEBUG",
				"arduino.poller.0": "DEBUG",
				"arduino.firmata":  "DEBUG",
			},
		},
		{
			// The last matching pattern wins.
			loggerConfig: []LoggerPatternConfig{
				{Pattern: "arduino.*", Level: "DEBUG"},
				{Pattern: "arduino.poller", Level: "WARN"},
			},
			loggerNames:     []string{"arduino.poller"},
			expectedMatches: map[string]string{"arduino.poller": "WARN"},
		},
		{
			loggerConfig:    []LoggerPatternConfig{{Pattern: "_.*.poller", Level: "DEBUG"}},
			loggerNames:     []string{"arduino.poller"},
			expectedMatches: map[string]string{"arduino.poller": "INFO"},
		},
	}

	for _, tc := range tests {
		testRegistry := createTestRegistry(tc.loggerNames)

		err := testRegistry.Update(tc.loggerConfig, NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, verifySetLevels(testRegistry, tc.expectedMatches), test.ShouldBeTrue)
	}
}

func TestRegisterAppliesExistingConfig(t *testing.T) {
	registry := newRegistry()
	err := registry.Update([]LoggerPatternConfig{{Pattern: "arduino.poller.*", Level: "error"}}, NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	logger := NewBlankLogger("arduino.poller.3")
	registry.register("arduino.poller.3", logger)
	test.That(t, logger.GetLevel(), test.ShouldEqual, ERROR)

	err = registry.Update([]LoggerPatternConfig{{Pattern: "*", Level: "chatty"}}, NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
