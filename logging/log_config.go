package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// LoggerPatternConfig sets the level of every logger whose dotted name matches Pattern. A `*`
// section matches any run of characters, including dots.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	loggerSection         = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	loggerSectionWildcard = `(` + loggerSection + `|\*)`
	loggerPattern         = `^` + loggerSectionWildcard + `(\.` + loggerSectionWildcard + `)*$`
)

var loggerPatternRegexp = regexp.MustCompile(loggerPattern)

func validatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

// compilePattern turns a logger pattern such as "arduino.poller.*" into an anchored regexp.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if !validatePattern(pattern) {
		return nil, fmt.Errorf("invalid logger pattern %q", pattern)
	}
	quoted := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
	return regexp.Compile("^" + quoted + "$")
}
