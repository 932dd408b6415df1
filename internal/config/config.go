// Package config loads the gateway's runtime configuration from the
// bespoke key=value text format specified in spec §6: trading hours,
// monitor window, rate cap, and exchange credentials.
//
// The format doesn't fit any of spf13/viper's supported encodings
// (YAML/JSON/TOML/INI all require structure this format doesn't have), so
// the parser is a small hand-rolled bufio.Scanner loop, in the same style
// as the teacher's own config loading in cmd/server/main.go.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors returned by Load, wrapped with the offending key or line.
var (
	ErrMissingKey    = fmt.Errorf("config: missing required key")
	ErrMalformedTime = fmt.Errorf("config: malformed time value")
)

// Config holds everything the gateway needs to run a trading session.
type Config struct {
	// OpenOffsetNs and CloseOffsetNs are nanosecond offsets since UTC
	// midnight, derived from the config file's Open/Close HH:MM:SS am/pm
	// strings.
	OpenOffsetNs  int64
	CloseOffsetNs int64

	// WindowSec is the transmitter's sliding rate-limit window (spec §4.4).
	// It is unrelated to the hours controller's own sleep/busy-poll
	// thresholds (hours.Config.RegularSleep, hours.Config.EdgeThreshold),
	// which are not config-file keys.
	WindowSec uint32

	// Rate caps the transmitter's sends within any WindowSec-second sliding
	// window (spec §4.4). The admission check is inclusive, so up to Rate+1
	// orders can be sent within one window.
	Rate uint32

	Username string
	Password string

	// CloseGuard is how far before CloseOffsetNs the hours controller
	// closes the session, so the transmitter observes the session closed
	// before the configured close instant (§9 Open Question, resolved in
	// DESIGN.md). Not a config file key; callers
	// that want a non-default guard set it after Load returns.
	CloseGuard time.Duration
}

const defaultCloseGuard = 10 * time.Nanosecond

// Load reads and parses the config file at path. Lines beginning with '#'
// and blank lines are ignored; every other line must be KEY=VALUE.
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	raw := map[string]string{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return Config{}, fmt.Errorf("config: %s:%d: expected KEY=VALUE, got %q", path, lineNum, line)
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		raw[key] = val
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Config{CloseGuard: defaultCloseGuard}

	openNs, err := parseTimeOfDay(raw, "Open")
	if err != nil {
		return Config{}, err
	}
	cfg.OpenOffsetNs = openNs

	closeNs, err := parseTimeOfDay(raw, "Close")
	if err != nil {
		return Config{}, err
	}
	cfg.CloseOffsetNs = closeNs

	window, err := parseUint(raw, "MonitorWindowSec")
	if err != nil {
		return Config{}, err
	}
	cfg.WindowSec = window

	rate, err := parseUint(raw, "Rate")
	if err != nil {
		return Config{}, err
	}
	cfg.Rate = rate

	username, ok := raw["Username"]
	if !ok {
		return Config{}, fmt.Errorf("%w: Username", ErrMissingKey)
	}
	cfg.Username = username

	password, ok := raw["Password"]
	if !ok {
		return Config{}, fmt.Errorf("%w: Password", ErrMissingKey)
	}
	cfg.Password = password

	return cfg, nil
}

func parseUint(raw map[string]string, key string) (uint32, error) {
	val, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q: %w", key, val, err)
	}
	return uint32(n), nil
}

// parseTimeOfDay parses a HH:MM:SS am|pm string into nanoseconds since
// midnight.
//
// Noon and midnight follow the usual 12-hour clock reading: "12:00:00 pm"
// means hour 12 (noon) and "12:00:00 am" means hour 0 (midnight); every
// other pm hour adds 12. A plain "+12 for pm" transform would instead turn
// "12:00:00 pm" into hour 24.
func parseTimeOfDay(raw map[string]string, key string) (int64, error) {
	val, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}

	fields := strings.Fields(val)
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformedTime, key, val)
	}
	clock, meridiem := fields[0], strings.ToLower(fields[1])
	if meridiem != "am" && meridiem != "pm" {
		return 0, fmt.Errorf("%w: %s=%q: expected am/pm", ErrMalformedTime, key, val)
	}

	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %s=%q: expected HH:MM:SS", ErrMalformedTime, key, val)
	}
	hour, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || hour < 1 || hour > 12 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformedTime, key, val)
	}

	switch {
	case meridiem == "am" && hour == 12:
		hour = 0
	case meridiem == "pm" && hour != 12:
		hour += 12
	}

	total := int64(hour)*3600 + int64(min)*60 + int64(sec)
	return total * int64(time.Second), nil
}

// String renders the config back out in roughly the same shape it was
// read in, for startup log lines. Password is redacted.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Open=%s Close=%s MonitorWindowSec=%d Rate=%d Username=%s Password=****}",
		formatTimeOfDay(c.OpenOffsetNs), formatTimeOfDay(c.CloseOffsetNs), c.WindowSec, c.Rate, c.Username,
	)
}

func formatTimeOfDay(offsetNs int64) string {
	total := offsetNs / int64(time.Second)
	hour := total / 3600
	min := (total % 3600) / 60
	sec := total % 60

	meridiem := "am"
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour == 12:
		meridiem = "pm"
	case hour > 12:
		display = hour - 12
		meridiem = "pm"
	}
	return fmt.Sprintf("%02d:%02d:%02d %s", display, min, sec, meridiem)
}
