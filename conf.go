/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Program configuration
 */

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// ConfFileName is the name of the bridge's configuration file.
const ConfFileName = "ptp-usb-bridge.conf"

// Configuration represents the program configuration (spec.md
// section 6's "Configuration" external interface, expanded with the
// ambient logging/quirks knobs the teacher's conf.go carries).
type Configuration struct {
	Port           int    // TCP port to bind to (required)
	BusNumber      int    // 0 means "any bus"
	DeviceAddress  int    // 0 means "any address"
	LoopbackOnly   bool   // Accept only loopback connections
	IPv6Enable     bool   // Accept IPv6 connections

	LogDevice  LogLevel // Per-device LogLevel mask
	LogMain    LogLevel // Main log LogLevel mask
	LogConsole LogLevel // Console LogLevel mask

	LogMaxFileSize    int64 // Maximum per-camera log file size
	LogMaxBackupFiles uint  // Count of rotated files preserved
	ColorConsole      bool  // Enable ANSI colors on console

	EventQueueCapacity int // Bounded event FIFO capacity (spec.md section 4.2)

	Quirks QuirksSet // Per-camera-model quirks
}

// Conf holds the global, process-wide configuration instance.
var Conf = Configuration{
	Port:               60731,
	BusNumber:           0,
	DeviceAddress:       0,
	LoopbackOnly:        true,
	IPv6Enable:          true,
	LogDevice:           LogDebug,
	LogMain:             LogDebug,
	LogConsole:          LogInfo,
	LogMaxFileSize:      256 * 1024,
	LogMaxBackupFiles:   5,
	ColorConsole:        true,
	EventQueueCapacity:  EventQueueCapacity,
}

// ConfLoad loads the program configuration from the system
// configuration directory and from a file alongside the executable,
// in that order, using gopkg.in/ini.v1 for parsing (the library the
// teacher's own go.mod names but never wires in).
func ConfLoad() error {
	exedir := "."
	if PathExecutableFile != "" {
		exedir = filepath.Dir(PathExecutableFile)
	}

	files := []string{
		filepath.Join(PathConfDir, ConfFileName),
		filepath.Join(exedir, ConfFileName),
	}

	for _, file := range files {
		if err := confLoadInternal(file); err != nil {
			return fmt.Errorf("conf: %s", err)
		}
	}

	quirksDirs := []string{
		PathQuirksDir,
		PathConfQuirksDir,
		filepath.Join(exedir, "ptp-usb-bridge-quirks"),
	}

	quirks, err := LoadQuirksSet(quirksDirs...)
	if err != nil {
		return fmt.Errorf("conf: %s", err)
	}
	Conf.Quirks = quirks

	if Conf.Port <= 0 || Conf.Port > 65535 {
		return errors.New("conf: port must be in range 1...65535")
	}

	return nil
}

func confLoadInternal(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	file, err := ini.Load(path)
	if err != nil {
		return err
	}

	if sec := file.Section("network"); sec != nil {
		if k := sec.Key("port"); k.String() != "" {
			port, err := k.Int()
			if err != nil {
				return fmt.Errorf("port: %s", err)
			}
			Conf.Port = port
		}
		if k := sec.Key("bus"); k.String() != "" {
			bus, err := k.Int()
			if err != nil {
				return fmt.Errorf("bus: %s", err)
			}
			Conf.BusNumber = bus
		}
		if k := sec.Key("device"); k.String() != "" {
			dev, err := k.Int()
			if err != nil {
				return fmt.Errorf("device: %s", err)
			}
			Conf.DeviceAddress = dev
		}
		if k := sec.Key("interface"); k.String() != "" {
			Conf.LoopbackOnly, err = confParseBinary(k.String(), "all", "loopback")
			if err != nil {
				return err
			}
		}
		if k := sec.Key("ipv6"); k.String() != "" {
			Conf.IPv6Enable, err = confParseBinary(k.String(), "disable", "enable")
			if err != nil {
				return err
			}
		}
	}

	if sec := file.Section("logging"); sec != nil {
		if k := sec.Key("device-log"); k.String() != "" {
			Conf.LogDevice = confParseLogLevel(k.String())
		}
		if k := sec.Key("main-log"); k.String() != "" {
			Conf.LogMain = confParseLogLevel(k.String())
		}
		if k := sec.Key("console-log"); k.String() != "" {
			Conf.LogConsole = confParseLogLevel(k.String())
		}
		if k := sec.Key("console-color"); k.String() != "" {
			Conf.ColorConsole, err = confParseBinary(k.String(), "disable", "enable")
			if err != nil {
				return err
			}
		}
		if k := sec.Key("max-file-size"); k.String() != "" {
			sz, err := k.Int64()
			if err != nil {
				return fmt.Errorf("max-file-size: %s", err)
			}
			Conf.LogMaxFileSize = sz
		}
		if k := sec.Key("max-backup-files"); k.String() != "" {
			n, err := k.Uint()
			if err != nil {
				return fmt.Errorf("max-backup-files: %s", err)
			}
			Conf.LogMaxBackupFiles = n
		}
	}

	return nil
}

func confParseBinary(value, vFalse, vTrue string) (bool, error) {
	switch value {
	case vFalse:
		return false, nil
	case vTrue:
		return true, nil
	default:
		return false, fmt.Errorf("must be %s or %s", vFalse, vTrue)
	}
}

func confParseLogLevel(value string) LogLevel {
	var mask LogLevel
	for _, s := range strings.Split(value, ",") {
		switch strings.TrimSpace(s) {
		case "":
		case "error":
			mask |= LogError
		case "info":
			mask |= LogInfo | LogError
		case "debug":
			mask |= LogDebug | LogInfo | LogError
		case "trace-usb":
			mask |= LogTraceUSB | LogDebug | LogInfo | LogError
		case "trace-ws":
			mask |= LogTraceWS | LogDebug | LogInfo | LogError
		case "all", "trace-all":
			mask |= LogAll
		}
	}
	return mask
}
