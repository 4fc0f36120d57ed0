/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * The main function
 */

package main

import (
	"fmt"
	"os"
)

const usageText = `Usage:
    %s mode [options]

Modes are:
    standalone  - run forever, serving WebSocket clients against the
                  selected Sony PTP camera
    debug       - logs duplicated on console, -bg option is
                  ignored
    check       - check configuration, list discovered Sony PTP
                  devices, and exit
    status      - print ptp-usb-bridge status and exit

Options are
    -bg         - run in background (ignored in debug mode)
    -watch      - with "status", refresh interactively instead of
                  printing once and exiting
`

// RunMode represents the program run mode.
type RunMode int

const (
	RunDefault RunMode = iota
	RunStandalone
	RunDebug
	RunCheck
	RunStatus
)

func (m RunMode) String() string {
	switch m {
	case RunDefault:
		return "default"
	case RunStandalone:
		return "standalone"
	case RunDebug:
		return "debug"
	case RunCheck:
		return "check"
	case RunStatus:
		return "status"
	}
	return fmt.Sprintf("unknown (%d)", int(m))
}

// RunParameters represents the program run parameters.
type RunParameters struct {
	Mode       RunMode
	Background bool
	Watch      bool
}

func usage() {
	fmt.Printf(usageText, os.Args[0])
	os.Exit(0)
}

func usageError(format string, args ...interface{}) {
	if format != "" {
		fmt.Printf(format+"\n", args...)
	}
	fmt.Printf("Try %s -h for more information\n", os.Args[0])
	os.Exit(1)
}

// parseArgv parses program parameters. In a case of usage error, it
// prints an error message and exits.
func parseArgv() (params RunParameters) {
	params.Mode = RunDebug

	modes := 0
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-h", "-help", "--help":
			usage()
		case "standalone":
			params.Mode = RunStandalone
			modes++
		case "debug":
			params.Mode = RunDebug
			modes++
		case "check":
			params.Mode = RunCheck
			modes++
		case "status":
			params.Mode = RunStatus
			modes++
		case "-bg":
			params.Background = true
		case "-watch":
			params.Watch = true
		default:
			usageError("Invalid argument %s", arg)
		}
	}

	if modes > 1 {
		usageError("Conflicting run modes")
	}

	if params.Mode == RunDebug {
		params.Background = false
	}

	return
}

// printStatus prints the status of a running ptp-usb-bridge daemon,
// if any, to the log (matching the teacher's "log, don't print"
// convention even in status mode).
func printStatus() {
	text, err := StatusRetrieve()
	if err != nil {
		Log.Info(0, "%s", err)
		return
	}

	for _, line := range splitNonEmptyLines(text) {
		Log.Info(0, "%s", line)
	}
}

// checkDevices lists discovered Sony PTP cameras, for "check" mode.
func checkDevices() {
	records := ListAllSony()
	if len(records) == 0 {
		Log.Info(0, "No Sony PTP devices found")
		return
	}

	Log.Info(0, "Sony PTP devices:")
	Log.Info(0, " Num  Device              Vndr:Prod  Model")
	for i, rec := range records {
		Log.Info(0, " %3d. %s", i+1, rec)
	}
}

func main() {
	var err error

	params := parseArgv()

	err = ConfLoad()
	Log.Check(err)

	if params.Mode != RunDebug && params.Mode != RunCheck && params.Mode != RunStatus {
		Console.ToNowhere()
	} else if Conf.ColorConsole {
		Console.ToColorConsole()
	}

	Log.Cc(Conf.LogConsole, Console)

	if err := UsbInit(); err != nil {
		Log.Exit(0, "USB init: %s", err)
	}

	if params.Mode == RunCheck {
		Log.Info(0, "Configuration files: OK")
		checkDevices()
		os.Exit(0)
	}

	if params.Mode == RunStatus {
		if params.Watch {
			Log.Check(RunStatusWatch())
		} else {
			printStatus()
		}
		os.Exit(0)
	}

	if params.Background {
		err = Daemon()
		Log.Check(err)
		os.Exit(0)
	}

	os.MkdirAll(PathLockDir, 0755)
	lock, err := os.OpenFile(PathLockFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	Log.Check(err)
	defer lock.Close()

	err = FileLock(lock, true, false)
	if err == ErrLockIsBusy {
		Log.Exit(0, "ptp-usb-bridge already running")
	}
	Log.Check(err)
	defer FileUnlock(lock)

	Log.Info(' ', "===============================")
	Log.Info(' ', "ptp-usb-bridge started in %q mode, pid=%d", params.Mode, os.Getpid())
	defer Log.Info(' ', "ptp-usb-bridge finished")

	if params.Mode != RunDebug {
		err = CloseStdInOutErr()
		Log.Check(err)
	}

	err = CtrlsockStart()
	Log.Check(err)
	defer CtrlsockStop()

	server := NewServer()
	err = server.Start()
	Log.Check(err)
	defer server.Stop()

	Log.Info(' ', "listening on port %d", Conf.Port)

	watcher := NewDeviceWatcher(DeviceWatcherInterval)
	go watcher.Run(
		func(rec DeviceRecord) {
			Log.Info('+', "device attached: %s", rec)
		},
		func(rec DeviceRecord) {
			Log.Info('-', "device detached: %s", rec)
		},
	)
	defer watcher.Stop()

	select {}
}

// splitNonEmptyLines splits text into lines, dropping a trailing run
// of empty lines.
func splitNonEmptyLines(text []byte) []string {
	s := string(text)
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
