/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Common paths
 */

package main

import (
	"os"
	"path/filepath"
)

const (
	// PathConfDir is the path to the system configuration directory.
	PathConfDir = "/etc/ptp-usb-bridge"

	// PathProgState is the path to the program state directory.
	PathProgState = "/var/lib/ptp-usb-bridge"

	// PathLockDir is the path to the directory that contains the
	// single-instance lock file.
	PathLockDir = PathProgState + "/lock"

	// PathLockFile is the path to the single-instance lock file.
	PathLockFile = PathLockDir + "/ptp-usb-bridge.lock"

	// PathLogDir is the path to the directory holding per-camera log
	// files (named by CameraIdent).
	PathLogDir = PathProgState + "/log"

	// PathControlSocket is the path to the Unix-domain control socket
	// used for out-of-band status queries.
	PathControlSocket = PathProgState + "/ctrl"

	// PathQuirksDir is the built-in camera-quirks directory, installed
	// alongside the program.
	PathQuirksDir = "/usr/share/ptp-usb-bridge/quirks"

	// PathConfQuirksDir is the site-local override directory for
	// camera quirks.
	PathConfQuirksDir = PathConfDir + "/quirks"
)

// PathExecutableFile is the absolute path to this program's own
// executable, used by Daemon to re-exec itself in the background.
// Resolved once at startup; empty if os.Executable fails (the -bg
// flag is then rejected, rather than silently misbehaving).
var PathExecutableFile string

func init() {
	if exe, err := os.Executable(); err == nil {
		PathExecutableFile, _ = filepath.Abs(exe)
	}
}
