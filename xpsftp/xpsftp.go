/*Package xpsftp moves files on and off Newport XPS motion controllers.

The controllers keep configuration (system.ini, stages.ini), PVT
trajectory files, and TCL scripts on internal flash, reachable only
through a file transfer service: plain FTP on the C and Q generations,
SFTP on the D generation.  The directory layout is the same on all of
them, modulo the home directory (the C generation roots its FTP server
at /Admin).
*/
package xpsftp

import "strings"

// Remote directories of interest, relative to the generation's home
const (
	// DirConfig holds system.ini and stages.ini
	DirConfig = "Config"

	// DirTrajectories holds PVT trajectory files
	DirTrajectories = "Public/Trajectories"

	// DirScripts holds TCL scripts
	DirScripts = "Public/Scripts"
)

// Filer moves files to and from an XPS controller.  Paths are given as a
// remote directory (one of the Dir constants) and a bare file name.
type Filer interface {
	// Download retrieves a remote file
	Download(dir, file string) ([]byte, error)

	// Upload writes a remote file, replacing any previous contents
	Upload(dir, file string, data []byte) error

	// List returns the file names in a remote directory
	List(dir string) ([]string, error)

	// Delete removes a remote file
	Delete(dir, file string) error

	// Close releases any persistent connection
	Close() error
}

// CleanText normalizes line endings to bare newlines.  Files written by
// the controller, by Windows utilities, and by this package end up with a
// mixture of CRLF and LF over time.
func CleanText(b []byte) string {
	s := string(b)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// joinRemote joins path elements with forward slashes, dropping empties.
// The controllers run POSIX layouts regardless of the client platform.
func joinRemote(elems ...string) string {
	kept := elems[:0:0]
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e != "" {
			kept = append(kept, e)
		}
	}
	joined := strings.Join(kept, "/")
	if len(elems) > 0 && strings.HasPrefix(elems[0], "/") {
		return "/" + joined
	}
	return joined
}
