package xpsftp

import (
	"bytes"
	"io"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/pkg/errors"
)

const ftpDialTimeout = 5 * time.Second

// FTP is a Filer for the C and Q generation controllers.  A fresh control
// connection is made per operation; the embedded FTP server drops idle
// sessions quickly and reconnecting is cheap on a lab network.
type FTP struct {
	host     string
	username string
	password string
	home     string
}

// NewFTP returns an FTP Filer.  home is the remote prefix the generation
// roots its server at ("/Admin" on C, "" elsewhere).
func NewFTP(host, username, password, home string) *FTP {
	return &FTP{host: host, username: username, password: password, home: home}
}

func (f *FTP) connect() (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(net.JoinHostPort(f.host, "21"), ftp.DialWithTimeout(ftpDialTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "ftp dial")
	}
	if err := conn.Login(f.username, f.password); err != nil {
		conn.Quit()
		return nil, errors.Wrap(err, "ftp login")
	}
	return conn, nil
}

// Download retrieves a remote file
func (f *FTP) Download(dir, file string) ([]byte, error) {
	conn, err := f.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Quit()
	resp, err := conn.Retr(joinRemote(f.home, dir, file))
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving %s/%s", dir, file)
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

// Upload writes a remote file
func (f *FTP) Upload(dir, file string, data []byte) error {
	conn, err := f.connect()
	if err != nil {
		return err
	}
	defer conn.Quit()
	err = conn.Stor(joinRemote(f.home, dir, file), bytes.NewReader(data))
	return errors.Wrapf(err, "storing %s/%s", dir, file)
}

// List returns the file names in a remote directory
func (f *FTP) List(dir string) ([]string, error) {
	conn, err := f.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Quit()
	names, err := conn.NameList(joinRemote(f.home, dir))
	return names, errors.Wrapf(err, "listing %s", dir)
}

// Delete removes a remote file
func (f *FTP) Delete(dir, file string) error {
	conn, err := f.connect()
	if err != nil {
		return err
	}
	defer conn.Quit()
	err = conn.Delete(joinRemote(f.home, dir, file))
	return errors.Wrapf(err, "deleting %s/%s", dir, file)
}

// Close is a no-op; FTP sessions are per-operation
func (f *FTP) Close() error { return nil }
