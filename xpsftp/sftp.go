package xpsftp

import (
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTP is a Filer for the D generation controllers, which replaced the
// embedded FTP server with SSH.  The session is dialed lazily and kept
// until Close.
type SFTP struct {
	host     string
	username string
	password string

	sshc  *ssh.Client
	sftpc *sftp.Client
}

// NewSFTP returns an SFTP Filer
func NewSFTP(host, username, password string) *SFTP {
	return &SFTP{host: host, username: username, password: password}
}

func (s *SFTP) client() (*sftp.Client, error) {
	if s.sftpc != nil {
		return s.sftpc, nil
	}
	cfg := &ssh.ClientConfig{
		User: s.username,
		Auth: []ssh.AuthMethod{ssh.Password(s.password)},
		// the controller generates a fresh host key on every firmware
		// install, so pinning is not practical
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}
	sshc, err := ssh.Dial("tcp", net.JoinHostPort(s.host, "22"), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "ssh dial")
	}
	sftpc, err := sftp.NewClient(sshc)
	if err != nil {
		sshc.Close()
		return nil, errors.Wrap(err, "sftp session")
	}
	s.sshc = sshc
	s.sftpc = sftpc
	return sftpc, nil
}

// Download retrieves a remote file
func (s *SFTP) Download(dir, file string) ([]byte, error) {
	c, err := s.client()
	if err != nil {
		return nil, err
	}
	fp, err := c.Open(joinRemote(dir, file))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s/%s", dir, file)
	}
	defer fp.Close()
	return io.ReadAll(fp)
}

// Upload writes a remote file
func (s *SFTP) Upload(dir, file string, data []byte) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	fp, err := c.Create(joinRemote(dir, file))
	if err != nil {
		return errors.Wrapf(err, "creating %s/%s", dir, file)
	}
	defer fp.Close()
	_, err = fp.Write(data)
	return errors.Wrapf(err, "writing %s/%s", dir, file)
}

// List returns the file names in a remote directory
func (s *SFTP) List(dir string) ([]string, error) {
	c, err := s.client()
	if err != nil {
		return nil, err
	}
	infos, err := c.ReadDir(joinRemote(dir))
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if !fi.IsDir() {
			names = append(names, fi.Name())
		}
	}
	return names, nil
}

// Delete removes a remote file
func (s *SFTP) Delete(dir, file string) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	return errors.Wrapf(c.Remove(joinRemote(dir, file)), "deleting %s/%s", dir, file)
}

// Close tears down the SSH session
func (s *SFTP) Close() error {
	var err error
	if s.sftpc != nil {
		err = s.sftpc.Close()
		s.sftpc = nil
	}
	if s.sshc != nil {
		if cerr := s.sshc.Close(); err == nil {
			err = cerr
		}
		s.sshc = nil
	}
	return err
}
