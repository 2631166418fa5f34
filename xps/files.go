package xps

import (
	"github.com/pkg/errors"

	"github.com/beamline-tools/newportxps/xpsftp"
)

func (c *Controller) filer() (xpsftp.Filer, error) {
	if c.Filer == nil {
		return nil, errors.New("no file transfer session; call Connect first")
	}
	return c.Filer, nil
}

// DownloadSystemINI fetches system.ini from the controller, with line
// endings normalized
func (c *Controller) DownloadSystemINI() (string, error) {
	f, err := c.filer()
	if err != nil {
		return "", err
	}
	b, err := f.Download(xpsftp.DirConfig, "system.ini")
	if err != nil {
		return "", err
	}
	return xpsftp.CleanText(b), nil
}

// UploadSystemINI replaces system.ini on the controller.  A reboot is
// required before the new configuration takes effect.
func (c *Controller) UploadSystemINI(text string) error {
	f, err := c.filer()
	if err != nil {
		return err
	}
	return f.Upload(xpsftp.DirConfig, "system.ini", normalize(text))
}

// normalize applies the line ending cleanup to outbound text as well;
// the controller's parsers choke on CRLF mixtures
func normalize(text string) []byte {
	return []byte(xpsftp.CleanText([]byte(text)))
}

// DownloadStagesINI fetches stages.ini, the stage parameter database
func (c *Controller) DownloadStagesINI() (string, error) {
	f, err := c.filer()
	if err != nil {
		return "", err
	}
	b, err := f.Download(xpsftp.DirConfig, "stages.ini")
	if err != nil {
		return "", err
	}
	return xpsftp.CleanText(b), nil
}

// UploadStagesINI replaces stages.ini on the controller
func (c *Controller) UploadStagesINI(text string) error {
	f, err := c.filer()
	if err != nil {
		return err
	}
	return f.Upload(xpsftp.DirConfig, "stages.ini", normalize(text))
}

// UploadTrajectory places a PVT trajectory file in Public/Trajectories so
// MultipleAxesPVTExecution can find it
func (c *Controller) UploadTrajectory(name, text string) error {
	f, err := c.filer()
	if err != nil {
		return err
	}
	return f.Upload(xpsftp.DirTrajectories, name, normalize(text))
}

// DownloadTrajectory fetches a trajectory file from Public/Trajectories
func (c *Controller) DownloadTrajectory(name string) (string, error) {
	f, err := c.filer()
	if err != nil {
		return "", err
	}
	b, err := f.Download(xpsftp.DirTrajectories, name)
	if err != nil {
		return "", err
	}
	return xpsftp.CleanText(b), nil
}

// ListScripts returns the TCL scripts present in Public/Scripts
func (c *Controller) ListScripts() ([]string, error) {
	f, err := c.filer()
	if err != nil {
		return nil, err
	}
	return f.List(xpsftp.DirScripts)
}

// UploadScript places a TCL script in Public/Scripts
func (c *Controller) UploadScript(name, text string) error {
	f, err := c.filer()
	if err != nil {
		return err
	}
	return f.Upload(xpsftp.DirScripts, name, normalize(text))
}

// DownloadScript fetches a TCL script from Public/Scripts
func (c *Controller) DownloadScript(name string) (string, error) {
	f, err := c.filer()
	if err != nil {
		return "", err
	}
	b, err := f.Download(xpsftp.DirScripts, name)
	if err != nil {
		return "", err
	}
	return xpsftp.CleanText(b), nil
}

// DeleteScript removes a TCL script from Public/Scripts
func (c *Controller) DeleteScript(name string) error {
	f, err := c.filer()
	if err != nil {
		return err
	}
	return f.Delete(xpsftp.DirScripts, name)
}
