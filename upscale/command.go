package upscale

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Command wraps exec.Cmd, buffering combined output and mirroring it to
// a debug logger as the child writes.
type Command struct {
	cmd    *exec.Cmd
	name   string
	output bytes.Buffer
	logger *logrus.Entry
}

func CommandContextLogger(ctx context.Context, logger *logrus.Entry, name string, arg ...string) *Command {
	cmd := exec.CommandContext(ctx, name, arg...)

	command := Command{cmd: cmd, name: name + " " + strings.Join(arg, " "), logger: logger}
	cmd.Stdout = &command
	cmd.Stderr = &command

	return &command
}

func (c *Command) Write(p []byte) (n int, err error) {
	if c.logger != nil {
		c.logger.WithField("cmdName", c.name).Debug(string(p))
	}
	return c.output.Write(p)
}

func (c *Command) CombinedOutput() (string, error) {
	err := c.cmd.Run()
	return c.output.String(), err
}
