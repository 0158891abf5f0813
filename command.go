package main

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

type Command struct {
	cmd    *exec.Cmd
	name   string
	output bytes.Buffer
}

func NewCommandContext(ctx context.Context, cmd_name string, args ...string) *Command {
	cmd := exec.CommandContext(ctx, cmd_name, args...)

	return &Command{cmd: cmd, name: cmd_name + " " + strings.Join(args, " ")}
}

func CreateAndRunCommandContext(ctx context.Context, cmd_name string, args ...string) (string, error) {
	cmd := NewCommandContext(ctx, cmd_name, args...)
	return cmd.CombinedOutput()
}

func (c *Command) String() string {
	return c.name
}

func (c *Command) CombinedOutput() (string, error) {
	c.cmd.Stdout = &c.output
	c.cmd.Stderr = &c.output

	err := c.cmd.Run()
	return c.output.String(), err
}

// Output captures stdout only, stderr still lands in the buffer for
// diagnostics.
func (c *Command) Output() ([]byte, error) {
	var stdout bytes.Buffer
	c.cmd.Stdout = &stdout
	c.cmd.Stderr = &c.output

	err := c.cmd.Run()
	return stdout.Bytes(), err
}

func (c *Command) GetOutput() string {
	return c.output.String()
}
