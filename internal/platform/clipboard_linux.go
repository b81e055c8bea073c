//go:build linux

package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	cliplib "github.com/atotto/clipboard"
	"go.uber.org/zap"
)

const (
	toolXclip   = "xclip"
	toolWlPaste = "wl-paste"
)

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LinuxClipboard reads typed data through xclip on X11 or wl-paste on
// Wayland. Plain text goes through atotto, which picks whichever of the
// two (or xsel) is installed.
type LinuxClipboard struct {
	tool   string
	run    runner
	text   func() (string, error)
	logger *zap.Logger
}

// New returns the clipboard for the current session.
func New(logger *zap.Logger) Clipboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &LinuxClipboard{
		tool:   detectTool(),
		run:    runCommand,
		text:   cliplib.ReadAll,
		logger: logger.Named("platform"),
	}
	if c.tool == "" {
		c.logger.Warn("Neither xclip nor wl-paste found, only text can be read")
	} else {
		c.logger.Debug("Clipboard tool selected", zap.String("tool", c.tool))
	}
	return c
}

func detectTool() string {
	if os.Getenv("WAYLAND_DISPLAY") != "" && hasCommand(toolWlPaste) {
		return toolWlPaste
	}
	if os.Getenv("DISPLAY") != "" && hasCommand(toolXclip) {
		return toolXclip
	}
	return ""
}

func hasCommand(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (c *LinuxClipboard) Formats(ctx context.Context) ([]string, error) {
	var out []byte
	var err error
	switch c.tool {
	case toolXclip:
		out, err = c.run(ctx, toolXclip, "-selection", "clipboard", "-t", "TARGETS", "-o")
	case toolWlPaste:
		out, err = c.run(ctx, toolWlPaste, "--list-types")
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		if isEmptyExit(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", c.tool, err)
	}
	return ParseFormats(out), nil
}

func (c *LinuxClipboard) Bytes(ctx context.Context, mime string) ([]byte, error) {
	var out []byte
	var err error
	switch c.tool {
	case toolXclip:
		out, err = c.run(ctx, toolXclip, "-selection", "clipboard", "-t", mime, "-o")
	case toolWlPaste:
		out, err = c.run(ctx, toolWlPaste, "--no-newline", "--type", mime)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		// Both tools exit 1 when nothing is offered under the target.
		if isEmptyExit(err) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("%s %s: %w", c.tool, mime, err)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func (c *LinuxClipboard) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := c.text()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return "", ErrEmpty
	}
	return text, nil
}

func isEmptyExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}
