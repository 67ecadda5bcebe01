// Package autostart registers a command to run at login: an XDG autostart
// entry on Linux, a LaunchAgent on macOS.
package autostart

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Entry describes what runs at login.
type Entry struct {
	// Name is the file name on Linux and the display name.
	Name string
	// Label is the LaunchAgent label on macOS.
	Label string
	// Args is the full command line, program first.
	Args []string
}

// ForCommand builds the entry for the running executable invoked with
// args, e.g. ForCommand("tray").
func ForCommand(args ...string) (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:  "claudebar",
		Label: "com.claudebar." + strings.Join(args, "-"),
		Args:  append([]string{exe}, args...),
	}, nil
}

type backend interface {
	path(e Entry) (string, error)
	render(e Entry) []byte
	// loaded/unloaded run after the file is written or before it is removed.
	loaded(path string) error
	unloaded(path string)
}

func current() (backend, error) {
	switch runtime.GOOS {
	case "linux":
		return xdg{}, nil
	case "darwin":
		return launchd{}, nil
	default:
		return nil, fmt.Errorf("autostart not supported on %s", runtime.GOOS)
	}
}

func Install(e Entry) error {
	b, err := current()
	if err != nil {
		return err
	}
	return install(b, e)
}

func Uninstall(e Entry) error {
	b, err := current()
	if err != nil {
		return err
	}
	return uninstall(b, e)
}

// Installed reports whether e is registered. It is false on unsupported
// platforms.
func Installed(e Entry) (bool, error) {
	b, err := current()
	if err != nil {
		return false, nil
	}
	return installed(b, e)
}

func install(b backend, e Entry) error {
	if len(e.Args) == 0 {
		return errors.New("autostart: empty command")
	}
	path, err := b.path(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, b.render(e), 0644); err != nil {
		return err
	}
	return b.loaded(path)
}

func uninstall(b backend, e Entry) error {
	path, err := b.path(e)
	if err != nil {
		return err
	}
	b.unloaded(path)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func installed(b backend, e Entry) (bool, error) {
	path, err := b.path(e)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

type xdg struct{}

func (xdg) path(e Entry) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autostart", e.Name+".desktop"), nil
}

func (xdg) render(e Entry) []byte {
	quoted := make([]string, len(e.Args))
	for i, a := range e.Args {
		quoted[i] = execQuote(a)
	}
	var b bytes.Buffer
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", e.Name)
	b.WriteString("Comment=Claude subscription usage in the status bar\n")
	fmt.Fprintf(&b, "Exec=%s\n", strings.Join(quoted, " "))
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.Bytes()
}

func (xdg) loaded(string) error { return nil }
func (xdg) unloaded(string)     {}

// execQuote quotes an Exec argument when it contains characters the
// desktop entry format treats specially.
func execQuote(a string) string {
	if a != "" && !strings.ContainsAny(a, " \t\n\"'\\$`<>|&;*?#()") {
		return a
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(a) + `"`
}

type launchd struct{}

func (launchd) path(e Entry) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", e.Label+".plist"), nil
}

func (launchd) render(e Entry) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString("<plist version=\"1.0\">\n<dict>\n")
	b.WriteString("    <key>Label</key>\n    <string>")
	_ = xml.EscapeText(&b, []byte(e.Label))
	b.WriteString("</string>\n    <key>ProgramArguments</key>\n    <array>\n")
	for _, a := range e.Args {
		b.WriteString("        <string>")
		_ = xml.EscapeText(&b, []byte(a))
		b.WriteString("</string>\n")
	}
	b.WriteString("    </array>\n    <key>RunAtLoad</key>\n    <true/>\n    <key>KeepAlive</key>\n    <false/>\n")
	b.WriteString("</dict>\n</plist>\n")
	return b.Bytes()
}

func (launchd) loaded(path string) error {
	return exec.Command("launchctl", "load", path).Run()
}

// unloaded ignores errors: an agent that was never loaded cannot be
// unloaded, and removing the file is what matters.
func (launchd) unloaded(path string) {
	_ = exec.Command("launchctl", "unload", path).Run()
}
