package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenBrowser opens the default system browser to an absolute http(s) URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(target string) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: refusing to open %q", ErrInvalidArgument, target)
	}

	var name string
	var args []string
	switch rt := getRuntime(); rt {
	case "darwin":
		name, args = "open", []string{target}
	case "linux":
		name, args = "xdg-open", []string{target}
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := startCommand(name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
