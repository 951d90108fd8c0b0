package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ResolveValue handles indirections in config values:
// - srv://_service._proto.domain -> host:port from a DNS SRV lookup
// - $(...) -> shell command output
// - ${VAR} or $VAR -> environment variable
// - literal string -> returned as-is
func ResolveValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	switch {
	case strings.HasPrefix(value, "srv://"):
		return resolveSRV(value, net.LookupSRV)
	case strings.HasPrefix(value, "$(") && strings.HasSuffix(value, ")"):
		return resolveCommand(value[2 : len(value)-1])
	default:
		return expandEnv(value), nil
	}
}

// expandEnv expands a value that is exactly ${VAR} or $VAR
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "$(") {
		return os.Getenv(s[1:])
	}
	return s
}

type srvLookup func(service, proto, name string) (string, []*net.SRV, error)

// resolveSRV turns srv://_playground._tcp.example.com into host:port of the
// highest-priority target.
func resolveSRV(srvURL string, lookup srvLookup) (string, error) {
	u, err := url.Parse(srvURL)
	if err != nil {
		return "", fmt.Errorf("invalid srv:// URL: %w", err)
	}
	record := u.Host
	if record == "" {
		return "", fmt.Errorf("srv:// URL missing host: %s", srvURL)
	}

	_, addrs, err := lookup("", "", record)
	if err != nil {
		return "", fmt.Errorf("SRV lookup failed for %s: %w", record, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no SRV records found for %s", record)
	}

	addr := addrs[0]
	host := strings.TrimSuffix(addr.Target, ".")
	return net.JoinHostPort(host, strconv.Itoa(int(addr.Port))), nil
}

// resolveCommand executes a shell command and returns its output
func resolveCommand(cmd string) (string, error) {
	output, err := exec.Command("sh", "-c", cmd).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("command failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
