// pkg/config/hosts_config.go

package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// HostsConfig represents an Ansible-style INI inventory of hosts to audit
type HostsConfig struct {
	Defaults DefaultConfig
	Hosts    []HostEntry
	Groups   map[string][]HostEntry
}

// DefaultConfig holds default settings for all hosts
type DefaultConfig struct {
	User       string
	Port       int
	SSHKeyFile string
}

// HostEntry represents a single host configuration
type HostEntry struct {
	Hostname   string
	Address    string // ansible_host; empty means Hostname is dialed
	Port       int
	User       string
	SSHKeyFile string
	Group      string
}

// Target returns the address to dial
func (h HostEntry) Target() string {
	if h.Address != "" {
		return h.Address
	}
	return h.Hostname
}

// NewHostsConfig creates a new hosts configuration with defaults
func NewHostsConfig() *HostsConfig {
	return &HostsConfig{
		Defaults: DefaultConfig{
			User:       "ubuntu",
			Port:       6677,
			SSHKeyFile: ExpandPath("~/.ssh/id_rsa"),
		},
		Hosts:  []HostEntry{},
		Groups: make(map[string][]HostEntry),
	}
}

// LoadFromFile loads hosts configuration from an INI-style file
func (hc *HostsConfig) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open hosts file: %w", err)
	}
	defer file.Close()

	var pending []HostEntry
	scanner := bufio.NewScanner(file)
	currentGroup := ""
	skipSection := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentGroup = strings.Trim(line, "[]")
			skipSection = false

			switch {
			case currentGroup == "defaults" || currentGroup == "all:vars":
				currentGroup = "defaults"
			case strings.HasSuffix(currentGroup, ":children") || strings.HasSuffix(currentGroup, ":vars"):
				// Group nesting and per-group vars don't name hosts
				skipSection = true
			default:
				if _, exists := hc.Groups[currentGroup]; !exists {
					hc.Groups[currentGroup] = []HostEntry{}
				}
			}
			continue
		}

		if skipSection {
			continue
		}

		if currentGroup == "defaults" {
			// Don't fail on parse errors, just skip the line
			_ = hc.parseDefaultLine(line)
			continue
		}

		host, err := parseHostLine(line, currentGroup)
		if err != nil {
			continue
		}
		pending = append(pending, host)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading hosts file: %w", err)
	}

	// Defaults may appear after the hosts, so they are applied once the whole file is read
	for _, host := range pending {
		hc.applyDefaultsToHost(&host)
		if host.Group != "" {
			hc.Groups[host.Group] = append(hc.Groups[host.Group], host)
		}
		if _, exists := hc.GetHost(host.Hostname); !exists {
			hc.Hosts = append(hc.Hosts, host)
		}
	}

	return nil
}

// parseDefaultLine parses a default configuration line
func (hc *HostsConfig) parseDefaultLine(line string) error {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid default line format: %s", line)
	}

	key := strings.TrimSpace(parts[0])
	value := strings.Trim(strings.TrimSpace(parts[1]), "\"'`")

	switch key {
	case "user", "ssh_user", "ansible_user":
		hc.Defaults.User = value
	case "port", "ssh_port", "ansible_port":
		port, err := parsePort(value)
		if err != nil {
			return err
		}
		hc.Defaults.Port = port
	case "ssh_key_file", "ssh_key", "ansible_ssh_private_key_file":
		hc.Defaults.SSHKeyFile = ExpandPath(value)
	}

	return nil
}

// parseHostLine parses a host line: a name followed by key=value variables
func parseHostLine(line string, group string) (HostEntry, error) {
	host := HostEntry{Group: group}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return host, fmt.Errorf("empty host line")
	}

	host.Hostname = parts[0]
	if strings.Contains(host.Hostname, "=") {
		return host, fmt.Errorf("variable assignment outside a vars section: %s", line)
	}

	for _, part := range parts[1:] {
		keyValue := strings.SplitN(part, "=", 2)
		if len(keyValue) != 2 {
			continue
		}

		key := strings.TrimSpace(keyValue[0])
		value := strings.Trim(strings.TrimSpace(keyValue[1]), "\"'`")

		switch key {
		case "host", "ansible_host":
			host.Address = value
		case "user", "ssh_user", "ansible_user":
			host.User = value
		case "port", "ssh_port", "ansible_port":
			port, err := parsePort(value)
			if err != nil {
				return host, err
			}
			host.Port = port
		case "ssh_key_file", "ssh_key", "ansible_ssh_private_key_file":
			host.SSHKeyFile = ExpandPath(value)
		}
	}

	return host, nil
}

// applyDefaultsToHost applies default values to a host entry
func (hc *HostsConfig) applyDefaultsToHost(host *HostEntry) {
	if host.Port == 0 {
		host.Port = hc.Defaults.Port
	}
	if host.User == "" {
		host.User = hc.Defaults.User
	}
	if host.SSHKeyFile == "" {
		host.SSHKeyFile = hc.Defaults.SSHKeyFile
	}
}

// GetAllHosts returns every configured host once, in file order
func (hc *HostsConfig) GetAllHosts() []HostEntry {
	return hc.Hosts
}

// GetHostsByGroup returns hosts in a specific group
func (hc *HostsConfig) GetHostsByGroup(group string) []HostEntry {
	return hc.Groups[group]
}

// GetHost returns a specific host by name
func (hc *HostsConfig) GetHost(hostname string) (*HostEntry, bool) {
	for i := range hc.Hosts {
		if hc.Hosts[i].Hostname == hostname {
			return &hc.Hosts[i], true
		}
	}
	return nil, false
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", value)
	}
	return port, nil
}

// ExpandPath expands ~ and environment variables in file paths
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	return os.ExpandEnv(path)
}
