// pkg/config/settings.go

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CONFORM_FAIL2BAN_JAIL
const EnvPrefix = "CONFORM"

// Settings describes what a conforming host looks like.
// Everything has a built-in default matching the provisioning scripts;
// a YAML file or CONFORM_* variables may override any of it.
type Settings struct {
	// DefaultSSHPort is the platform port that should be closed once SSH moved
	DefaultSSHPort int `mapstructure:"default_ssh_port"`

	// Timeout bounds every single remote call and port probe
	Timeout time.Duration `mapstructure:"timeout"`

	Fail2ban Fail2banSettings `mapstructure:"fail2ban"`

	// Markers are sentinel files left behind by completed hardening steps
	Markers []string `mapstructure:"markers"`

	// HelperScripts must exist and be executable
	HelperScripts []string `mapstructure:"helper_scripts"`
}

// Fail2banSettings names the intrusion-prevention pieces on the host
type Fail2banSettings struct {
	Client  string `mapstructure:"client"`
	Service string `mapstructure:"service"`
	Jail    string `mapstructure:"jail"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_ssh_port", 22)
	v.SetDefault("timeout", "10s")
	v.SetDefault("fail2ban.client", "fail2ban-client")
	v.SetDefault("fail2ban.service", "fail2ban")
	v.SetDefault("fail2ban.jail", "sshd")
	v.SetDefault("markers", []string{
		"/var/log/ssh-hardening-complete",
		"/var/log/fail2ban-setup-complete",
	})
	v.SetDefault("helper_scripts", []string{
		"/usr/local/bin/ssh-security-status",
		"/usr/local/bin/fail2ban-unban",
	})
}

// LoadSettings builds Settings from defaults, the optional YAML file at path, and the environment
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate rejects settings no check could run with
func (s *Settings) Validate() error {
	if s.DefaultSSHPort < 1 || s.DefaultSSHPort > 65535 {
		return fmt.Errorf("default_ssh_port %d out of range", s.DefaultSSHPort)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.Fail2ban.Client == "" || s.Fail2ban.Service == "" || s.Fail2ban.Jail == "" {
		return fmt.Errorf("fail2ban client, service and jail must all be set")
	}
	for _, p := range append(append([]string{}, s.Markers...), s.HelperScripts...) {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("remote path %q must be absolute", p)
		}
	}
	return nil
}
