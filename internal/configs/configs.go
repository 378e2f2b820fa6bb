/*
Package configs is responsible for loading and parsing the application's configuration settings.

Each binary takes its listen or connect address as positional arguments. Everything else,
including the running environment, the admin HTTP surface, the operator token secret, the
audit database and the tracker uplink, is read from operating system environment variables.
*/
package configs

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Role selects which binary is loading configuration.
type Role string

const (
	RoleTracker Role = "tracker"
	RoleServer  Role = "server"
	RoleClient  Role = "client"
)

// DefaultPassword is used by the client when no password argument is given.
const DefaultPassword = "test"

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Settings
	Role        Role
	Environment string
	NodeName    string

	// Positional Arguments
	Host     string
	Port     int
	Username string
	Password string

	// Relay Settings
	TrackerAddr   string
	AdvertiseAddr string
	PollInterval  time.Duration

	// Admin HTTP Settings
	AdminPort      int
	AllowedOrigins []string
	JWTSecret      string

	// Database Settings
	DatabaseDSN string
}

// IsDevelopment reports whether the process runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// ListenAddr is the relay listen address for the tracker and the chat server.
func (c *AppConfig) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AdminAddr is the admin HTTP listen address, or "" when the admin surface is disabled.
func (c *AppConfig) AdminAddr() string {
	if c.AdminPort == 0 {
		return ""
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.AdminPort))
}

// Usage returns the command line synopsis for role.
func Usage(role Role) string {
	if role == RoleClient {
		return "usage: client <hostname> <port> <username> [password]"
	}
	return fmt.Sprintf("usage: %s [hostname] <port>", role)
}

// LoadConfig reads the positional arguments for role and the environment variables.
// args excludes the program name.
func LoadConfig(role Role, args []string) (*AppConfig, error) {
	cfg := &AppConfig{Role: role}

	if err := parseArgs(cfg, args); err != nil {
		return nil, err
	}

	// --- General Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.NodeName = os.Getenv("NODE_NAME")
	if cfg.NodeName == "" {
		cfg.NodeName = fmt.Sprintf("%s-%d", role, cfg.Port)
	}

	// --- Relay Settings ---
	cfg.TrackerAddr = os.Getenv("TRACKER_ADDR")
	cfg.AdvertiseAddr = os.Getenv("ADVERTISE_ADDR")
	if role == RoleServer && cfg.AdvertiseAddr == "" && cfg.Host != "" {
		cfg.AdvertiseAddr = cfg.ListenAddr()
	}

	cfg.PollInterval = time.Second
	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL environment variable %q", raw)
		}
		cfg.PollInterval = interval
	}

	if role == RoleClient {
		return cfg, nil
	}

	// --- Admin HTTP Settings ---
	if raw := os.Getenv("ADMIN_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_PORT environment variable: %w", err)
		}
		if port != 0 && (port < 1024 || port > 65535) {
			return nil, fmt.Errorf("admin port %d is outside the allowed range (%d-%d)", port, 1024, 65535)
		}
		cfg.AdminPort = port
	}

	originsStr := os.Getenv("ALLOWED_ORIGINS")
	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(originsStr, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	jwtSecret := os.Getenv("ADMIN_JWT_SECRET")
	if jwtSecret == "" && cfg.AdminPort != 0 {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("ADMIN_JWT_SECRET environment variable is required in %s environment when ADMIN_PORT is set", cfg.Environment)
		}
		jwtSecret = "your_default_insecure_secret_key_change_me"
	}
	cfg.JWTSecret = jwtSecret

	// --- Database Settings ---
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	return cfg, nil
}

func parseArgs(cfg *AppConfig, args []string) error {
	var portStr string

	switch cfg.Role {
	case RoleClient:
		if len(args) < 3 || len(args) > 4 {
			return fmt.Errorf("incorrect number of arguments: %s", Usage(cfg.Role))
		}
		cfg.Host, portStr, cfg.Username = args[0], args[1], args[2]
		cfg.Password = DefaultPassword
		if len(args) == 4 {
			cfg.Password = args[3]
		}
		if cfg.Host == "" || cfg.Username == "" {
			return fmt.Errorf("hostname and username must not be empty")
		}
	default:
		switch len(args) {
		case 1:
			portStr = args[0]
		case 2:
			cfg.Host, portStr = args[0], args[1]
		default:
			return fmt.Errorf("incorrect number of arguments: %s", Usage(cfg.Role))
		}
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port number %d is outside the valid range (1-65535)", port)
	}
	if cfg.Role == RoleClient && port == 65535 {
		return fmt.Errorf("port %d leaves no room for the tracker port", port)
	}
	cfg.Port = port

	return nil
}
