package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Host         string
	Port         int
	UnixSocket   bool
	SocketPath   string
	MountPath    string
	MockDir      string
	Ignore       []string
	SkipFSEvents bool
	LogLevel     string
	LogFormat    string
	MetricsPath  string
}

const (
	DefaultHost      = "localhost"
	DefaultPort      = 9002
	DefaultMountPath = "/api"
	DefaultMockDir   = "./mocks"
	DefaultSocket    = "./socket"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	// WatchFilesDisabled turns the watcher off when set in WATCH_FILES.
	WatchFilesDisabled = "none"
)

// Flags carries raw command line values. Zero values mean "not given" so the
// environment and then the defaults apply.
type Flags struct {
	Host        string
	Port        int
	UnixSocket  bool
	SocketPath  string
	MountPath   *string
	MockDir     string
	Ignore      []string
	NoWatch     bool
	LogLevel    string
	LogFormat   string
	MetricsPath string
}

func Resolve(flags Flags) (Config, error) {
	c := Config{}

	port, err := getPort(flags.Port)
	if err != nil {
		return c, err
	}

	c.Port = port
	c.Host = firstOf(flags.Host, os.Getenv("HOST"), DefaultHost)
	c.UnixSocket = flags.UnixSocket || flags.SocketPath != "" || isTrue(os.Getenv("UNIX_SOCKET"))
	c.SocketPath = firstOf(flags.SocketPath, os.Getenv("SOCKET_PATH"), DefaultSocket)
	c.MountPath = NormalizeMountPath(getMountPath(flags.MountPath))
	c.MockDir = firstOf(flags.MockDir, os.Getenv("MOCK_DIR"), DefaultMockDir)
	c.Ignore = getIgnore(flags.Ignore)
	c.SkipFSEvents = flags.NoWatch || getSkipFSEvents()
	c.LogLevel = firstOf(flags.LogLevel, os.Getenv("LOG_LEVEL"), DefaultLogLevel)
	c.LogFormat = firstOf(flags.LogFormat, os.Getenv("LOG_FORMAT"), DefaultLogFormat)
	c.MetricsPath = firstOf(flags.MetricsPath, os.Getenv("METRICS_PATH"))

	if c.UnixSocket && (flags.Host != "" || flags.Port != 0) {
		return c, fmt.Errorf("unix socket cannot be combined with host or port")
	}

	if abs, err := filepath.Abs(c.MockDir); err == nil {
		c.MockDir = abs
	}

	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		c.MetricsPath = "/" + c.MetricsPath
	}

	return c, nil
}

// NormalizeMountPath gives "" for the root mount and "/prefix" otherwise.
func NormalizeMountPath(mountPath string) string {
	mountPath = strings.TrimSpace(mountPath)
	mountPath = strings.TrimRight(mountPath, "/")

	if mountPath == "" {
		return ""
	}

	if !strings.HasPrefix(mountPath, "/") {
		mountPath = "/" + mountPath
	}

	return mountPath
}

func getPort(cliPort int) (int, error) {
	if cliPort != 0 {
		return cliPort, nil
	}

	envPort := os.Getenv("PORT")
	if envPort != "" {
		portToReturn, err := strconv.Atoi(envPort)
		if err != nil {
			return 0, fmt.Errorf("unable to parse port from env variable %s", envPort)
		}

		return portToReturn, nil
	}

	return DefaultPort, nil
}

func getMountPath(cliMountPath *string) string {
	if cliMountPath != nil {
		return *cliMountPath
	}

	if envMountPath, found := os.LookupEnv("MOUNT_PATH"); found {
		return envMountPath
	}

	return DefaultMountPath
}

func getIgnore(cliIgnore []string) []string {
	if len(cliIgnore) > 0 {
		return cliIgnore
	}

	envIgnore := os.Getenv("IGNORE")
	if envIgnore == "" {
		return nil
	}

	var patterns []string
	for _, pattern := range strings.Split(envIgnore, ",") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}

	return patterns
}

func getSkipFSEvents() bool {
	if strings.ToLower(os.Getenv("WATCH_FILES")) == WatchFilesDisabled {
		return true
	}

	return isTrue(os.Getenv("SKIP_FS_EVENTS"))
}

func isTrue(value string) bool {
	return strings.ToLower(value) == "true"
}

func firstOf(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
