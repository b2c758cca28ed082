package infra

import (
	"fmt"
	"runtime"
	"sync"
)

var (
	uaMu             sync.RWMutex
	currentUserAgent = DefaultUserAgent()
)

// GetUserAgent returns the current active User-Agent string. (Thread-safe)
func GetUserAgent() string {
	uaMu.RLock()
	defer uaMu.RUnlock()
	return currentUserAgent
}

// SetUserAgent updates the User-Agent sent to vendor APIs. (Thread-safe)
func SetUserAgent(ua string) {
	uaMu.Lock()
	defer uaMu.Unlock()
	currentUserAgent = ua
}

// DefaultUserAgent identifies the dashboard and the platform it runs on.
func DefaultUserAgent() string {
	return UserAgentFor(AppName, "1.0")
}

// UserAgentFor builds "name/version (os; arch)".
func UserAgentFor(name, version string) string {
	if name == "" {
		name = AppName
	}
	return fmt.Sprintf("%s/%s (%s; %s)", name, version, runtime.GOOS, runtime.GOARCH)
}
