package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// Service derives privacy-safe device metadata from the User-Agent header
// for the login audit trail. The raw User-Agent string is never persisted.
type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

func (s *Service) GenerateDeviceID() string {
	return uuid.New().String()
}

// Fingerprint hashes coarse browser/OS/platform facts. It deliberately
// excludes the IP address, which is tracked separately via verified
// locations.
func (s *Service) Fingerprint(userAgentString string) string {
	if !s.enabled || userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	majorVersion := "unknown"
	if version != "" {
		if first, _, _ := strings.Cut(version, "."); first != "" {
			majorVersion = first
		}
	}

	os := ua.OS()
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	os = strings.ToLower(strings.TrimSpace(os))
	if os == "" {
		os = "unknown"
	}

	data := fmt.Sprintf("%s|%s|%s|%s", browser, majorVersion, os, platform)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// DisplayName extracts a human-readable device name from a User-Agent
// string, in the form "Browser on OS" (e.g. "Chrome on macOS").
func (s *Service) DisplayName(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name

	if strings.TrimSpace(browser) == "" {
		browser = "Unknown Browser"
	}
	if strings.TrimSpace(os) == "" {
		os = "Unknown OS"
	}

	return browser + " on " + os
}
