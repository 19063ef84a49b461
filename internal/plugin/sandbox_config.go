package plugin

import (
	"time"

	"github.com/grimeditor/grim/internal/plugin/security"
)

// SandboxConfig describes the resource and access restrictions a Host
// enforces for a single plugin. It is the Go-side counterpart of the
// manifest's `permissions` table (see ManifestPermissions): the loader
// turns a parsed manifest into a SandboxConfig once, at load time, and
// the Host builds its PermissionChecker and ResourceMonitor from it.
type SandboxConfig struct {
	EnableFilesystemAccess bool
	EnableNetworkAccess    bool
	EnableSystemCalls      bool

	// AllowedFilePatterns/BlockedFilePatterns are glob patterns matched
	// against a path's base name (e.g. "*.lua"), independent of the
	// directory allow/block lists carried on ManifestPermissions.
	AllowedFilePatterns []string
	BlockedFilePatterns []string

	CPULimitMs       int64
	MemoryLimitBytes int64
}

// DefaultSandboxConfig denies filesystem, network, and system-call
// access and applies DefaultResourceLimits.
func DefaultSandboxConfig() SandboxConfig {
	limits := security.DefaultResourceLimits()
	return SandboxConfig{
		CPULimitMs:       limits.ExecutionTimeout.Milliseconds(),
		MemoryLimitBytes: limits.MemoryLimit,
	}
}

// SandboxConfigFromManifest derives a SandboxConfig from a manifest's
// declared permissions and capabilities, picking a resource-limit tier
// from security.ResolveTier the same way the manifest's Capabilities
// list does.
func SandboxConfigFromManifest(m *Manifest) SandboxConfig {
	cfg := SandboxConfig{
		EnableFilesystemAccess: m.Permissions.FileSystem,
		EnableNetworkAccess:    m.Permissions.Network,
		EnableSystemCalls:      m.Permissions.SystemCalls,
	}

	caps := make([]security.Capability, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		caps = append(caps, security.Capability(c))
	}

	var limits security.ResourceLimits
	switch security.ResolveTier(caps) {
	case security.TierUnsafe:
		limits = security.RelaxedResourceLimits()
	case security.TierRestricted:
		limits = security.DefaultResourceLimits()
	default:
		limits = security.StrictResourceLimits()
	}

	cfg.CPULimitMs = limits.ExecutionTimeout.Milliseconds()
	cfg.MemoryLimitBytes = limits.MemoryLimit
	return cfg
}

// resourceLimits converts the sandbox's enable flags and numeric caps
// back into a security.ResourceLimits, keeping the rate/goroutine/output
// knobs at their default-tier values since SandboxConfig does not carry
// them directly.
func (c SandboxConfig) resourceLimits() security.ResourceLimits {
	limits := security.DefaultResourceLimits()
	if c.CPULimitMs > 0 {
		limits.ExecutionTimeout = time.Duration(c.CPULimitMs) * time.Millisecond
	}
	if c.MemoryLimitBytes > 0 {
		limits.MemoryLimit = c.MemoryLimitBytes
	}
	return limits
}

// permissionChecker builds a security.PermissionChecker reflecting this
// sandbox's enable flags and file patterns for the named plugin.
func (c SandboxConfig) permissionChecker(pluginName string) *security.PermissionChecker {
	checker := security.NewPermissionChecker(pluginName)

	// The editor API (buf/cursor/mode/keymap/command/config/event/lsp/ui/
	// integration) is the reason a plugin is loaded at all, and every
	// capability under it is registered RiskLow/no-approval-required
	// (security.capabilityRegistry) — unlike filesystem/network/shell,
	// it is not something a manifest opts into. Granting the parent
	// CapabilityEditor implies every editor.* child via ImpliesCapability.
	checker.Grant(security.CapabilityEditor)

	if c.EnableFilesystemAccess {
		checker.Grant(security.CapabilityFileRead)
		checker.Grant(security.CapabilityFileWrite)
	}
	if c.EnableNetworkAccess {
		checker.Grant(security.CapabilityNetwork)
	}
	if c.EnableSystemCalls {
		checker.Grant(security.CapabilityShell)
		checker.Grant(security.CapabilityProcess)
	}

	checker.SetFilePatterns(c.AllowedFilePatterns, c.BlockedFilePatterns)
	return checker
}
