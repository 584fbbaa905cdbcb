// Package startup handles process lifecycle narration: build information,
// the startup banner and system information, directory preflight checks,
// and structured startup/shutdown logging.
package startup
