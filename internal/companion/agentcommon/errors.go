// Package agentcommon holds the error taxonomy, event names and small shared helpers
// used by every companion package.
package agentcommon

import (
	"net/http"

	"github.com/teachcharlie/tcagent/internal/common/apperrors"
)

// Error definitions for the companion core.
// All errors are derived from ErrCompanion.
var (
	// ErrCompanion is the base error for the companion core.
	ErrCompanion = apperrors.New("companion error").SetStatusCode(http.StatusInternalServerError)

	// ErrIO is returned for filesystem read, write and directory-creation failures.
	ErrIO = ErrCompanion.New("io error")

	// ErrFormat is returned when persisted data cannot be parsed.
	ErrFormat = ErrCompanion.New("format error").SetStatusCode(http.StatusUnprocessableEntity)

	// ErrSpawn is returned when the connector process cannot be constructed or launched.
	ErrSpawn = ErrCompanion.New("spawn error")

	// ErrKill is returned when the connector process cannot be terminated.
	ErrKill = ErrCompanion.New("kill error")

	// ErrLock is returned once the sidecar lock has been poisoned by a panic.
	ErrLock = ErrCompanion.New("lock error")

	// ErrInvalidArgs is returned when command arguments cannot be decoded.
	ErrInvalidArgs = ErrCompanion.New("invalid args").SetStatusCode(http.StatusBadRequest)

	// ErrUnknownCommand is returned for command names that are not registered.
	ErrUnknownCommand = ErrCompanion.New("unknown command").SetStatusCode(http.StatusNotFound)

	// ErrInvalidSettings is returned when companion.toml is malformed or fails validation.
	ErrInvalidSettings = ErrCompanion.New("invalid settings").SetStatusCode(http.StatusBadRequest)
)
