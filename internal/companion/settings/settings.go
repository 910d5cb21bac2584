// Package settings loads the optional companion.toml service settings. These are
// operator knobs for the companion process itself, separate from the user record in
// config.json.
package settings

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/teachcharlie/tcagent/internal/common/apperrors"
	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
)

// FormatVersion is the settings file format written by this release.
const FormatVersion = "0.1.0"

// supportedFormats is the range of format_version values this release accepts.
const supportedFormats = ">= 0.1.0, < 0.2.0"

const (
	DefaultListenAddr     = "127.0.0.1:8628"
	DefaultKillTimeout    = 10 * time.Second
	DefaultPublishTimeout = 100 * time.Millisecond
	DefaultLogLevel       = "info"
)

type ServerSettings struct {
	ListenAddr     string   `toml:"listen_addr" validate:"required,hostname_port"`
	HandleCORS     bool     `toml:"handle_cors"`
	AllowedOrigins []string `toml:"allowed_origins" validate:"dive,required"`
}

// ConnectorSettings locates the connector binary. An empty Command resolves
// tc-connector beside the tcagent executable, then on PATH.
type ConnectorSettings struct {
	Command    string `toml:"command"`
	MCPCommand string `toml:"mcp_command"` // command written into mcp-config.json
}

type SidecarSettings struct {
	KillTimeout time.Duration `toml:"kill_timeout" validate:"gt=0"`
}

type EventSettings struct {
	PublishTimeout time.Duration `toml:"publish_timeout" validate:"gt=0"`
}

type LogSettings struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
}

// Settings holds everything read from companion.toml.
type Settings struct {
	FormatVersion string            `toml:"format_version" validate:"required,formatVersion"`
	Server        ServerSettings    `toml:"server"`
	Connector     ConnectorSettings `toml:"connector"`
	Sidecar       SidecarSettings   `toml:"sidecar"`
	Events        EventSettings     `toml:"events"`
	Log           LogSettings       `toml:"log"`
}

// Default returns the settings used when no companion.toml exists.
func Default() *Settings {
	return &Settings{
		FormatVersion: FormatVersion,
		Server: ServerSettings{
			ListenAddr: DefaultListenAddr,
		},
		Sidecar: SidecarSettings{KillTimeout: DefaultKillTimeout},
		Events:  EventSettings{PublishTimeout: DefaultPublishTimeout},
		Log:     LogSettings{Level: DefaultLogLevel},
	}
}

// Load reads path over the defaults. A missing file returns Default().
func Load(path string) (*Settings, apperrors.Error) {
	s := Default()
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, agentcommon.ErrIO.MsgErr("unable to read settings file", err)
	}
	return Parse(string(content), s)
}

// Parse decodes content over base and validates the result.
func Parse(content string, base *Settings) (*Settings, apperrors.Error) {
	if base == nil {
		base = Default()
	}
	if _, err := toml.Decode(content, base); err != nil {
		return nil, agentcommon.ErrInvalidSettings.MsgErr("unable to parse settings file", err)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	return base, nil
}

// Validate checks field constraints and the format version.
func (s *Settings) Validate() apperrors.Error {
	if err := v().Struct(s); err != nil {
		return agentcommon.ErrInvalidSettings.Err(err)
	}
	return nil
}

var (
	validate         *validator.Validate
	formatConstraint *semver.Constraints
)

func v() *validator.Validate {
	return validate
}

func formatVersionValidator(fl validator.FieldLevel) bool {
	ver, err := semver.NewVersion(fl.Field().String())
	if err != nil {
		return false
	}
	return formatConstraint.Check(ver)
}

func init() {
	var err error
	formatConstraint, err = semver.NewConstraint(supportedFormats)
	if err != nil {
		panic(err)
	}
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("formatVersion", formatVersionValidator)
}
