package ui

import "github.com/lectorapp/lector/speech"

// Config contains the TUI configuration. Presentation fields can be set
// through environment variables; the rest are filled in from flags and the
// config file before the program starts.
type Config struct {
	// Path of the loaded document, empty for stdin and URLs.
	Path string

	GlamourStyle    string `env:"LECTOR_STYLE" envDefault:"auto"`
	GlamourEnabled  bool   `env:"LECTOR_ENABLE_GLAMOUR" envDefault:"true"`
	GlamourMaxWidth uint   `env:"LECTOR_MAX_WIDTH" envDefault:"120"`
	EnableMouse     bool   `env:"LECTOR_MOUSE"`
	SkipCodeBlocks  bool   `env:"LECTOR_SKIP_CODE" envDefault:"true"`

	// Speech is the speech subsystem configuration, loaded separately from
	// the config file and flags.
	Speech speech.Config
}
