package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# style name or JSON path (default "auto")
style: "auto"
# word-wrap at width
width: 80
# mouse support
mouse: false

# Speech output configuration
speech:
  # Read blocks out loud on request
  enabled: true
  # Fallback language when detection is inconclusive
  default_language: "en"
  # Preferred voice by name; empty picks one for the detected language
  # voice: "Serena"

  # Delivery settings
  rate: 1.0
  pitch: 1.0
  volume: 1.0

  # Word highlight settings
  highlight_enabled: true
  words_per_minute: 180
  min_tick: "80ms"
  trail_window: 3

  # espeak-ng synthesizer
  espeak:
    # binary: "espeak-ng"
    timeout: "5m"

  # piper synthesizer, used when espeak is missing or fails to start
  piper:
    binary: "piper"
    model: "en_US-lessac-medium"
    # model_path: "/path/to/model.onnx"
    # data_dir: "/usr/share/piper"
    sample_rate: 22050
    timeout: "30s"
    # cache_dir: "~/.cache/lector"
    cache_size: 64
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the lector config file",
	Long:    paragraph(fmt.Sprintf("\n%s the lector config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("lector config\nlector config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Lector", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
