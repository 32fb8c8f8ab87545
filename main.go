// Package main provides the entry point for the lector CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/lectorapp/lector/document"
	"github.com/lectorapp/lector/speech"
	"github.com/lectorapp/lector/speech/backends"
	"github.com/lectorapp/lector/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	style      string
	width      uint
	mouse      bool
	debug      bool
	speechOn   bool
	voiceName  string
	language   string
	rate       float64

	rootCmd = &cobra.Command{
		Use:   "lector [SOURCE]",
		Short: "Read markdown on the CLI, out loud",
		Long: paragraph(
			fmt.Sprintf("\nRender markdown on the CLI and %s.", keyword("read it out loud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// expandPath expands a leading tilde to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	// validate the glamour style
	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// We want to use a special no-TTY style when stdout is not a terminal
	// or color is disabled, and no specific style was passed by arg.
	if (!isTerminal || termenv.EnvNoColor()) && !cmd.Flags().Changed("style") {
		style = "notty"
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	// if stdin is a pipe then use stdin for input. note that you can also
	// explicitly use a - to read from stdin.
	if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if yes {
		doc, err := document.FromReader(os.Stdin)
		if err != nil {
			return err
		}
		return render(doc, os.Stdout)
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	doc, err := document.Load(arg)
	if err != nil {
		return err
	}

	// Without a terminal there is nothing to page or speak; render plain.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return render(doc, os.Stdout)
	}
	return runTUI(doc)
}

// render writes the document through glamour, for non-interactive use.
func render(doc *document.Document, w io.Writer) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamourStyle(style),
		glamour.WithWordWrap(int(width)), //nolint:gosec
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(doc.Body)
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	if _, err := fmt.Fprint(w, out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}

func glamourStyle(style string) glamour.TermRendererOption {
	if style == "auto" || style == "" {
		return glamour.WithAutoStyle()
	}
	if styles.DefaultStyles[style] != nil {
		return glamour.WithStandardStyle(style)
	}
	return glamour.WithStylePath(expandPath(style))
}

func runTUI(doc *document.Document) error {
	// Read environment to get presentation overrides.
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the flag/config value if the env one is bad
	if err := validateStyle(cfg.GlamourStyle); err != nil {
		cfg.GlamourStyle = style
	}

	cfg.Path = doc.Path
	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse

	speechCfg, err := speech.LoadConfigFromViper()
	if err != nil {
		return err
	}
	cfg.Speech = speechCfg

	var setup *backends.Setup
	if cfg.Speech.Enabled {
		setup = backends.Probe(cfg.Speech, log.Default())
		if !setup.Speakable() {
			log.Warn("no speech synthesizer found, reading silently")
			setup.Close()
			setup = nil
		} else {
			setup.Catalog.Load()
			defer setup.Close()
		}
	}

	p := ui.NewProgram(cfg, doc, setup)

	// Speech settings from an edited config file apply to the next
	// utterance without restarting the reader.
	viper.OnConfigChange(func(fsnotify.Event) {
		sc, err := speech.LoadConfigFromViper()
		if err != nil {
			log.Warn("ignoring config change", "error", err)
			return
		}
		p.Send(ui.ConfigReloadedMsg(sc))
	})
	viper.WatchConfig()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to disable)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")
	rootCmd.Flags().BoolVar(&speechOn, "speech", true, "enable speech output")
	rootCmd.Flags().StringVar(&voiceName, "voice", "", "voice to speak with")
	rootCmd.Flags().StringVar(&language, "language", "", "default language when detection is inconclusive")
	rootCmd.Flags().Float64Var(&rate, "rate", 1.0, "speaking rate (0.5 to 2.0)")

	// Config bindings
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("speech.enabled", rootCmd.Flags().Lookup("speech"))
	_ = viper.BindPFlag("speech.voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("speech.default_language", rootCmd.Flags().Lookup("language"))
	_ = viper.BindPFlag("speech.rate", rootCmd.Flags().Lookup("rate"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "lector")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "lector")}, dirs...)
	}

	if c := os.Getenv("LECTOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("lector")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("lector")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "lector.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
