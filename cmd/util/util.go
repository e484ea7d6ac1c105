package util

import (
	"strings"

	"github.com/ValentinKolb/hzrd/lib/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read HZRD_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("hzrd")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupStressFlags adds the flags of a stress run to a command
func SetupStressFlags(cmd *cobra.Command) {
	def := common.DefaultStressConfig()

	key := "domain"
	cmd.Flags().String(key, string(def.Domain), WrapString("Domain the cell is bound to (global, shared, local). The local domain runs readers and writers on one goroutine"))

	key = "readers"
	cmd.Flags().Int(key, def.Readers, WrapString("Number of reader goroutines"))

	key = "writers"
	cmd.Flags().Int(key, def.Writers, WrapString("Number of writer goroutines"))

	key = "duration"
	cmd.Flags().Duration(key, def.Duration, WrapString("How long the run lasts (e.g. 500ms, 10s)"))

	key = "hold-reads"
	cmd.Flags().Int(key, def.HoldReads, WrapString("How many extra times a reader checks a value before releasing it"))

	key = "async-reclaim"
	cmd.Flags().Bool(key, def.AsyncReclaim, WrapString("Run reclaimers on a background goroutine (ignored for the global domain)"))

	key = "backlog-warning"
	cmd.Flags().Int(key, def.BacklogWarning, WrapString("Log a warning when more retired values than this are still protected (0 disables the warning)"))
}

// SetupLogFlags adds the log level flag to a command
func SetupLogFlags(cmd *cobra.Command) {
	key := "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// GetStressConfig reads the stress configuration from viper
func GetStressConfig() (common.StressConfig, error) {
	kind, err := common.ParseDomainKind(viper.GetString("domain"))
	if err != nil {
		return common.StressConfig{}, err
	}

	conf := common.StressConfig{
		Domain:         kind,
		Readers:        viper.GetInt("readers"),
		Writers:        viper.GetInt("writers"),
		Duration:       viper.GetDuration("duration"),
		HoldReads:      viper.GetInt("hold-reads"),
		AsyncReclaim:   viper.GetBool("async-reclaim"),
		BacklogWarning: viper.GetInt("backlog-warning"),
		LogLevel:       viper.GetString("log-level"),
	}

	return conf, conf.Validate()
}

// InitLogging configures the log level of all hzrd loggers from viper
func InitLogging() error {
	return common.InitLoggers(viper.GetString("log-level"))
}
