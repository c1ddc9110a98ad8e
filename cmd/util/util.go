package util

import (
	"context"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/simlink/simlink/client"
	"github.com/simlink/simlink/protocol"
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

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds common simulator connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "host"
	cmd.PersistentFlags().String(key, "localhost", WrapString("The host the simulator is running on"))

	key = "port"
	cmd.PersistentFlags().Int(key, protocol.DefaultPort, WrapString("The control port of the simulator"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 60, WrapString("The timeout in seconds for blocking operations"))

	key = "dial-timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("The timeout in seconds for a single connection attempt"))

	key = "dial-retries"
	cmd.PersistentFlags().Int(key, 10, WrapString("How many times to retry connecting before giving up"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the connection"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the connection (in seconds)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("simlink")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() protocol.Config {
	conf := protocol.DefaultConfig(viper.GetString("host"))
	conf.Port = viper.GetInt("port")
	conf.DialTimeout = time.Duration(viper.GetInt("dial-timeout")) * time.Second
	conf.DialRetries = viper.GetInt("dial-retries")
	conf.RequestTimeout = time.Duration(viper.GetInt("timeout")) * time.Second
	conf.TCP.NoDelay = viper.GetBool("tcp-nodelay")
	conf.TCP.KeepAliveSec = viper.GetInt("tcp-keepalive")
	return conf
}

// Connect opens a simulator connection from the viper configuration
func Connect() (*client.Simulator, error) {
	return client.Connect(GetClientConfig())
}

// OpTimeout returns a context bounded by the configured operation timeout
func OpTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(viper.GetInt("timeout"))*time.Second)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
