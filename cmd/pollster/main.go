package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pollster",
		Short:        "Chainhook webhook server for the Pollster contract",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE:  runServe,
	}

	serveCmd.Flags().String("host", "", "listen host")
	serveCmd.Flags().Int("port", 3000, "listen port")
	serveCmd.Flags().String("environment", "development", "environment (development exposes panic messages)")
	serveCmd.Flags().String("network", "mainnet", "stacks network (mainnet, testnet)")
	serveCmd.Flags().String("contract-address", "SP237HRZEM03XCG4TJMYMBT0J0FPY90MS1HB48YTM", "pollster contract address")
	serveCmd.Flags().String("contract-name", "pollster", "pollster contract name")
	serveCmd.Flags().String("webhook-path", "/webhook", "webhook route")
	serveCmd.Flags().String("webhook-token", "", "optional bearer token required on webhook requests")
	serveCmd.Flags().Int64("body-limit", 10<<20, "maximum webhook body size in bytes")
	serveCmd.Flags().Duration("read-timeout", 15*time.Second, "http read timeout")
	serveCmd.Flags().Duration("write-timeout", 30*time.Second, "http write timeout")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	serveCmd.Flags().Bool("stop-on-handler-error", false, "abort a delivery at the first handler error")
	serveCmd.Flags().String("out", "", "optional delivery log JSONL path")
	serveCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for deliveries and cursors")
	serveCmd.Flags().String("state-file", "", "optional local cursor file (ignored when pg-dsn is set)")
	serveCmd.Flags().Int("max-retries", 3, "maximum retry attempts for delivery writes")
	serveCmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Extract pollster events from a saved chainhook payload",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input payload JSON (- for stdin)")
	decodeCmd.Flags().String("out", "-", "output events JSONL (- for stdout)")
	decodeCmd.Flags().String("errors", "", "optional operation errors JSONL")
	decodeCmd.Flags().Bool("append", false, "append to out and errors instead of truncating them")
	decodeCmd.Flags().Bool("dispatch", false, "also dispatch events to the log handlers")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
