package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pollsterHook/internal/chainhook"
	"pollsterHook/internal/config"
	"pollsterHook/internal/model"
	"pollsterHook/internal/pollster"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = decodePayload(ctx, cfg, logger)
	return err
}

type decodeSummary struct {
	Blocks   int
	Events   int
	Failed   int
	Dispatch pollster.DispatchResult
}

func decodePayload(ctx context.Context, cfg config.DecodeConfig, logger *zap.Logger) (decodeSummary, error) {
	var summary decodeSummary
	if cfg.In == "" {
		return summary, fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return summary, fmt.Errorf("output path is required")
	}

	body, err := readInput(cfg.In)
	if err != nil {
		return summary, err
	}

	payload, err := chainhook.ParsePayload(body)
	if err != nil {
		return summary, err
	}

	outWriter, err := newJSONLWriter(cfg.Out, cfg.Append)
	if err != nil {
		return summary, err
	}
	defer outWriter.Close()

	var errWriter *jsonlWriter
	if cfg.Errors != "" {
		errWriter, err = newJSONLWriter(cfg.Errors, cfg.Append)
		if err != nil {
			return summary, err
		}
		defer errWriter.Close()
	}

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("append", cfg.Append),
		zap.String("chainhook_uuid", payload.Chainhook.UUID),
		zap.Bool("dispatch", cfg.Dispatch),
	)

	extraction := pollster.NewExtractor(logger).Extract(payload)
	for _, ev := range extraction.Events {
		if err := outWriter.Write(ev); err != nil {
			return summary, err
		}
	}
	for _, opErr := range extraction.Failed {
		writeOperationError(errWriter, opErr)
	}

	summary.Blocks = len(payload.Event.Apply)
	summary.Events = len(extraction.Events)
	summary.Failed = len(extraction.Failed)

	if cfg.Dispatch {
		dispatcher := pollster.NewDispatcher(pollster.DispatchConfig{}, pollster.NewLogHandlers(logger), logger)
		summary.Dispatch, err = dispatcher.Dispatch(ctx, extraction.Events)
		if err != nil {
			return summary, err
		}
	}

	if err := outWriter.Close(); err != nil {
		return summary, err
	}
	if err := errWriter.Close(); err != nil {
		return summary, err
	}

	logger.Info("decode complete",
		zap.Int("blocks", summary.Blocks),
		zap.Int("events", summary.Events),
		zap.Int("failed", summary.Failed),
		zap.Int("dispatched", summary.Dispatch.Dispatched),
		zap.Int("unknown", summary.Dispatch.Unknown),
		zap.Int("rejected", summary.Dispatch.Rejected),
	)

	return summary, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return body, nil
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// newJSONLWriter opens path for JSON lines. "-" writes to stdout.
func newJSONLWriter(path string, appendMode bool) (*jsonlWriter, error) {
	if path == "-" {
		return &jsonlWriter{writer: bufio.NewWriter(os.Stdout)}, nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Calling it again is a no-op.
func (w *jsonlWriter) Close() error {
	if w == nil || w.writer == nil {
		return nil
	}
	file := w.file
	err := w.writer.Flush()
	w.writer, w.file = nil, nil
	if file == nil {
		return err
	}
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeOperationError(writer *jsonlWriter, opErr model.OperationError) {
	if writer == nil {
		return
	}
	_ = writer.Write(opErr)
}
