// Package app wires collaborators together and executes CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/tgreer/murmur/internal/artifact"
	"github.com/tgreer/murmur/internal/audio"
	"github.com/tgreer/murmur/internal/capture"
	"github.com/tgreer/murmur/internal/cli"
	"github.com/tgreer/murmur/internal/config"
	"github.com/tgreer/murmur/internal/doctor"
	"github.com/tgreer/murmur/internal/fsm"
	"github.com/tgreer/murmur/internal/ipc"
	"github.com/tgreer/murmur/internal/logging"
	"github.com/tgreer/murmur/internal/mute"
	"github.com/tgreer/murmur/internal/notify"
	"github.com/tgreer/murmur/internal/output"
	"github.com/tgreer/murmur/internal/session"
	"github.com/tgreer/murmur/internal/transcribe"
	"github.com/tgreer/murmur/internal/transcript"
	"github.com/tgreer/murmur/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("murmur"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("murmur"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, "cancel")
	case cli.CommandRetry:
		return r.forwardOrFail(ctx, "retry")
	case cli.CommandToggle:
		return r.commandToggle(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active murmur session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandToggle either forwards a stop to the running owner or becomes the
// owner itself: it binds the control socket, runs one full session, and exits
// when the session settles.
func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, "toggle")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			// Another invocation won the socket race; treat it as the owner.
			resp, _, forwardErr := tryForward(ctx, socketPath, "toggle")
			if forwardErr != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", forwardErr)
				return 1
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, err := buildController(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	outcome, code := r.runSession(ctx, controller)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logger.Info("session settled",
		"session_id", outcome.ID,
		"state", string(outcome.Status),
		"transcript_length", len(outcome.Transcript),
	)
	return code
}

// runSession drives one owner session to a settled outcome and renders it.
func (r Runner) runSession(ctx context.Context, controller *session.Controller) (session.Snapshot, int) {
	if err := controller.RequestStart(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return controller.Snapshot(), 1
	}

	outcome, err := controller.WaitOutcome(ctx)
	if err != nil {
		// Interrupted: release the capture and report whatever state remains.
		_ = controller.Close(context.Background())
		outcome = controller.Snapshot()
	}

	switch outcome.Status {
	case fsm.StatusSuccess:
		if text := strings.TrimSpace(outcome.Transcript); text != "" {
			fmt.Fprintln(r.Stdout, text)
		}
		return outcome, 0
	case fsm.StatusIdle:
		fmt.Fprintln(r.Stdout, "cancelled")
		return outcome, 0
	default:
		if outcome.Err != "" {
			fmt.Fprintf(r.Stderr, "error: %s\n", outcome.Err)
		}
		return outcome, 1
	}
}

// buildController assembles the session controller from runtime config.
func buildController(cfg config.Config, logger *slog.Logger) (*session.Controller, error) {
	recordingsDir, err := cfg.ResolveRecordingsDir()
	if err != nil {
		return nil, err
	}

	var muter session.Muter
	if cfg.Mute.Enable {
		muter = mute.NewCoordinator(logger, cfg.Mute.Sink)
	}

	transcriber := normalizingTranscriber{
		inner: transcribe.NewClient(transcribe.Options{
			Endpoint: cfg.Whisper.Endpoint,
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
			Timeout:  cfg.Whisper.Timeout(),
		}, logger),
		normalizer: transcript.New(transcript.Options{
			CapitalizeSentences: cfg.Transcript.CapitalizeSentences,
			TrailingSpace:       cfg.Transcript.TrailingSpace,
			Abbreviations:       cfg.Transcript.Abbreviations,
		}),
	}

	controller := session.NewController(
		logger,
		captureRecorder{manager: capture.NewManager(logger, cfg.Capture.Binary)},
		muter,
		artifact.NewStore(logger, recordingsDir),
		transcriber,
		notify.NewDesktop(logger, cfg.Notify.AppName, cfg.Notify.Enable),
		output.NewCommitter(logger, cfg.Clipboard.Enable),
	)
	controller.SetStopGrace(cfg.Capture.Grace())
	return controller, nil
}

// normalizingTranscriber applies transcript formatting on top of the raw
// recognized text.
type normalizingTranscriber struct {
	inner      session.Transcriber
	normalizer *transcript.Normalizer
}

func (n normalizingTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	text, err := n.inner.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	return n.normalizer.Assemble([]string{text}), nil
}

// captureRecorder adapts the concrete capture manager to the session port.
type captureRecorder struct {
	manager *capture.Manager
}

func (c captureRecorder) Spawn(ctx context.Context, outputPath string) (session.Process, error) {
	proc, err := c.manager.Spawn(ctx, outputPath)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.NewClient(socketPath, forwardTimeout).Do(ctx, command)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
