package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/powerflow-sync/powerflow/internal/config"
	"github.com/powerflow-sync/powerflow/internal/daemon"
	"github.com/powerflow-sync/powerflow/internal/dashboard"
	"github.com/powerflow-sync/powerflow/internal/ledger"
	"github.com/powerflow-sync/powerflow/internal/logging"
	"github.com/powerflow-sync/powerflow/internal/sync"
	"github.com/powerflow-sync/powerflow/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "daemon",
	Short:   "Run sync passes in the background",
	Long: `Manage the background sync daemon.

The daemon runs a pass every interval (15m by default). After a failed pass
it retries sooner, up to twice, before falling back to the interval. Its
state is written to a status file that 'powerflow daemon status' reads.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Long: `Start the sync daemon.

By default the daemon detaches and logs to a rotating file under the
config directory. Use --foreground to keep it attached to the terminal.

Examples:
  powerflow daemon start
  powerflow daemon start --interval 30m
  powerflow daemon start --foreground --dashboard-port 8765`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := daemonOptions{}
		opts.Interval, _ = cmd.Flags().GetString("interval")
		opts.Foreground, _ = cmd.Flags().GetBool("foreground")
		opts.DashboardPort, _ = cmd.Flags().GetInt("dashboard-port")
		opts.Child, _ = cmd.Flags().GetBool("child")
		opts.DashboardSet = cmd.Flags().Changed("dashboard-port")

		if !opts.Foreground && !opts.Child {
			if err := startDetached(opts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := runDaemon(ctx, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
	},
}

type daemonOptions struct {
	Interval      string
	Foreground    bool
	Child         bool
	DashboardPort int
	DashboardSet  bool
}

// resolve fills interval and dashboard port from cfg where the flags left
// them unset.
func (o daemonOptions) resolve(cfg *config.Config) (time.Duration, int, error) {
	raw := o.Interval
	if raw == "" {
		raw = cfg.Daemon.Interval
	}
	interval, err := daemon.ParseInterval(raw)
	if err != nil {
		return 0, 0, err
	}
	port := cfg.Daemon.DashboardPort
	if o.DashboardSet {
		port = o.DashboardPort
	}
	return interval, port, nil
}

// startDetached re-executes the binary as a background child and waits
// until it has taken the PID file.
func startDetached(opts daemonOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.IsConfigured() {
		return sync.ErrNotConfigured
	}
	interval, port, err := opts.resolve(cfg)
	if err != nil {
		return err
	}
	if owner, ok := daemon.Running(config.PIDPath()); ok {
		return fmt.Errorf("%w: %s holds the lock (PID %d)", daemon.ErrAlreadyRunning, owner.Role.Describe(), owner.PID)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	args := []string{"daemon", "start", "--child", "--interval", interval.String()}
	if opts.DashboardSet || port > 0 {
		args = append(args, "--dashboard-port", strconv.Itoa(port))
	}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	child := exec.Command(exe, args...)
	child.SysProcAttr = detachAttrs()
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	childPID := child.Process.Pid
	_ = child.Process.Release()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if owner, ok := daemon.Running(config.PIDPath()); ok && owner.Role == daemon.RoleDaemon {
			fmt.Printf("%s Daemon started (PID %d, every %s)\n", ui.RenderPass("✓"), owner.PID, interval)
			fmt.Println(ui.Field("Log", config.LogPath()))
			if port > 0 {
				fmt.Println(ui.Field("Dashboard", fmt.Sprintf("http://127.0.0.1:%d", port)))
			}
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon (PID %d) did not start; see %s", childPID, config.LogPath())
}

// runDaemon runs the loop in this process until ctx is cancelled.
func runDaemon(ctx context.Context, opts daemonOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.IsConfigured() {
		return sync.ErrNotConfigured
	}
	interval, port, err := opts.resolve(cfg)
	if err != nil {
		return err
	}

	guard, err := daemon.AcquirePID(config.PIDPath(), daemon.RoleDaemon)
	if err != nil {
		return err
	}
	defer guard.Release()

	fileConfig := logging.DefaultFileConfig(config.LogPath())
	if !opts.Child {
		fileConfig.Tee = os.Stderr
	}
	out, err := logging.Open(fileConfig)
	if err != nil {
		return err
	}
	defer out.Close()
	logger := logging.New(out, "daemon")

	history, err := ledger.Open(config.LedgerPath())
	if err != nil {
		logger.Printf("Warning: sync history unavailable: %v", err)
	} else {
		defer history.Close()
	}

	dc := daemon.DefaultConfig()
	dc.Interval = interval
	dc.StatusPath = config.StatusPath()
	dc.Notifier = daemon.NewDesktopNotifier(logging.New(out, "notify"))
	dc.Logger = logger

	if port > 0 {
		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: logging.New(out, "dashboard"),
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		defer server.Stop()
		dc.Observer = dashboard.NewHandler(server, logging.New(out, "dashboard"))
		logger.Printf("Dashboard at http://%s", server.Addr())
	}

	d, err := daemon.NewWithConfig(newDaemonPass(out, history), dc)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

// newDaemonPass returns a pass that reloads the configuration every time,
// so edits made while the daemon runs take effect on the next pass.
func newDaemonPass(out io.Writer, history *ledger.Ledger) daemon.PassFunc {
	return func(ctx context.Context) *sync.Result {
		cfg, err := loadConfig()
		if err != nil {
			return sync.FailedResult(sync.StageList, err)
		}
		svc, err := newServices(cfg, out)
		if err != nil {
			return sync.FailedResult(sync.StageList, err)
		}
		engine, err := svc.engine(recorderFor(history), logging.New(out, "sync"))
		if err != nil {
			return sync.FailedResult(sync.StageList, err)
		}

		result := engine.RunPass(ctx, sync.Options{})
		if history != nil {
			if err := history.RecordPass(ctx, result); err != nil {
				logging.New(out, "ledger").Printf("Warning: %v", err)
			}
		}
		return result
	}
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Run: func(cmd *cobra.Command, args []string) {
		if err := stopDaemon(os.Stdout, config.PIDPath(), daemon.DefaultStopOptions()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// stopDaemon stops the daemon holding path. An interactive sync holding the
// lock is left alone so its pass can finish.
func stopDaemon(out io.Writer, path string, opts daemon.StopOptions) error {
	if owner, ok := daemon.Running(path); ok && owner.Role != daemon.RoleDaemon {
		fmt.Fprintf(out, "Daemon is not running; %s holds the lock (PID %d) and exits when its pass completes\n",
			owner.Role.Describe(), owner.PID)
		return nil
	}

	res, err := daemon.Stop(path, opts)
	if err != nil {
		return err
	}
	switch {
	case !res.WasRunning:
		fmt.Fprintln(out, "Daemon is not running")
	case res.Killed:
		fmt.Fprintf(out, "%s Daemon (PID %d) did not exit in time and was killed\n", ui.RenderWarn("⚠"), res.PID)
	default:
		fmt.Fprintf(out, "%s Daemon stopped (PID %d)\n", ui.RenderPass("✓"), res.PID)
	}
	return nil
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon state",
	Long: `Show the daemon state from its status file.

Use --follow to keep printing the state every time it changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		follow, _ := cmd.Flags().GetBool("follow")
		asYAML, _ := cmd.Flags().GetBool("yaml")

		show := func(status daemon.Status) {
			if err := printDaemonStatus(os.Stdout, status, asYAML); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}

		if !follow {
			status, err := daemon.ReadStatus(config.StatusPath())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			show(status)
			return
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := daemon.WatchStatus(ctx, config.StatusPath(), show); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func printDaemonStatus(out io.Writer, status daemon.Status, asYAML bool) error {
	owner, held := daemon.Running(config.PIDPath())
	running := held && owner.Role == daemon.RoleDaemon

	if asYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		doc := struct {
			Running bool          `yaml:"running"`
			Lock    string        `yaml:"lock,omitempty"`
			Status  daemon.Status `yaml:"status"`
		}{Running: running, Status: status}
		if held && !running {
			doc.Lock = string(owner.Role)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprint(out, ui.Header("🤖", "Daemon"))
	if running {
		fmt.Fprintln(out, ui.Field("Process", fmt.Sprintf("%s running (PID %d)", ui.RenderPass("●"), owner.PID)))
	} else {
		fmt.Fprintln(out, ui.Field("Process", ui.RenderMuted("not running")))
		if held {
			fmt.Fprintln(out, ui.Field("Lock", lockLine(owner)))
		}
	}
	if status.State == "" {
		fmt.Fprintln(out, ui.Field("State", ui.RenderMuted("no status recorded")))
		fmt.Fprintln(out)
		return nil
	}

	fmt.Fprintln(out, ui.Field("State", string(status.State)))
	if status.IntervalSeconds > 0 {
		fmt.Fprintln(out, ui.Field("Interval", status.Interval().String()))
	}
	if status.LastSyncAt != nil {
		fmt.Fprintln(out, ui.Field("Last sync", status.LastSyncAt.Local().Format("Jan 02 15:04:05")))
	}
	if status.LastResult != nil {
		r := status.LastResult
		fmt.Fprintln(out, ui.Field("Last result", fmt.Sprintf("created %d, skipped %d, pending %d, failed %d",
			r.Created, r.SkippedDuplicate, r.Pending, r.Failed)))
	}
	if status.NextSyncAt != nil && running {
		fmt.Fprintln(out, ui.Field("Next sync", status.NextSyncAt.Local().Format("Jan 02 15:04:05")))
	}
	if status.ConsecutiveFailures > 0 {
		fmt.Fprintln(out, ui.Field("Failures", ui.RenderWarn(strconv.Itoa(status.ConsecutiveFailures))))
	}
	if status.LastError != "" {
		fmt.Fprintln(out, ui.Field("Last error", ui.RenderFail(status.LastError)))
	}
	if status.StoppedAt != nil {
		fmt.Fprintln(out, ui.Field("Stopped", status.StoppedAt.Local().Format("Jan 02 15:04:05")))
	}
	fmt.Fprintln(out)
	return nil
}

func init() {
	daemonStartCmd.Flags().String("interval", "", "Time between passes, e.g. 15m, 1h or 30 (minutes)")
	daemonStartCmd.Flags().Bool("foreground", false, "Run in this terminal instead of detaching")
	daemonStartCmd.Flags().Int("dashboard-port", 0, "Serve a live dashboard on this port (0 disables)")
	daemonStartCmd.Flags().Bool("child", false, "Run as the detached child process")
	_ = daemonStartCmd.Flags().MarkHidden("child")

	daemonStatusCmd.Flags().BoolP("follow", "f", false, "Keep printing the state as it changes")
	daemonStatusCmd.Flags().Bool("yaml", false, "Print as YAML")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}
