package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sshcollectorpro/switchinfo/internal/config"
	"github.com/sshcollectorpro/switchinfo/internal/model"
	"github.com/sshcollectorpro/switchinfo/internal/service"
	"github.com/sshcollectorpro/switchinfo/pkg/logger"
	"github.com/sshcollectorpro/switchinfo/simulate"
)

var version = "dev"

// 全局参数
var (
	configPath string
	envFile    string
)

// collect 参数
var (
	commands      []string
	outDir        string
	failurePolicy string
	reuseSession  bool
	noParse       bool
)

var simulateConfig string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(service.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "switchinfo",
	Short: "Collect show-command output from a network device over SSH",
	Long: `switchinfo connects to one network device over SSH, enters privileged mode,
runs a sequence of show commands, optionally parses the output with TextFSM
templates, stores each result as an artifact and prints it.

Device credentials come from configs/config.yaml, a .env file or the
DEVICE_TYPE, HOST, USERNAME, PASSWORD and SECRET environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCollect,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the configured commands against the device (default)",
	Example: `  switchinfo collect
  switchinfo collect --command "sh ver" --command "sh ip int br"
  switchinfo collect --failure-policy continue --out-dir /tmp/files`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that all required device settings are present",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Start a simulated Cisco-like SSH device for local testing",
	Args:  cobra.NoArgs,
	RunE:  runSimulate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config; empty to skip")

	for _, c := range []*cobra.Command{rootCmd, collectCmd} {
		c.Flags().StringArrayVar(&commands, "command", nil, "Command to run; repeat to run several (overrides the configured list)")
		c.Flags().StringVar(&outDir, "out-dir", "", "Directory for local artifacts (overrides storage.local.base_dir)")
		c.Flags().StringVar(&failurePolicy, "failure-policy", "", "fail_fast or continue (overrides collector.failure_policy)")
		c.Flags().BoolVar(&reuseSession, "reuse-session", false, "Run all commands in one SSH session")
		c.Flags().BoolVar(&noParse, "no-parse", false, "Store raw output without template parsing")
	}
	simulateCmd.Flags().StringVar(&simulateConfig, "sim-config", "simulate/simulate.yaml", "Simulated device definition")

	rootCmd.AddCommand(collectCmd, validateCmd, simulateCmd)
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadWithEnvFile(configPath, envFile)
	if err != nil {
		return nil, &service.ConfigurationError{Err: err}
	}

	if len(commands) > 0 {
		specs := make([]model.CommandSpec, 0, len(commands))
		for _, c := range commands {
			if c = strings.TrimSpace(c); c != "" {
				specs = append(specs, model.CommandSpec{Command: c, Parse: true})
			}
		}
		cfg.Collector.Commands = specs
	}
	if noParse {
		for i := range cfg.Collector.Commands {
			cfg.Collector.Commands[i].Parse = false
		}
	}
	if outDir != "" {
		cfg.Storage.Backend = "local"
		cfg.Storage.Local.BaseDir = outDir
		cfg.Storage.Local.MkdirIfMissing = true
	}
	if cmd.Flags().Changed("failure-policy") {
		p, err := config.ParseFailurePolicy(failurePolicy)
		if err != nil {
			return nil, &service.ConfigurationError{Err: err}
		}
		cfg.Collector.FailurePolicy = p
	}
	if reuseSession {
		cfg.Collector.ReuseSession = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, func() error, error) {
	log, closeLog, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, nil, &service.ConfigurationError{Err: fmt.Errorf("failed to initialize logger: %w", err)}
	}
	return log, closeLog, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()

	return service.NewCollectService(cfg, log, service.WithOutput(cmd.OutOrStdout())).Run(ctx)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if !service.Validate(log, cfg.Device) {
		return &service.ConfigurationError{Missing: service.MissingFields(cfg.Device)}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK: %s@%s:%d (%s), %d commands\n",
		cfg.Device.Username, cfg.Device.Host, cfg.Device.EffectivePort(), cfg.Device.DeviceType, len(cfg.Collector.Commands))
	return nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	simCfg, err := simulate.LoadConfig(simulateConfig)
	if err != nil {
		return &service.ConfigurationError{Err: err}
	}
	log, _, err := logger.New(logger.Config{Level: "info", Format: "text", Output: "console"})
	if err != nil {
		return err
	}

	srv, err := simulate.New(simCfg, log)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return &service.ConnectionError{Host: simCfg.Listen, Err: err}
	}
	defer srv.Stop()
	log.WithFields(logrus.Fields{
		"addr":     srv.Addr(),
		"hostname": simCfg.Hostname,
		"commands": len(simCfg.Commands),
	}).Info("Simulated device listening")

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()
	log.Info("Simulated device stopping")
	return nil
}
