// Command yars runs a 32-bit RISC-V ELF executable under a user-mode
// instruction-set simulator.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leonardohn/yars/internal/config"
	"github.com/leonardohn/yars/internal/trace"
	"github.com/leonardohn/yars/pkg/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logPath     string
		memoryMiB   uint
		pcOverride  string
		interactive bool
		configPath  string
	)

	cmd := &cobra.Command{
		Use:   "yars <program>",
		Short: "A user-mode RV32I/RV32M instruction-set simulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("memory") {
				memoryMiB = cfg.Simulator.MemoryMiB
			}
			if logPath == "" {
				logPath = cfg.Simulator.LogFile
			}

			pc, err := parsePC(pcOverride)
			if err != nil {
				return err
			}

			return run(args[0], memoryMiB, logPath, pc, interactive)
		},
	}

	cmd.Flags().StringVarP(&logPath, "log", "l", "", "write per-step execution trace to this file (stdout if \"-\")")
	cmd.Flags().UintVarP(&memoryMiB, "memory", "m", 32, "guest memory size in MiB")
	cmd.Flags().StringVar(&pcOverride, "pc", "", "override the program counter instead of using the ELF entry point")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pause for Enter between each instruction")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a yars config.toml (defaults to the platform config dir)")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func parsePC(s string) (*uint32, error) {
	if s == "" {
		return nil, nil
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "0x%x", &v); err != nil {
		if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
			return nil, fmt.Errorf("invalid --pc value %q", s)
		}
	}
	return &v, nil
}

func run(programPath string, memoryMiB uint, logPath string, pc *uint32, interactive bool) error {
	program, err := os.ReadFile(programPath) // #nosec G304 -- user-supplied program path
	if err != nil {
		return fmt.Errorf("reading %s: %w", programPath, err)
	}

	logger, err := trace.NewLogger(os.Stderr, "info")
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := sim.New(uint32(memoryMiB*1024*1024), program, pc)
	if err != nil {
		return logger.Fatal("failed to load program", err)
	}

	logOut, closeLog, err := openLogSink(logPath)
	if err != nil {
		return logger.Fatal("failed to open log sink", err)
	}
	defer closeLog()

	reader := bufio.NewReader(os.Stdin)
	onStep := func(res sim.StepResult) {
		if logOut != nil {
			trace.Step(logOut, s.Processor(), res)
		}
		if interactive {
			fmt.Fprint(os.Stderr, "yars: paused, press Enter to continue...")
			_, _ = reader.ReadByte()
		}
	}

	_, err = s.Run(onStep)
	if err != nil {
		return logger.Fatal("program faulted", err)
	}

	fmt.Printf("Program finished (Total cycles: %d)\n", s.Cycles())
	return nil
}

func openLogSink(path string) (*os.File, func(), error) {
	switch path {
	case "":
		return nil, func() {}, nil
	case "-":
		return os.Stdout, func() {}, nil
	default:
		f, err := os.Create(path) // #nosec G304 -- user-supplied log path
		if err != nil {
			return nil, func() {}, err
		}
		return f, func() { f.Close() }, nil
	}
}
