// Package cli wires the cobra command tree to internal/config and
// internal/server, ported from the teacher's cmd.go.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gofast-io/gofast-server/internal/config"
	"github.com/gofast-io/gofast-server/internal/server"
)

// version is set during build with -ldflags, matching the teacher.
var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "gofast-server",
	Short: "GoFast - an in-memory key-value server",
	Long: `GoFast is an in-memory key-value server speaking a RESP-style
wire protocol: strings, counters, and lists with per-key TTLs.`,
	Version: version,
	RunE:    runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server (default command)",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		fmt.Println("GoFast Configuration:")
		fmt.Println(strings.Repeat("=", 31))
		fmt.Printf("Host: %s\n", cfg.Host)
		fmt.Printf("Port: %d\n", cfg.Port)
		fmt.Printf("Max Clients: %d\n", cfg.MaxClients)
		fmt.Printf("Log Level: %s\n", cfg.LogLevel)
		fmt.Printf("Save Interval: %v\n", cfg.SaveInterval)
		fmt.Printf("Data Directory: %s\n", cfg.DataDir)
		fmt.Printf("Persistence Enabled: %t\n", cfg.EnablePersist)
		fmt.Printf("TCP Keep-Alive: %t\n", cfg.TCPKeepAlive)
		fmt.Printf("Read Timeout: %v\n", cfg.ReadTimeout)
		fmt.Printf("Write Timeout: %v\n", cfg.WriteTimeout)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("GoFast Server v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Printf("Starting GoFast Server v%s\n", version)
	fmt.Printf("Listening on %s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("Log Level: %s\n", cfg.LogLevel)
	if cfg.EnablePersist {
		fmt.Printf("Persistence: enabled (save every %v, data dir %s)\n", cfg.SaveInterval, cfg.DataDir)
	}
	fmt.Println(strings.Repeat("=", 51))

	srv := server.New(cfg, afero.NewOsFs())
	if err := srv.Start(); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down GoFast server...")
	if err := srv.Stop(); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	fmt.Println("GoFast server stopped")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringP("host", "H", "127.0.0.1", "Host to bind to")
	rootCmd.PersistentFlags().IntP("port", "p", 6379, "Port to listen on")
	rootCmd.PersistentFlags().Int("max-clients", 10000, "Maximum number of clients")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().Duration("save-interval", 300*time.Second, "Persistence save interval")
	rootCmd.PersistentFlags().String("data-dir", "./data", "Data directory for persistence")
	rootCmd.PersistentFlags().Bool("enable-persist", false, "Enable persistence to disk")
	rootCmd.PersistentFlags().Bool("tcp-keepalive", true, "Enable TCP keep-alive")
	rootCmd.PersistentFlags().Duration("read-timeout", 30*time.Second, "Read timeout")
	rootCmd.PersistentFlags().Duration("write-timeout", 30*time.Second, "Write timeout")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("max_clients", rootCmd.PersistentFlags().Lookup("max-clients"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("save_interval", rootCmd.PersistentFlags().Lookup("save-interval"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("enable_persist", rootCmd.PersistentFlags().Lookup("enable-persist"))
	viper.BindPFlag("tcp_keepalive", rootCmd.PersistentFlags().Lookup("tcp-keepalive"))
	viper.BindPFlag("read_timeout", rootCmd.PersistentFlags().Lookup("read-timeout"))
	viper.BindPFlag("write_timeout", rootCmd.PersistentFlags().Lookup("write-timeout"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the CLI's entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
