package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/docinsight/internal/profile"
	"github.com/hrygo/docinsight/server"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "docinsight",
	Short: "A document chat server that answers questions grounded in uploaded files.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfigFile(viper.GetString("config"))
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile := newProfile()
		if err := instanceProfile.Validate(); err != nil {
			return err
		}
		setupLogger(instanceProfile)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, err := server.NewServer(ctx, instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM.
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
		return nil
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8000)
	viper.SetDefault("chunk-size", profile.DefaultChunkSize)
	viper.SetDefault("chunk-overlap", profile.DefaultChunkOverlap)
	viper.SetDefault("top-k", profile.DefaultTopK)
	viper.SetDefault("history-retention", profile.DefaultHistoryRetention)
	viper.SetDefault("session-idle-ttl", profile.DefaultSessionIdleTTL)
	viper.SetDefault("session-capacity", profile.DefaultSessionCapacity)
	viper.SetDefault("cleanup-interval", profile.DefaultCleanupInterval)
	viper.SetDefault("max-upload-bytes", profile.DefaultMaxUploadBytes)
	viper.SetDefault("embed-batch-size", profile.DefaultEmbedBatchSize)
	viper.SetDefault("embed-concurrency", profile.DefaultEmbedConcurrency)
	viper.SetDefault("max-concurrent-ingestions", profile.DefaultMaxConcurrentIngestions)
	viper.SetDefault("rate-limit", profile.DefaultRateLimit)
	viper.SetDefault("rate-burst", profile.DefaultRateBurst)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8000, "port of server")
	flags.String("data", "", "data directory")
	flags.String("config", "", "optional YAML config file")
	flags.Int("history-retention", profile.DefaultHistoryRetention, "turns kept before each chat turn, 0 keeps all")
	flags.Int("top-k", profile.DefaultTopK, "passages retrieved per question")

	for _, name := range []string{"mode", "addr", "port", "data", "config", "history-retention", "top-k"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("docinsight")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func loadConfigFile(path string) error {
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func newProfile() *profile.Profile {
	p := &profile.Profile{
		Mode:                    viper.GetString("mode"),
		Addr:                    viper.GetString("addr"),
		Port:                    viper.GetInt("port"),
		Data:                    viper.GetString("data"),
		Version:                 version,
		ChunkSize:               viper.GetInt("chunk-size"),
		ChunkOverlap:            viper.GetInt("chunk-overlap"),
		TopK:                    viper.GetInt("top-k"),
		HistoryRetention:        viper.GetInt("history-retention"),
		SessionIdleTTL:          viper.GetDuration("session-idle-ttl"),
		SessionCapacity:         viper.GetInt("session-capacity"),
		CleanupInterval:         viper.GetDuration("cleanup-interval"),
		MaxUploadBytes:          viper.GetInt64("max-upload-bytes"),
		EmbedBatchSize:          viper.GetInt("embed-batch-size"),
		EmbedConcurrency:        viper.GetInt("embed-concurrency"),
		MaxConcurrentIngestions: viper.GetInt64("max-concurrent-ingestions"),
		RateLimit:               viper.GetFloat64("rate-limit"),
		RateBurst:               viper.GetInt("rate-burst"),
	}
	p.FromEnv()
	return p
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("DocInsight %s started successfully!\n", p.Version)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Server running on port %d\n", p.Port)
	fmt.Printf("Embedding: %s, LLM: %s/%s\n", p.AIEmbeddingProvider, p.AILLMProvider, p.AILLMModel)
	if p.TikaServerURL == "" {
		fmt.Println("PDF extraction disabled (no Tika server configured)")
	}
	fmt.Printf("Access your instance at: http://%s:%d\n", hostOrLocalhost(p.Addr), p.Port)
}

func hostOrLocalhost(addr string) string {
	if addr == "" {
		return "localhost"
	}
	return addr
}

func main() {
	// .env carries API keys in development; a missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
