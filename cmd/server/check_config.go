package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"regenai-go/internal/config"
	"regenai-go/pkg/database"
)

func checkConfigCmd(configPath *string) *cobra.Command {
	var ping bool
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and show which subsystems are enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printConfigReport(out, cfg)

			if !ping {
				return nil
			}
			db, err := database.Open(cfg.Database.URL, false)
			if err != nil {
				return err
			}
			defer database.Close(db)
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("数据库连接失败: %w", err)
			}
			fmt.Fprintln(out, "database: reachable")
			return nil
		},
	}
	cmd.Flags().BoolVar(&ping, "ping", false, "also try to connect to the database")
	return cmd
}

func printConfigReport(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "server:        port=%s mode=%s\n", cfg.Server.Port, cfg.Server.Mode)
	fmt.Fprintf(w, "llm:           provider=%s model=%s key=%s\n", cfg.LLM.Provider, cfg.LLM.Model, mask(cfg.LLM.APIKey))
	fmt.Fprintf(w, "web search:    %s\n", enabled(cfg.Search.APIKey != "", "key="+mask(cfg.Search.APIKey)))
	fmt.Fprintf(w, "weather:       %s\n", enabled(cfg.Weather.OpenWeatherAPIKey != "", "key="+mask(cfg.Weather.OpenWeatherAPIKey)))
	fmt.Fprintf(w, "air quality:   %s\n", enabled(cfg.Weather.AirVisualAPIKey != "", "key="+mask(cfg.Weather.AirVisualAPIKey)))
	fmt.Fprintf(w, "redis:         %s\n", enabled(cfg.Redis.Addr != "", cfg.Redis.Addr))
	fmt.Fprintf(w, "elasticsearch: %s\n", enabled(cfg.Elasticsearch.Addresses != "", cfg.Elasticsearch.Addresses))
	fmt.Fprintf(w, "kafka:         %s\n", enabled(cfg.Kafka.Brokers != "", cfg.Kafka.Brokers))
	fmt.Fprintf(w, "minio:         %s\n", enabled(cfg.MinIO.Endpoint != "", cfg.MinIO.Endpoint))
}

func enabled(on bool, detail string) string {
	if !on {
		return "disabled"
	}
	return "enabled (" + detail + ")"
}

// mask 只保留密钥的前 4 个字符。
func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
