package app

import (
	"errors"
	"fluxfill/internal/adapters/converter"
	"fluxfill/internal/adapters/file"
	"fluxfill/internal/adapters/generator"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fluxfill/internal/core/service"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// SetDefaults registers the configuration defaults shared by the bot and the CLI.
func SetDefaults() {
	viper.SetDefault("replicate.base_url", generator.DefaultBaseURL)
	viper.SetDefault("replicate.model", generator.DefaultModel)
	viper.SetDefault("replicate.poll_interval", "1s")
	viper.SetDefault("fetch.timeout", "30s")
	viper.SetDefault("fetch.result_timeout", "60s")
	viper.SetDefault("mask.backend", converter.BackendImaging)
	viper.SetDefault("handler.timeout", "5m")
	viper.SetDefault("bot.log_level", "info")
}

// LoadConfig reads .env and config.toml from the working directory. A missing config file is only fatal when
// required is set, the CLI runs fine on flags and environment alone.
func LoadConfig(required bool) error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using system environment")
	}

	SetDefaults()

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	if err := viper.BindEnv("replicate.api_token", "REPLICATE_API_TOKEN"); err != nil {
		return err
	}

	log.Info().Msg("reading config file...")
	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || !errors.As(err, &notFound) {
			return err
		}
		log.Debug().Msg("no config file found")
	}

	ConfigureLogging(viper.GetString("bot.log_level"))

	return nil
}

func ConfigureLogging(level string) {
	var logLevel zerolog.Level

	switch level {
	case "info":
		logLevel = zerolog.InfoLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)
}

// NewInpaintTool builds the tool from configuration. An unavailable mask backend is not an error, the tool then
// forwards masks unchanged.
func NewInpaintTool(recorder port.Recorder) (*service.InpaintTool, error) {
	var normalizer port.MaskNormalizer

	n, err := converter.New(viper.GetString("mask.backend"))
	switch {
	case err == nil:
		normalizer = n
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		log.Warn().Err(err).Msg("mask resizing disabled")
	default:
		return nil, err
	}

	client := &http.Client{}
	fetcher := file.NewFetcher(client)

	reconciler := service.NewReconciler(fetcher, normalizer, recorder, viper.GetDuration("fetch.timeout"))
	factory := generator.NewFactory(
		viper.GetString("replicate.base_url"),
		viper.GetString("replicate.model"),
		viper.GetDuration("replicate.poll_interval"),
		client)

	return service.NewInpaintTool(reconciler, fetcher, factory, recorder,
		viper.GetDuration("fetch.result_timeout")), nil
}
