package main

import (
	"context"
	"errors"
	"fluxfill/internal/adapters/file"
	"fluxfill/internal/adapters/handler"
	"fluxfill/internal/adapters/metrics"
	"fluxfill/internal/adapters/sender"
	"fluxfill/internal/app"
	"fluxfill/internal/core/domain/command"
	"fluxfill/internal/core/service"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	log.Info().Msg("starting fluxfill bot...")

	err := app.LoadConfig(true)
	if err != nil {
		log.Fatal().Err(err).Msg("could not read config file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	token := viper.GetString("telegram.bot_token")
	opts := []bot.Option{
		bot.WithDefaultHandler(noOpHandler),
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Panic().Err(err).Msg("failed initializing telegram bot")
	}

	recorder := metrics.NewPrometheus("fluxfill")
	if addr := viper.GetString("metrics.listen"); addr != "" {
		go serveMetrics(addr, recorder.Handler())
	}

	tool, err := app.NewInpaintTool(recorder)
	if err != nil {
		log.Panic().Err(err).Msg("failed initializing inpaint tool")
	}

	auth, err := service.NewAuthorizer()
	if err != nil {
		log.Panic().Err(err).Msg("failed initializing authorizer")
	}

	s := sender.NewTelegram(b)
	apiToken := viper.GetString("replicate.api_token")

	commandRegistry := command.NewRegistry(
		command.NewInpaint(tool, s, auth, apiToken, "/inpaint"),
		command.NewVerify(tool, s, auth, apiToken, "/verify"),
	)
	commandRegistry.Register(command.NewHelp(commandRegistry, s, "/help"))

	commandHandler := handler.NewCommand(commandRegistry, file.NewFetcher(nil), viper.GetDuration("handler.timeout"))

	b.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, commandHandler.Handle)
	b.RegisterHandler(bot.HandlerTypePhotoCaption, "/", bot.MatchTypePrefix, commandHandler.Handle)

	log.Info().Msg("bot listening")
	b.Start(ctx)
}

func serveMetrics(addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	log.Info().Str("addr", addr).Msg("serving metrics")
	err := http.ListenAndServe(addr, mux)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}

func noOpHandler(_ context.Context, _ *bot.Bot, _ *models.Update) {}
