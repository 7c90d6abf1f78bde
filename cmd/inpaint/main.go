// Command inpaint runs a single FLUX Fill Pro request and writes the output as JSON lines to stdout, or saves the
// image with --out.
package main

import (
	"context"
	"errors"
	"fluxfill/internal/adapters/sender"
	"fluxfill/internal/app"
	"fluxfill/internal/core/domain"
	"fluxfill/internal/core/port"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	fs := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(parseExitCode(err))
	}

	if err := viper.BindPFlags(fs); err != nil {
		log.Fatal().Err(err).Msg("could not bind flags")
	}

	if err := app.LoadConfig(false); err != nil {
		log.Fatal().Err(err).Msg("could not read config file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tool, err := app.NewInpaintTool(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed initializing inpaint tool")
	}

	if err := run(ctx, tool, newEmitter()); err != nil {
		log.Debug().Err(err).Msg("inpaint failed")
		os.Exit(1)
	}
}

func newFlagSet() *pflag.FlagSet {
	defaults := domain.DefaultParams()

	fs := pflag.NewFlagSet("inpaint", pflag.ContinueOnError)
	fs.String("image", "", "URL or data URI of the source image")
	fs.String("prompt", "", "description of what to generate")
	fs.String("mask", "", "URL or data URI of the mask, white marks the area to fill")
	fs.Int("steps", defaults.Steps, "diffusion steps")
	fs.Float64("guidance", defaults.Guidance, "guidance scale")
	fs.String("outpaint", string(defaults.Outpaint), "outpaint mode, e.g. \"Zoom out 2x\" or \"Make square\"")
	fs.String("output_format", string(defaults.OutputFormat), "png, jpg or webp")
	fs.Int("safety_tolerance", defaults.SafetyTolerance, "safety tolerance, 1 is strictest")
	fs.Bool("prompt_upsampling", defaults.PromptUpsampling, "let the model expand the prompt")
	fs.String("api-token", "", "Replicate API token, defaults to REPLICATE_API_TOKEN")
	fs.String("out", "", "write the image to this path instead of streaming JSON")
	fs.Bool("validate", false, "only check the API token")

	return fs
}

// parseExitCode maps a flag parsing error to the process exit code. Asking for --help is not a failure.
func parseExitCode(err error) int {
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	return 2
}

func paramsFromConfig() domain.Params {
	return domain.Params{
		Image:            domain.ImageRef(viper.GetString("image")),
		Prompt:           viper.GetString("prompt"),
		Mask:             domain.ImageRef(viper.GetString("mask")),
		Steps:            viper.GetInt("steps"),
		Guidance:         viper.GetFloat64("guidance"),
		Outpaint:         domain.Outpaint(viper.GetString("outpaint")),
		OutputFormat:     domain.OutputFormat(viper.GetString("output_format")),
		SafetyTolerance:  viper.GetInt("safety_tolerance"),
		PromptUpsampling: viper.GetBool("prompt_upsampling"),
	}
}

func apiToken() string {
	if token := viper.GetString("api-token"); token != "" {
		return token
	}
	return viper.GetString("replicate.api_token")
}

func newEmitter() port.Emitter {
	if out := viper.GetString("out"); out != "" {
		return sender.NewFile(os.Stdout, out)
	}
	return sender.NewStream(os.Stdout)
}

func run(ctx context.Context, tool port.Tool, emitter port.Emitter) error {
	if !viper.GetBool("validate") {
		return tool.Invoke(ctx, apiToken(), paramsFromConfig(), emitter)
	}

	err := tool.ValidateCredentials(ctx, apiToken())
	switch {
	case err == nil:
		return emitter.EmitText(ctx, "API token is valid.")
	case errors.Is(err, domain.ErrMissingCredential):
		_ = emitter.EmitText(ctx, "API token is required.")
	case errors.Is(err, domain.ErrInvalidCredential):
		_ = emitter.EmitText(ctx, "API token is invalid.")
	default:
		_ = emitter.EmitText(ctx, fmt.Sprintf("Could not verify the API token: %s", err))
	}

	return err
}
