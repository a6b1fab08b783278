package cmd

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vzahanych/city-weather/internal/config"
	"github.com/vzahanych/city-weather/internal/dispatch"
	"github.com/vzahanych/city-weather/internal/presenter"
	"github.com/vzahanych/city-weather/internal/service"
	"github.com/vzahanych/city-weather/internal/weather"
	"go.uber.org/zap"
)

var errFetchFailed = errors.New("weather lookup failed")

func currentCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "current <city>",
		Short: "Print the current weather of a city",
		Long:  `Fetch the current weather of a city once and print temperature, description, min and max.`,
		Example: `  cityweather current Seoul
  cityweather current "New York" --timeout 5s`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCurrent(cmd.Context(), strings.Join(args, " "), timeout, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "deadline for the whole lookup (0 disables it)")

	return cmd
}

func runCurrent(ctx context.Context, city string, timeout time.Duration, out, errOut io.Writer) error {
	cfg := config.GetConfig()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// The loop is the render context: every view update happens on this goroutine.
	loop := dispatch.NewLoop(1, log)

	svc := service.NewOpenWeatherService(cfg.OpenWeather, log, tele)
	svc.SetExecutor(loop)

	view := presenter.NewTerminalView(out, errOut)
	p := presenter.New(view)

	log.Debug("Fetching current weather", zap.String("city", city))

	svc.FetchCurrentWeather(ctx, city, func(result weather.Result) {
		p.Render(result)
		loop.Stop()
	})

	loop.Run(context.Background())

	if view.Failed() {
		return errFetchFailed
	}
	return nil
}
