package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"location-api/internal/app"
	"location-api/internal/config"
	"location-api/internal/logging"
	"location-api/internal/models"
	"location-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Core is the part of the location core the commands drive.
type Core interface {
	State() service.GateState
	RequestDeviceLocation(ctx context.Context) (*models.Location, error)
	SetLocation(ctx context.Context, loc *models.Location) (*models.Location, error)
	SetPincode(ctx context.Context, pincode string) (*models.Location, error)
	Suggest(ctx context.Context, query string) []models.Suggestion
	ClearLocation(ctx context.Context) error
}

type appCore struct {
	*app.App
}

func (c appCore) State() service.GateState { return c.Gate.State() }

func (c appCore) RequestDeviceLocation(ctx context.Context) (*models.Location, error) {
	return c.Engine.RequestDeviceLocation(ctx)
}

func (c appCore) SetLocation(ctx context.Context, loc *models.Location) (*models.Location, error) {
	return c.Engine.SetLocation(ctx, loc)
}

func (c appCore) SetPincode(ctx context.Context, pincode string) (*models.Location, error) {
	return c.Engine.SetPincode(ctx, pincode)
}

func (c appCore) Suggest(ctx context.Context, query string) []models.Suggestion {
	var out []models.Suggestion
	for s := range c.Gateway.Autocomplete(ctx, query) {
		out = append(out, s)
	}
	return out
}

func (c appCore) ClearLocation(ctx context.Context) error {
	return c.Engine.ClearLocation(ctx)
}

func main() {
	_ = godotenv.Load()

	var (
		configPath string
		core       *app.App
	)
	open := func(cmd *cobra.Command) (Core, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("cannot load config: %w", err)
		}
		logging.SetupWriter(cmd.ErrOrStderr(), cfg.LogLevel, true)
		core, err = app.New(cmd.Context(), cfg)
		if err != nil {
			return nil, err
		}
		return appCore{core}, nil
	}

	root := newRootCmd(open)
	root.PersistentFlags().StringVar(&configPath, "config", "./configs", "Directory containing app.env")
	root.PersistentPostRun = func(*cobra.Command, []string) {
		if core != nil {
			core.Close()
		}
	}

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("locate failed")
		os.Exit(1)
	}
}

func newRootCmd(open func(*cobra.Command) (Core, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           "locate",
		Short:         "Inspect and change the stored service location",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	run := func(fn func(cmd *cobra.Command, core Core, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			core, err := open(cmd)
			if err != nil {
				return err
			}
			return fn(cmd, core, args)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current location and selector state",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, core Core, _ []string) error {
			return printJSON(cmd.OutOrStdout(), core.State())
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "detect",
		Short: "Detect the location from the network position",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, core Core, _ []string) error {
			loc, err := core.RequestDeviceLocation(cmd.Context())
			if err != nil {
				return errors.New(service.Message(err))
			}
			return printJSON(cmd.OutOrStdout(), loc)
		}),
	})

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the location manually",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, core Core, _ []string) error {
			city, _ := cmd.Flags().GetString("city")
			state, _ := cmd.Flags().GetString("state")
			country, _ := cmd.Flags().GetString("country")
			loc, err := core.SetLocation(cmd.Context(), &models.Location{City: city, State: state, Country: country})
			if err != nil {
				return err
			}
			if loc == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "location cleared")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), loc)
		}),
	}
	setCmd.Flags().String("city", "", "City name")
	setCmd.Flags().String("state", "", "State name")
	setCmd.Flags().String("country", models.DefaultCountry, "Country name")
	root.AddCommand(setCmd)

	root.AddCommand(&cobra.Command{
		Use:   "pincode <code>",
		Short: "Set the location from a 6-digit pincode",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, core Core, args []string) error {
			loc, err := core.SetPincode(cmd.Context(), args[0])
			if err != nil {
				return errors.New(service.Message(err))
			}
			return printJSON(cmd.OutOrStdout(), loc)
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "suggest <query>",
		Short: "List place suggestions for a partial name",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, core Core, args []string) error {
			for _, s := range core.Suggest(cmd.Context(), args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.PlaceID, s.Description)
			}
			return nil
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the stored location",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, core Core, _ []string) error {
			if err := core.ClearLocation(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "location cleared")
			return nil
		}),
	})

	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
