package main

import (
	"os"

	"github.com/okian/rapport/internal/config"
	"github.com/okian/rapport/internal/domain/policy"
	"github.com/okian/rapport/pkg/logger"
	"github.com/spf13/cobra"
)

// All linker flags will be set at build time.
var (
	version = "dev"
	commit  = "none"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:                "ratingctl",
		Short:              "Inspect and exercise skill ratings.",
		Long:               `ratingctl replays score sequences, classifies values, reads and resets stored ratings, migrates SQL stores and load-tests a running server.`,
		Version:            version + " (" + commit + ")",
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableSuggestions: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configureColor(cmd.OutOrStdout())
			return logger.Init(logger.WithWriter(cmd.ErrOrStderr()))
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (defaults to $RAPPORT_CONFIG)")

	cmd.AddCommand(
		newReplayCmd(opts),
		newClassifyCmd(),
		newShowCmd(opts),
		newResetCmd(opts),
		newMigrateCmd(opts),
		newLoadCmd(opts),
	)
	return cmd
}

// loadConfig reads the configuration and applies its log level.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := o.configFile
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// policyFlags overrides the configured update policy.
type policyFlags struct {
	name          string
	alpha         float64
	roundEachStep bool
	validation    string
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "policy", policy.NameCumulative, "update policy: cumulative or ewma")
	cmd.Flags().Float64Var(&f.alpha, "alpha", policy.DefaultAlpha, "weight of the newest score under ewma")
	cmd.Flags().BoolVar(&f.roundEachStep, "round-each-step", false, "store one-decimal values after every update")
	cmd.Flags().StringVar(&f.validation, "validation", "reject", "out-of-range handling: reject or clamp")
}

// apply copies the flags the user set onto cfg and builds the policy.
func (f *policyFlags) apply(cmd *cobra.Command, cfg *config.Config) (policy.UpdatePolicy, error) {
	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Policy = f.name
	}
	if flags.Changed("alpha") {
		cfg.EWMAAlpha = f.alpha
	}
	if flags.Changed("round-each-step") {
		cfg.RoundEachStep = f.roundEachStep
	}
	if flags.Changed("validation") {
		cfg.ValidationMode = f.validation
	}
	return cfg.UpdatePolicy()
}
