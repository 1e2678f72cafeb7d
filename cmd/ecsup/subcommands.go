package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	core "github.com/opsdeck/ecsup/internal/core"
	"github.com/opsdeck/ecsup/internal/platform"
)

// Resolve configuration: file values first, then environment, then flags.
func resolveConfig(cmd *cobra.Command) (core.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := core.LoadConfig(cfgPath)
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("region"); v != "" {
		cfg.AWS.Region = v
	}
	if v, _ := cmd.Flags().GetString("account"); v != "" {
		cfg.AWS.AccountID = v
	}
	if v, _ := cmd.Flags().GetString("cluster"); v != "" {
		cfg.Deploy.Cluster = v
	}
	if v, _ := cmd.Flags().GetString("service"); v != "" {
		cfg.Deploy.Service = v
	}
	if v, _ := cmd.Flags().GetString("env-file"); v != "" {
		cfg.Deploy.EnvFile = v
	}
	if cmd.Flags().Changed("desired-count") {
		v, _ := cmd.Flags().GetInt32("desired-count")
		cfg.Deploy.DesiredCount = v
	}
	if cmd.Flags().Changed("force-new-deployment") {
		v, _ := cmd.Flags().GetBool("force-new-deployment")
		cfg.Deploy.ForceNewDeployment = v
	}
	return cfg, nil
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("region", "", "platform region")
	cmd.Flags().String("account", "", "account id")
	cmd.Flags().String("cluster", "", "target cluster")
	cmd.Flags().String("service", "", "target service")
	cmd.Flags().String("env-file", "", "JSON file of environment overrides")
	cmd.Flags().String("image", "", "container image override")
}

// Deploy: register a new revision and roll the service to it
func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Register a new task-definition revision and update the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			image, _ := cmd.Flags().GetString("image")
			registerOnly, _ := cmd.Flags().GetBool("register-only")

			api, err := platform.New(cmd.Context(), cfg.AWS.Region)
			if err != nil {
				return err
			}
			store, err := core.NewStore(cfg.HistoryPath())
			if err != nil {
				log.Warn().Err(err).Msg("deploy history unavailable")
				store = nil
			} else {
				defer store.Close()
			}

			dep := core.NewDeployer(cfg, api, store)
			res, err := dep.RegisterAndDeploy(cmd.Context(), core.DeployRequest{
				Cluster:            cfg.Deploy.Cluster,
				Service:            cfg.Deploy.Service,
				DesiredCount:       cfg.Deploy.DesiredCount,
				EnvFile:            cfg.Deploy.EnvFile,
				Image:              image,
				ForceNewDeployment: cfg.Deploy.ForceNewDeployment,
				RegisterOnly:       registerOnly,
			})
			if err != nil {
				return err
			}
			fmt.Printf("task_definition_arn=%s\n", res.TaskDefinitionArn)
			writeGitHubOutput("task_definition_arn", res.TaskDefinitionArn)
			return nil
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().Int32("desired-count", 1, "desired replica count")
	cmd.Flags().Bool("force-new-deployment", false, "force a redeploy even without a definition change")
	cmd.Flags().Bool("register-only", false, "register the revision without updating the service")
	return cmd
}

// Render: dry run, print the draft without registering
func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the task-definition draft without registering it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			image, _ := cmd.Flags().GetString("image")

			api, err := platform.New(cmd.Context(), cfg.AWS.Region)
			if err != nil {
				return err
			}
			dep := core.NewDeployer(cfg, api, nil)
			taskDefID := dep.TaskDefinitionARN(cfg.Deploy.Cluster, cfg.Deploy.Service)
			draft, err := dep.RenderTaskDefinition(cmd.Context(), taskDefID, cfg.Deploy.EnvFile, image)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(draft, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	addTargetFlags(cmd)
	return cmd
}

// History: list recent deploys from the local store
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent deploys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			store, err := core.NewStore(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()
			deploys, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, d := range deploys {
				fmt.Printf("%s\t%s/%s\t%s\tcount=%d\n",
					d.CreatedAt.Format("2006-01-02 15:04:05"), d.Cluster, d.Service, d.TaskDefinitionArn, d.DesiredCount)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "number of deploys to show")
	return cmd
}

// writeGitHubOutput appends a named output when running under a CI runner that
// provides GITHUB_OUTPUT.
func writeGitHubOutput(name, value string) {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Msg("cannot write GITHUB_OUTPUT")
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s=%s\n", name, value)
}
