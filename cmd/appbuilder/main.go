// Command appbuilder is the operator CLI: it serves the API, runs a
// generation locally, verifies keys and lists templates.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ai-app-builder/internal/config"
	"ai-app-builder/internal/handlers"
	"ai-app-builder/internal/keys"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/server"
	"ai-app-builder/internal/store"
	"ai-app-builder/internal/templates"
	"ai-app-builder/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:           "appbuilder",
	Short:         "AI App Builder CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `appbuilder turns a one-line app description into a project: a planner
names it, six agents (architect, UI/UX, backend, database, QA, DevOps) produce
their parts, and the results are assembled into a codebase and a preview.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(viper.GetString("env-file")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		logging.Init()
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("APPBUILDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("provider", "", "AI provider (cerebras or gemini), overrides AI_PROVIDER")
	_ = viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(verifyKeyCmd())
	rootCmd.AddCommand(templatesCmd())
	rootCmd.AddCommand(migrateCmd())
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if p := viper.GetString("provider"); p != "" {
		cfg.AIProvider = strings.ToLower(p)
	}
	if port := viper.GetString("port"); port != "" {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		logging.L().Warn(w)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			srv, err := server.New(cfg, handlers.Version, logging.L())
			if err != nil {
				return err
			}
			fmt.Printf("Serving AI App Builder on :%s (websocket at /ws/projects/:id)\n", cfg.Port)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().String("port", "", "listen port, overrides PORT")
	_ = viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func generateCmd() *cobra.Command {
	var templateID, outDir string
	cmd := &cobra.Command{
		Use:   "generate [description]",
		Short: "Run a generation locally and print the agent results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := ""
			if len(args) == 1 {
				prompt = args[0]
			}
			if templateID != "" {
				tmpl, err := templates.GetTemplateByID(templateID)
				if err != nil {
					return err
				}
				prompt = tmpl.Prompt
			}
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("a description or --template is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.L()
			client, err := server.NewCompleter(cfg, logger)
			if err != nil {
				return err
			}
			orchestrator := workflow.NewOrchestrator(client, nil, workflow.Config{
				Retry: workflow.RetryPolicy{
					MaxAttempts: cfg.WorkflowMaxAttempts,
					Backoff:     cfg.WorkflowRetryBackoff,
				},
				AgentPause: cfg.WorkflowAgentPause,
			}, logger)

			seen := map[string]workflow.AgentStatus{}
			project, err := orchestrator.Run(cmd.Context(), workflow.Request{Prompt: prompt}, func(p workflow.Project) {
				if viper.GetBool("json") {
					return
				}
				for _, a := range p.Agents {
					if seen[string(a.ID)] != a.Status {
						seen[string(a.ID)] = a.Status
						fmt.Fprintf(os.Stderr, "%-18s %s\n", a.Name, a.Status)
					}
				}
			})
			if err != nil && project.ID == "" {
				return err
			}

			if outDir != "" && project.Codebase != nil {
				if werr := writeCodebase(outDir, project.Codebase); werr != nil {
					return werr
				}
			}
			if viper.GetBool("json") {
				if perr := printJSON(project); perr != nil {
					return perr
				}
				return err
			}
			printProject(project)
			if err != nil {
				return err
			}
			if outDir != "" {
				fmt.Printf("Codebase written to %s\n", outDir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "use the prompt of a catalog template")
	cmd.Flags().StringVar(&outDir, "out", "", "write the codebase sections to this directory")
	return cmd
}

func printProject(p workflow.Project) {
	fmt.Printf("%s (%s)\n", p.Name, p.Status)
	if p.Description != "" {
		fmt.Println(p.Description)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Agent", "Status", "Progress", "Attempts", "Error"})
	for _, a := range p.Agents {
		tw.AppendRow(table.Row{a.Name, a.Status, fmt.Sprintf("%d%%", a.Progress), a.Attempts, a.Error})
	}
	tw.Render()
	if p.Error != "" {
		fmt.Println("error:", p.Error)
	}
}

func writeCodebase(dir string, cb *workflow.Codebase) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range cb.Sections() {
		path := filepath.Join(dir, s.Name+".md")
		if err := os.WriteFile(path, []byte(s.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func verifyKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-key <service> <key>",
		Short: "Check an API key against its provider (cerebras, gemini, vercel, github, supabase)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := keys.ParseService(args[0])
			if err != nil {
				return err
			}
			v := keys.NewVerifier(keys.VerifierOptions{Logger: logging.L()})
			res, err := v.Verify(cmd.Context(), svc, args[1])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(res)
			}
			mark := "valid"
			if !res.Success {
				mark = "invalid"
			}
			fmt.Printf("%s: %s (%s)\n", svc, mark, res.Message)
			if !res.Success {
				return fmt.Errorf("%s key rejected", svc)
			}
			return nil
		},
	}
}

func templatesCmd() *cobra.Command {
	var category string
	var popular bool
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the app templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := templates.GetAllTemplates()
			switch {
			case popular:
				items = templates.GetPopularTemplates()
			case category != "":
				items = templates.GetTemplatesByCategory(templates.TemplateCategory(category))
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Category", "Difficulty", "Popular"})
			for _, t := range items {
				tw.AppendRow(table.Row{t.ID, t.Name, t.Category, t.Difficulty, t.Popular})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only templates in this category")
	cmd.Flags().BoolVar(&popular, "popular", false, "only popular templates")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := store.Open(&store.Config{
				DatabaseURL: cfg.DatabaseURL,
				SQLitePath:  cfg.SQLitePath,
				LogLevel:    "warn",
			}, logging.L())
			if err != nil {
				return err
			}
			defer db.Close()
			counts, err := db.CountProjectsByStatus(cmd.Context())
			if err != nil {
				return err
			}
			logging.L().Info("schema up to date", zap.String("driver", db.Driver()), zap.Any("projects", counts))
			fmt.Printf("Schema up to date (%s)\n", db.Driver())
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
