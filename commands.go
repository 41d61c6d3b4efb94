package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"qa-harness/internal/api"
	"qa-harness/internal/client"
	"qa-harness/internal/database"
	"qa-harness/internal/executor"
	"qa-harness/internal/reporter"
	"qa-harness/internal/suite"
	"qa-harness/internal/testdata"
	"qa-harness/internal/types"
	"qa-harness/internal/users"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveMemory bool
	serveAddr   string

	runSuites      []string
	runTemplateDir string
	runResetUsers  bool
	runWaitApp     bool

	generateOutput string

	waitTimeout time.Duration
)

// serveCmd runs the user service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the user-management API",
	Long: `Serves the user CRUD API under /api, backed by the configured SQL
database (postgres, mysql, sqlserver or sqlite). The users table is created
on startup when missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var store users.Store
		if serveMemory {
			store = users.NewMemoryStore()
		} else {
			dbStore, err := database.Open(ctx, cfg.Database, log.Logger)
			if err != nil {
				return err
			}
			defer dbStore.Close()
			store = dbStore
		}

		addr := cfg.App.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		h := api.NewHandler(users.NewService(store), log.Logger)
		return api.Serve(ctx, api.NewServer(addr, api.NewRouter(h, log.Logger)), log.Logger)
	},
}

// discoverCmd prints what discovery finds about the target API
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover the target API and print what was found",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := newSession(newClient())

		desc, err := s.Description(ctx)
		if err != nil {
			return err
		}
		base, err := s.BaseURL(ctx)
		if err != nil {
			return err
		}
		products, _ := s.ProductsPath(ctx)
		detail, _ := s.ProductDetailPath(ctx)
		categories, _ := s.CategoriesPath(ctx)
		brands, _ := s.BrandsPath(ctx)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "description:  %s (%s, %d paths)\n", desc.SourceURL, desc.Title(), len(desc.Paths()))
		fmt.Fprintf(out, "base URL:     %s\n", base)
		fmt.Fprintf(out, "products:     %s\n", products)
		fmt.Fprintf(out, "detail:       %s\n", detail)
		fmt.Fprintf(out, "categories:   %s\n", categories)
		fmt.Fprintf(out, "brands:       %s\n", brands)

		for _, fact := range []struct {
			label string
			get   func() (string, error)
		}{
			{"product id", func() (string, error) { return optional(ctx, s.SampleProductIdentifier) }},
			{"category id", func() (string, error) { return optional(ctx, s.SampleCategoryID) }},
			{"brand id", func() (string, error) { return optional(ctx, s.SampleBrandID) }},
		} {
			v, err := fact.get()
			if err != nil {
				return err
			}
			if v == "" {
				v = "-"
			}
			fmt.Fprintf(out, "%-13s %s\n", fact.label+":", v)
		}

		token, err := optional(ctx, s.AuthToken)
		if err != nil {
			return err
		}
		login := "not available"
		if token != "" {
			login = "ok"
		}
		fmt.Fprintf(out, "login:        %s\n", login)
		return nil
	},
}

// runCmd runs check suites and writes the reports
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run check suites",
	Long: `Runs the selected suites one check at a time and writes the reports.

Suites:
  smoke       - fast checks that the catalog API is up
  regression  - deeper catalog checks, sorting, auth-gated endpoints
  users       - CRUD checks against the user service (APP_BASE_URL)
  template    - one request per endpoint of a generated request template
  all         - every suite whose inputs are available`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := newClient()
		deps := suite.Deps{Client: c, AppBaseURL: cfg.App.BaseURL}

		selected := func(names ...string) bool {
			for _, n := range names {
				if slices.Contains(runSuites, n) {
					return true
				}
			}
			return false
		}

		if selected(suite.Smoke, suite.Regression, suite.All) {
			deps.Session = newSession(c)
		}

		if selected(suite.Users, suite.All) {
			if runWaitApp {
				health := client.Absolute(cfg.App.BaseURL, "/api/health")
				if err := executor.WaitForHTTP(ctx, health, time.Duration(cfg.Test.ReadyTimeout)*time.Second); err != nil {
					return err
				}
			}
			if runResetUsers {
				store, err := database.Open(ctx, cfg.Database, log.Logger)
				if err != nil {
					return err
				}
				defer store.Close()
				deps.ResetUsers = store.Truncate
			}
		}

		if selected(suite.Template, suite.All) {
			template, err := testdata.NewLoader(runTemplateDir).LoadTestData()
			switch {
			case err == nil:
				deps.TestData = template
			case selected(suite.Template):
				return err
			default:
				log.Info("no request template, template suite left out", zap.Error(err))
			}
		}

		checks, err := suite.Select(runSuites, deps)
		if err != nil {
			return err
		}

		runner := executor.NewRunner(executor.RunConfig{
			Timeout: time.Duration(cfg.Test.CheckTimeout) * time.Second,
			Retry: executor.RetryConfig{
				Attempts: cfg.Test.Retry.Attempts,
				Delay:    time.Duration(cfg.Test.Retry.Delay) * time.Second,
			},
		}, log)

		start := time.Now()
		results := runner.Run(ctx, checks)
		report := reporter.Summarize(results, time.Since(start))

		paths, err := reporter.NewReporter(reporter.ReportingConfig{
			Format:    cfg.Reporting.Format,
			OutputDir: cfg.Reporting.OutputDir,
			Detailed:  cfg.Reporting.Detailed,
		}).GenerateReport(report)
		if err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d checks: %d passed, %d failed, %d skipped, %d xfailed, %d errored in %s\n",
			report.Total, report.Passed, report.Failed, report.Skipped, report.XFailed, report.Errored,
			report.Duration.Round(time.Millisecond))
		for _, p := range paths {
			fmt.Fprintf(out, "report: %s\n", p)
		}

		if !report.OK() {
			return fmt.Errorf("%d checks failed, %d errored", report.Failed, report.Errored)
		}
		return nil
	},
}

// generateCmd writes a request template for the target API
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a request template from the target API description",
	Long: `Discovers the target API and writes a request template with one entry
per GET endpoint. Path parameters are filled with live sample identifiers
where discovery finds them. Review the template, then run it with
"qa-harness run --suite template".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := newSession(newClient())

		desc, err := s.Description(ctx)
		if err != nil {
			return err
		}
		base, err := s.BaseURL(ctx)
		if err != nil {
			return err
		}

		var samples testdata.Samples
		if samples.Product, err = optional(ctx, s.SampleProductIdentifier); err != nil {
			return err
		}
		if samples.Category, err = optional(ctx, s.SampleCategoryID); err != nil {
			return err
		}
		if samples.Brand, err = optional(ctx, s.SampleBrandID); err != nil {
			return err
		}

		gen := testdata.NewGenerator(generateOutput, log.Logger)
		template := gen.Build(desc, base, samples)
		path, err := gen.GenerateTemplate(template)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "request template for %d endpoints written to %s\n", len(template.Endpoints), path)
		return nil
	},
}

// waitCmd blocks until a URL answers 200
var waitCmd = &cobra.Command{
	Use:   "wait [url]",
	Short: "Wait until a service answers 200",
	Long:  `Polls the URL (default: the user service health endpoint) until it answers 200.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := client.Absolute(cfg.App.BaseURL, "/api/health")
		if len(args) == 1 {
			url = args[0]
		}
		timeout := waitTimeout
		if timeout == 0 {
			timeout = time.Duration(cfg.Test.ReadyTimeout) * time.Second
		}
		if err := executor.WaitForHTTP(cmd.Context(), url, timeout); err != nil {
			return err
		}
		log.Info("service is ready", zap.String("url", url))
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep users in memory instead of the configured database")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from LISTEN_ADDR)")

	runCmd.Flags().StringSliceVarP(&runSuites, "suite", "s", []string{suite.Smoke, suite.Regression}, "suites to run: smoke, regression, users, template or all")
	runCmd.Flags().StringVar(&runTemplateDir, "template-dir", "testdata", "directory holding the request template")
	runCmd.Flags().BoolVar(&runResetUsers, "reset-users", false, "empty the users table before each users check")
	runCmd.Flags().BoolVar(&runWaitApp, "wait", false, "wait for the user service to become ready first")

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "testdata", "directory to write the template to")

	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "overall wait budget (default from ready_timeout)")
}

func isSkip(err error) bool {
	var skip *types.SkipError
	return errors.As(err, &skip)
}
