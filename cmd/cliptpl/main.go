package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/filters"
	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/postprocess"
	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/starfilter"
	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/store"
	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/template"
)

var (
	logLevel     string
	varsPath     string
	currentURL   string
	filterScript string
	dbPath       string
	noCache      bool
	resolveEmpty bool
	showAST      bool
)

func setupLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func loadVars(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vars := map[string]any{}
	if err := yaml.NewDecoder(f).Decode(&vars); err != nil {
		return nil, fmt.Errorf("decoding variables file: %w", err)
	}
	return vars, nil
}

var rootCmd = cobra.Command{
	Use:   "cliptpl",
	Short: "Render clipper templates against a variable context",
}

var renderCmd = cobra.Command{
	Use:   "render [template-file...]",
	Short: "Render templates with variables from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		if len(args) == 0 {
			return fmt.Errorf("no template file specified")
		}
		vars, err := loadVars(varsPath)
		if err != nil {
			return err
		}
		ctx := context.Background()

		var st *store.Store
		if dbPath != "" {
			st, err = store.Open(dbPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()
		}

		rc := template.NewRenderContext(vars, currentURL)
		rc.Logger = logger
		registry := filters.NewRegistry(logger)
		rc.Filters = registry
		if filterScript != "" {
			engine, err := starfilter.LoadFile(filterScript, logger)
			if err != nil {
				return err
			}
			rc.FilterOverrides = engine.Overrides()
			logger.Debug("loaded filter overrides", "filters", engine.Names())
		}

		cache := store.NewParseCache()
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			src := string(raw)

			var cacheKey string
			if st != nil && !noCache {
				cacheKey = store.RenderKey(src, vars, currentURL)
				if out, hit, err := st.CachedOutput(ctx, cacheKey); err != nil {
					return err
				} else if hit {
					logger.Debug("render cache hit", "template", path)
					fmt.Print(out)
					continue
				}
			}

			res, err := renderThrough(ctx, cache, src, rc)
			if err != nil {
				return fmt.Errorf("%s did not parse: %w", path, err)
			}
			for _, re := range res.Errors {
				logger.Warn("render error", "template", path, "error", re)
			}
			out := res.Output
			if res.HasDeferred {
				if resolveEmpty {
					proc := &postprocess.Processor{Filters: registry, Logger: logger}
					out, err = proc.Process(ctx, out, currentURL)
					if err != nil {
						return err
					}
				} else {
					logger.Warn("output contains deferred placeholders; no resolvers configured", "template", path)
				}
			}
			if st != nil && !noCache && len(res.Errors) == 0 && !res.HasDeferred {
				if err := st.StoreOutput(ctx, cacheKey, out); err != nil {
					logger.Warn("could not cache render", "error", err)
				}
			}
			fmt.Print(out)
		}
		if st != nil {
			if _, err := st.PruneCache(ctx, 30*24*time.Hour); err != nil {
				logger.Warn("could not prune cache", "error", err)
			}
		}
		return nil
	},
}

// renderThrough parses src through the shared AST cache and renders it.
// Broken templates are never cached so their diagnostics stay fresh.
func renderThrough(ctx context.Context, cache *store.ParseCache, src string, rc *template.RenderContext) (template.Result, error) {
	nodes, ok := cache.Get(src)
	if !ok {
		var errs []*template.ParseError
		nodes, errs = template.Parse(src)
		if len(errs) > 0 {
			return template.Result{}, template.ParseErrors(errs)
		}
		cache.Put(src, nodes)
	}
	return template.Render(ctx, nodes, rc)
}

var checkCmd = cobra.Command{
	Use:   "check [template-file]",
	Short: "Parse a template and report structural errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		if len(args) == 0 {
			return fmt.Errorf("no template file specified")
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		nodes, errs := template.Parse(string(src))
		if len(errs) > 0 {
			for _, pe := range errs {
				fmt.Fprintln(os.Stderr, pe)
			}
			return fmt.Errorf("%d parse error(s)", len(errs))
		}
		if showAST {
			fmt.Print(template.Pretty(nodes))
		} else {
			fmt.Println("ok")
		}
		return nil
	},
}

var filtersCmd = cobra.Command{
	Use:   "filters",
	Short: "List available filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		registry := filters.NewRegistry(logger)
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		if filterScript != "" {
			engine, err := starfilter.LoadFile(filterScript, logger)
			if err != nil {
				return err
			}
			for _, name := range engine.Names() {
				fmt.Printf("%s (script)\n", name)
			}
		}
		return nil
	},
}

var templatesCmd = cobra.Command{
	Use:   "templates",
	Short: "Manage saved templates",
}

var templatesSaveCmd = cobra.Command{
	Use:   "save [name] [template-file]",
	Short: "Save a template into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		if len(args) < 2 {
			return fmt.Errorf("usage: templates save <name> <file>")
		}
		src, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		if err := template.Validate(string(src)); err != nil {
			return fmt.Errorf("refusing to save a broken template: %w", err)
		}
		if dbPath == "" {
			return fmt.Errorf("--db is required for template storage")
		}
		st, err := store.Open(dbPath, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.SaveTemplate(context.Background(), args[0], string(src))
	},
}

var templatesListCmd = cobra.Command{
	Use:   "list",
	Short: "List saved templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()
		if dbPath == "" {
			return fmt.Errorf("--db is required for template storage")
		}
		st, err := store.Open(dbPath, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		names, err := st.ListTemplates(context.Background())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the settings/cache database")
	rootCmd.PersistentFlags().StringVar(&filterScript, "filters", "", "Starlark filter override script")

	renderCmd.Flags().StringVar(&varsPath, "vars", "", "YAML file with template variables")
	renderCmd.Flags().StringVar(&currentURL, "url", "", "page URL the template renders for")
	renderCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the render cache")
	renderCmd.Flags().BoolVar(&resolveEmpty, "resolve-empty", false, "strip unresolvable deferred placeholders")
	checkCmd.Flags().BoolVar(&showAST, "ast", false, "print the parsed AST")

	templatesCmd.AddCommand(&templatesSaveCmd, &templatesListCmd)
	rootCmd.AddCommand(&renderCmd, &checkCmd, &filtersCmd, &templatesCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
