package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/bootstrap"
	"github.com/impulse-dash/backend/internal/dashboard"
	"github.com/impulse-dash/backend/internal/render"
	"github.com/impulse-dash/backend/pkg/config"
	"github.com/impulse-dash/backend/pkg/logger"
)

type exportOptions struct {
	configPath string
	dataPath   string
	outDir     string
	pages      []string
	noPNG      bool
	noXLSX     bool
	timeout    time.Duration
}

var opts exportOptions

var rootCmd = &cobra.Command{
	Use:   "impulse-export",
	Short: "Render dashboard pages to PNG charts and XLSX workbooks",
	Long: `Fetches the survey dataset once per page, derives construct scores and
writes every chart of the selected pages into the output directory:

  <out>/<page>/<chart>.png   one image per chart with data
  <out>/<page>.xlsx          the page tables and native charts`,
	Example: `  # Export every configured page from the remote dataset
  impulse-export --out ./export

  # Export one page from a local CSV
  impulse-export --data ./survey.csv --page demographics`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runExport(ctx, opts, cmd.OutOrStdout())
	},
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List the configured dashboard pages and charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(opts)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range cfg.Pages {
			fmt.Fprintf(out, "%s\t%s\n", p.Name, p.Title)
			for _, c := range p.Charts {
				fmt.Fprintf(out, "  %s\t%s\t%s\n", c.ID, c.Kind, c.Title)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yaml (default: search ., ./config, /etc/impulse-dash)")
	rootCmd.PersistentFlags().StringVar(&opts.dataPath, "data", "", "Read the dataset from a local CSV instead of the configured source")

	rootCmd.Flags().StringVarP(&opts.outDir, "out", "o", "export", "Output directory")
	rootCmd.Flags().StringSliceVarP(&opts.pages, "page", "p", nil, "Pages to export (default: all)")
	rootCmd.Flags().BoolVar(&opts.noPNG, "no-png", false, "Skip PNG charts")
	rootCmd.Flags().BoolVar(&opts.noXLSX, "no-xlsx", false, "Skip XLSX workbooks")
	rootCmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Overall export timeout")

	rootCmd.AddCommand(pagesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(o exportOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.dataPath != "" {
		cfg.Source.Path = o.dataPath
	}
	return cfg, nil
}

func runExport(ctx context.Context, o exportOptions, out io.Writer) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, "console", "stderr"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	normalizer := bootstrap.Normalizer(cfg)
	service, err := dashboard.NewService(bootstrap.RawSource(cfg, normalizer), dashboard.Options{
		Constructs: cfg.Definitions(),
		Pages:      cfg.Pages,
		Orders:     cfg.Orders,
	})
	if err != nil {
		return err
	}

	names := o.pages
	if len(names) == 0 {
		for _, p := range service.Pages() {
			names = append(names, p.Name)
		}
	}

	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pngOpts := render.Options{WidthIn: cfg.Render.WidthIn, HeightIn: cfg.Render.HeightIn}
	for _, name := range names {
		rendering, err := service.Render(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to render page %q: %w", name, err)
		}

		if !o.noPNG {
			if err := writePNGs(o.outDir, rendering, pngOpts, out); err != nil {
				return err
			}
		}
		if !o.noXLSX {
			if err := writeWorkbook(o.outDir, rendering, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func writePNGs(dir string, r *dashboard.Rendering, opts render.Options, out io.Writer) error {
	pageDir := filepath.Join(dir, r.Page)
	if err := os.MkdirAll(pageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}
	for _, t := range r.Charts {
		if t.Placeholder() {
			logger.Warn("Skipping chart without data", zap.String("page", r.Page), zap.String("chart", t.Chart), zap.String("reason", t.Error))
			fmt.Fprintf(out, "skip  %s/%s: %s\n", r.Page, t.Chart, t.Error)
			continue
		}
		img, err := render.PNG(t, opts)
		if err != nil {
			return err
		}
		path := filepath.Join(pageDir, t.Chart+".png")
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

func writeWorkbook(dir string, r *dashboard.Rendering, out io.Writer) error {
	f, err := render.Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	path := filepath.Join(dir, r.Page+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}
