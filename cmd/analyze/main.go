// Command analyze classifies disaster report texts from the command line.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-ingest/internal/adapter/googlemaps"
	"github.com/couchcryptid/disaster-ingest/internal/adapter/openai"
	"github.com/couchcryptid/disaster-ingest/internal/config"
	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
	"github.com/couchcryptid/disaster-ingest/internal/pipeline"
)

type options struct {
	model   bool
	geocode bool
	json    bool
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	if err := command(config.Load, observability.NewMetrics()).Execute(); err != nil {
		os.Exit(1)
	}
}

func command(loadConfig func() (*config.Config, error), metrics *observability.Metrics) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Classify disaster report texts",
		Long: `Classify each text argument, or each non-empty stdin line when no
arguments are given, and print its severity, disaster type, urgent needs
and location.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			analyzer, err := buildAnalyzer(cfg, opts, metrics, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			texts, err := inputTexts(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return analyzeAll(cmd, analyzer, texts, opts.json)
		},
	}
	cmd.Flags().BoolVar(&opts.model, "model", false, "classify and extract locations with the language model")
	cmd.Flags().BoolVar(&opts.geocode, "geocode", false, "geocode extracted locations")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print one JSON object per text")
	return cmd
}

func buildAnalyzer(cfg *config.Config, opts options, metrics *observability.Metrics, logOut io.Writer) (*pipeline.Analyzer, error) {
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mode := domain.ModeKeyword
	var extractor domain.LocationExtractor
	var model domain.ModelClassifier
	if opts.model {
		if !cfg.ModelEnabled() {
			return nil, errors.New("--model requires OPENAI_API_KEY")
		}
		client := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModels, metrics, logger)
		extractor, model, mode = client, client, domain.ModeModel
	}

	var geocoder domain.Geocoder
	if opts.geocode {
		if !cfg.GeocodingEnabled() {
			return nil, errors.New("--geocode requires GOOGLE_MAPS_API_KEY")
		}
		client, err := googlemaps.NewClient(cfg.GoogleMapsAPIKey, "", cfg.GeocodeTimeout, metrics, logger)
		if err != nil {
			return nil, fmt.Errorf("google maps: %w", err)
		}
		geocoder = domain.NewRegionGeocoder(googlemaps.NewCachedSearcher(client, cfg.GeocodeCacheTTL, metrics), logger)
	}

	return pipeline.NewAnalyzer(
		domain.NewClassifier(model, logger),
		pipeline.NewLocator(extractor, logger),
		geocoder,
		mode,
		logger,
	), nil
}

func inputTexts(args []string, stdin io.Reader) ([]string, error) {
	var texts []string
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			texts = append(texts, a)
		}
	}
	if len(args) > 0 {
		return texts, nil
	}

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return texts, nil
}

func analyzeAll(cmd *cobra.Command, analyzer *pipeline.Analyzer, texts []string, asJSON bool) error {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	for _, text := range texts {
		res := analyzer.Analyze(cmd.Context(), text, "")
		if asJSON {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			continue
		}
		fmt.Fprintln(out, formatResult(text, res))
	}
	return nil
}

func formatResult(text string, res pipeline.AnalyzeResult) string {
	c := res.Classification
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  severity=%s type=%s confidence=%.2f", preview(text, 60), c.Severity, c.DisasterType, c.Confidence)
	if len(c.UrgentNeeds) > 0 {
		fmt.Fprintf(&b, " needs=%q", domain.JoinNeeds(c.UrgentNeeds))
	}
	if res.Location != "" {
		fmt.Fprintf(&b, " location=%q (%s)", res.Location, res.LocationSource)
	}
	if res.Coords != nil {
		fmt.Fprintf(&b, " coords=%.5f,%.5f", res.Coords.Lat, res.Coords.Lng)
	}
	return b.String()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
