package bootstrap

import (
	"fmt"

	"github.com/havenmind/safeguard/internal/analyzer"
	"github.com/havenmind/safeguard/internal/api"
	"github.com/havenmind/safeguard/internal/config"
	"github.com/havenmind/safeguard/internal/detector"
	"github.com/havenmind/safeguard/internal/domain"
	"github.com/havenmind/safeguard/internal/lexicon"
	"github.com/havenmind/safeguard/internal/logger"
	"github.com/havenmind/safeguard/internal/notify"
	"github.com/havenmind/safeguard/internal/protocol"
	"github.com/havenmind/safeguard/internal/telemetry"
)

// Components holds everything the entrypoint needs to run the service.
type Components struct {
	Server    *api.Server
	Protocol  *protocol.Protocol
	Telemetry *telemetry.Provider
}

// SetupService builds the full detection and protocol stack from
// configuration.
func SetupService(cfg *config.Config, db *DatabaseComponents, log logger.Logger) (*Components, error) {
	ext, err := lexicon.LoadExtension(cfg.Detection.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon extension: %w", err)
	}
	lex, err := lexicon.Merge(lexicon.Base(), ext)
	if err != nil {
		return nil, fmt.Errorf("merge lexicon: %w", err)
	}
	log.Info("Risk lexicon loaded",
		logger.Int("phrases", lex.PhraseCount()),
		logger.Int("exclusions", lex.ExclusionCount()))

	keywords := detector.NewKeywordClassifier(lex)

	var riskAnalyzer detector.RiskAnalyzer
	if cfg.Analyzer.Enabled {
		riskAnalyzer = analyzer.NewClient(cfg.Analyzer.URL, cfg.Analyzer.Timeout)
		log.Info("Model analyzer enabled", logger.String("url", cfg.Analyzer.URL))
	}

	tp := telemetry.NewProvider()

	det := detector.NewDetector(keywords, riskAnalyzer, detector.Config{
		AnalyzerTimeout: cfg.Analyzer.Timeout,
		AnalyzerRPS:     cfg.Analyzer.RPS,
		AnalyzerBurst:   cfg.Analyzer.Burst,
	}, log).WithTelemetry(tp)

	assessor := detector.NewAssessor(det, cfg.Detection.BatchConcurrency, log)

	notifier := notify.NewWebhookNotifier(cfg.Protocol.Webhooks, cfg.Protocol.NotifyTimeout, log)

	proto, err := protocol.New(protocol.Config{
		AlertConfigs:   cfg.Protocol.Alerts,
		Channels:       cfg.Protocol.Channels,
		EmergencyTerms: cfg.Protocol.EmergencyTerms,
	}, db.EventRepo, notifier, log, tp)
	if err != nil {
		return nil, fmt.Errorf("create crisis protocol: %w", err)
	}

	handler := api.NewHandler(
		assessor,
		proto,
		db.EventRepo,
		tp,
		domain.Sensitivity(cfg.Detection.Sensitivity),
		log,
	)

	server := api.NewServer(handler, api.ServerConfig{
		Port:  cfg.Service.Port,
		Debug: cfg.Service.Debug,
	}, tp, log)

	return &Components{
		Server:    server,
		Protocol:  proto,
		Telemetry: tp,
	}, nil
}
