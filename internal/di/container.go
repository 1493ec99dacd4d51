package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/adapters/imapmail"
	"github.com/mikey/email-crm-sync/internal/adapters/zoho"
	"github.com/mikey/email-crm-sync/internal/cache"
	"github.com/mikey/email-crm-sync/internal/config"
	"github.com/mikey/email-crm-sync/internal/core"
	"github.com/mikey/email-crm-sync/internal/factory"
	"github.com/mikey/email-crm-sync/internal/logging"
	"github.com/mikey/email-crm-sync/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) (config.ZohoConfig, error) {
		return cfg.GetZoho()
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewExtractorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTrackerFactory); err != nil {
		return nil, err
	}

	// Register metadata cache
	if err := container.Provide(func(zohoCfg config.ZohoConfig) *cache.MetadataCache {
		return cache.NewMetadataCache(
			time.Duration(zohoCfg.ModuleCacheTTLHrs)*time.Hour,
			time.Duration(zohoCfg.FieldCacheTTLHrs)*time.Hour,
		)
	}); err != nil {
		return nil, err
	}

	// Register record store
	if err := container.Provide(func(zohoCfg config.ZohoConfig, metadata *cache.MetadataCache, logger *zap.Logger) (core.RecordStore, error) {
		return zoho.NewClient(zoho.Config{
			AccessToken: zohoCfg.AccessToken,
			DataCenter:  zohoCfg.DataCenter,
			Timeout:     zohoCfg.Timeout,
		}, metadata, logger)
	}); err != nil {
		return nil, err
	}

	// Register extractor
	if err := container.Provide(func(f *factory.ExtractorFactory) (core.Extractor, error) {
		return f.CreateExtractor()
	}); err != nil {
		return nil, err
	}

	// Register processed tracker
	if err := container.Provide(func(f *factory.TrackerFactory) (core.ProcessedTracker, error) {
		return f.CreateTracker()
	}); err != nil {
		return nil, err
	}

	// Register mailbox
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.Mailbox, error) {
		imapCfg := cfg.GetIMAP()
		return imapmail.NewMailbox(imapmail.Config{
			Server:        imapCfg.Server,
			Username:      imapCfg.Username,
			Password:      imapCfg.Password,
			Folder:        imapCfg.Folder,
			ProcessedFlag: imapCfg.ProcessedFlag,
			TLS:           imapCfg.TLS,
		}, logger)
	}); err != nil {
		return nil, err
	}

	// Register matching pipeline
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.SignalExtractor {
		return core.NewSignalExtractor(cfg.GetStringSlice("search.generic_domains"), logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(store core.RecordStore, zohoCfg config.ZohoConfig, logger *zap.Logger) *core.QueryCascade {
		return core.NewQueryCascade(store, logger, zohoCfg.MaxResultsPerTerm)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(extractor *core.SignalExtractor, cascade *core.QueryCascade, zohoCfg config.ZohoConfig, logger *zap.Logger) *core.MatchingEngine {
		return core.NewMatchingEngine(extractor, cascade, zohoCfg.Module, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(store core.RecordStore, zohoCfg config.ZohoConfig, logger *zap.Logger) *core.GuaranteeEngine {
		return core.NewGuaranteeEngine(store, zohoCfg.Module, zohoCfg.FallbackRecordID, logger)
	}); err != nil {
		return nil, err
	}

	// Register email processor
	if err := container.Provide(func(
		mailbox core.Mailbox,
		extractor core.Extractor,
		matcher *core.MatchingEngine,
		guarantee *core.GuaranteeEngine,
		tracker core.ProcessedTracker,
		store core.RecordStore,
		zohoCfg config.ZohoConfig,
		logger *zap.Logger,
	) *core.EmailProcessor {
		return core.NewEmailProcessor(mailbox, extractor, matcher, guarantee, tracker, store, zohoCfg.Module, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
