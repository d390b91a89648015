package cmd

import (
	"context"

	"github.com/angelospk/tmdbimporter/internal/constants"
	"github.com/angelospk/tmdbimporter/pkg/core/extractors"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	"github.com/angelospk/tmdbimporter/pkg/core/queue"
	"github.com/angelospk/tmdbimporter/pkg/core/store"
	"github.com/angelospk/tmdbimporter/pkg/core/tmdb"
	"github.com/angelospk/tmdbimporter/pkg/processor"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// WorkbookStore is the subset of the spreadsheet store the commands use.
type WorkbookStore interface {
	Path() string
	Init(ctx context.Context) error
	Clear(ctx context.Context) error
	Load(ctx context.Context) (*model.RecordSet, []model.RowError, error)
	Save(ctx context.Context, rs *model.RecordSet) error
}

// QueueUploader drains the upload queue.
type QueueUploader interface {
	ProcessQueue(ctx context.Context, qm queue.QueueManagerInterface) (tmdb.Summary, error)
}

// --- Dependency Injection Functions for Testing ---

var NewStoreFunc = func(path string, logger *log.Logger) WorkbookStore {
	return store.NewWorkbook(path, logger)
}

var NewDriverFunc = func(logger *log.Logger) (pagedriver.Driver, error) {
	return pagedriver.NewChrome(pagedriver.ChromeOptions{
		Headless:      viper.GetBool(CfgKeyBrowserHeadless),
		ActionTimeout: viper.GetDuration(CfgKeyBrowserTimeout),
		UserAgent:     constants.UserAgent,
	}, logger)
}

var NewExtractorFunc = func(rawURL string, opts extractors.Options) (extractors.Extractor, error) {
	return extractors.ForURL(rawURL, opts)
}

var NewProcessorFunc = func(opts processor.Options, logger *log.Logger) processor.ProcessorInterface {
	return processor.NewProcessor(opts, logger)
}

var NewQueueManagerFunc = func(configDir string, logger *log.Logger) (queue.QueueManagerInterface, error) {
	return queue.NewQueueManager(configDir, logger)
}

var NewUploaderFunc = func(d pagedriver.Driver, creds tmdb.Credentials, logger *log.Logger) QueueUploader {
	return tmdb.NewUploader(d, creds, tmdb.UploaderOptions{WebURL: viper.GetString(CfgKeyTMDBBaseURL)}, logger)
}

var NewTMDBClientFunc = func(apiURL, apiKey, language string) tmdb.API {
	return tmdb.NewClient(apiURL, apiKey, language)
}

// --- End Dependency Injection ---

func openWorkbook(logger *log.Logger) WorkbookStore {
	return NewStoreFunc(viper.GetString(CfgKeyWorkbookPath), logger)
}

func extractorOptions(logger *log.Logger) extractors.Options {
	return extractors.Options{
		Logger: logger,
		DisneyPlus: extractors.Credentials{
			Email:    viper.GetString(CfgKeyDisneyPlusEmail),
			Password: viper.GetString(CfgKeyDisneyPlusPassword),
		},
	}
}

func processorOptions() processor.Options {
	return processor.Options{
		WebURL:   viper.GetString(CfgKeyTMDBBaseURL),
		Language: viper.GetString(CfgKeyTMDBLanguage),
	}
}
