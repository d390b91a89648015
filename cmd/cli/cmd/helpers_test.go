package cmd_test

import (
	"bytes"
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelospk/tmdbimporter/cmd/cli/cmd"
	"github.com/angelospk/tmdbimporter/pkg/core/extractors"
	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	"github.com/angelospk/tmdbimporter/pkg/core/queue"
	"github.com/angelospk/tmdbimporter/pkg/core/store"
	"github.com/angelospk/tmdbimporter/pkg/core/tmdb"
	"github.com/angelospk/tmdbimporter/pkg/processor"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks for Command Dependencies ---

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) CreateJobsFromRecordSet(ctx context.Context, rs *model.RecordSet, target metadata.Target) ([]metadata.UploadJob, error) {
	args := m.Called(ctx, rs, target)
	var jobs []metadata.UploadJob
	if args.Get(0) != nil {
		jobs = args.Get(0).([]metadata.UploadJob)
	}
	return jobs, args.Error(1)
}

type MockQueueManager struct {
	mock.Mock
}

func (m *MockQueueManager) AddToQueue(jobs []metadata.UploadJob) (int, int) {
	args := m.Called(jobs)
	return args.Int(0), args.Int(1)
}

func (m *MockQueueManager) GetQueue() []metadata.UploadJob {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]metadata.UploadJob)
}

func (m *MockQueueManager) GetHistory() []metadata.UploadJob {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]metadata.UploadJob)
}

func (m *MockQueueManager) ClaimNextPendingJob() *metadata.UploadJob { return nil }
func (m *MockQueueManager) UpdateJobStatus(jobID string, status metadata.JobStatus, message string) error {
	return nil
}
func (m *MockQueueManager) MoveJobToHistory(jobID string) error { return nil }

func (m *MockQueueManager) ClearQueue() error {
	return m.Called().Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) ProcessQueue(ctx context.Context, qm queue.QueueManagerInterface) (tmdb.Summary, error) {
	args := m.Called(ctx, qm)
	return args.Get(0).(tmdb.Summary), args.Error(1)
}

type MockTMDBAPI struct {
	mock.Mock
}

func (m *MockTMDBAPI) GetTVDetails(ctx context.Context, id int) (*tmdb.TVDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tmdb.TVDetails), args.Error(1)
}

func (m *MockTMDBAPI) GetMovieDetails(ctx context.Context, id int) (*tmdb.MovieDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tmdb.MovieDetails), args.Error(1)
}

// stubExtractor returns a fresh copy of its record set on every call.
type stubExtractor struct {
	name  string
	rs    model.RecordSet
	calls int
}

func (e *stubExtractor) Name() string           { return e.name }
func (e *stubExtractor) Match(u *url.URL) bool { return true }
func (e *stubExtractor) Extract(ctx context.Context, d pagedriver.Driver, rawURL string) (*model.RecordSet, error) {
	e.calls++
	rs := e.rs.Clone()
	return &rs, nil
}

// authStubExtractor is a stubExtractor that needs a site login.
type authStubExtractor struct {
	stubExtractor
}

func (e *authStubExtractor) Login(ctx context.Context, d pagedriver.Driver) error { return nil }

// --- Helpers ---

// setupEnv isolates the config and returns the workbook path.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	wb := filepath.Join(t.TempDir(), "video_detail.xlsx")
	settings := map[string]interface{}{
		cmd.CfgKeyWorkbookPath:       wb,
		cmd.CfgKeyQueueDir:           filepath.Join(home, "queue"),
		cmd.CfgKeyTMDBUsername:       "",
		cmd.CfgKeyTMDBPassword:       "",
		cmd.CfgKeyTMDBAPIKey:         "",
		cmd.CfgKeyDisneyPlusEmail:    "",
		cmd.CfgKeyDisneyPlusPassword: "",
		cmd.CfgKeyLogFile:            "",
	}
	for k, v := range settings {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range settings {
			viper.Set(k, "")
		}
	})
	return wb
}

// swapDeps replaces the dependency constructors for one test.
func swapDeps(t *testing.T) *pagedriver.Fake {
	t.Helper()
	originalStore := cmd.NewStoreFunc
	originalDriver := cmd.NewDriverFunc
	originalExtractor := cmd.NewExtractorFunc
	originalProcessor := cmd.NewProcessorFunc
	originalQueue := cmd.NewQueueManagerFunc
	originalUploader := cmd.NewUploaderFunc
	originalClient := cmd.NewTMDBClientFunc
	t.Cleanup(func() {
		cmd.NewStoreFunc = originalStore
		cmd.NewDriverFunc = originalDriver
		cmd.NewExtractorFunc = originalExtractor
		cmd.NewProcessorFunc = originalProcessor
		cmd.NewQueueManagerFunc = originalQueue
		cmd.NewUploaderFunc = originalUploader
		cmd.NewTMDBClientFunc = originalClient
	})

	fake := pagedriver.NewFake(nil)
	cmd.NewDriverFunc = func(logger *logrus.Logger) (pagedriver.Driver, error) {
		return fake, nil
	}
	return fake
}

func useExtractor(e extractors.Extractor) {
	cmd.NewExtractorFunc = func(rawURL string, opts extractors.Options) (extractors.Extractor, error) {
		return e, nil
	}
}

func useQueue(qm queue.QueueManagerInterface) {
	cmd.NewQueueManagerFunc = func(configDir string, logger *logrus.Logger) (queue.QueueManagerInterface, error) {
		return qm, nil
	}
}

func useProcessor(p processor.ProcessorInterface) {
	cmd.NewProcessorFunc = func(opts processor.Options, logger *logrus.Logger) processor.ProcessorInterface {
		return p
	}
}

// executeCommand runs the root command with args, feeding stdin to prompts.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	outBuf := bytes.NewBufferString("")
	errBuf := bytes.NewBufferString("")
	cmd.RootCmd.SetIn(strings.NewReader(stdin))
	cmd.RootCmd.SetOut(outBuf)
	cmd.RootCmd.SetErr(errBuf)
	cmd.RootCmd.SetArgs(args)

	err := cmd.RootCmd.Execute()

	// Reset args
	cmd.RootCmd.SetArgs([]string{})
	return outBuf.String(), errBuf.String(), err
}

// seriesRecords has provisional season numbers that need reconciling.
func seriesRecords() model.RecordSet {
	return model.RecordSet{
		Titles: []model.TitleRecord{{Name: "怪奇物語", Description: "小鎮怪事。"}},
		Seasons: []model.SeasonRecord{
			{DisplayName: "第 1 季", Number: 1, Description: "第一季"},
			{DisplayName: "第 3 季", Number: 2, Description: "第三季"},
		},
		Episodes: []model.EpisodeRecord{
			{SeasonNumber: model.Int(1), EpisodeNumber: 1, Title: "失蹤", Description: "威爾失蹤。"},
			{SeasonNumber: model.Int(2), EpisodeNumber: 1, Title: "回歸", Description: "新學期。"},
		},
	}
}

func saveWorkbook(t *testing.T, path string, rs model.RecordSet) {
	t.Helper()
	require.NoError(t, store.NewWorkbook(path, quietLogger()).Save(context.Background(), &rs))
}

func loadWorkbook(t *testing.T, path string) *model.RecordSet {
	t.Helper()
	rs, _, err := store.NewWorkbook(path, quietLogger()).Load(context.Background())
	require.NoError(t, err)
	return rs
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	return logger
}
