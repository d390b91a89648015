package queue

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/angelospk/tmdbimporter/pkg/core/fileops"
	"github.com/angelospk/tmdbimporter/pkg/core/metadata"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Default filenames for persistence
const (
	defaultQueueFile   = "queue.json"
	defaultHistoryFile = "history.json"
)

// QueueManagerInterface is the subset of QueueManager used by the uploader
// and the CLI.
type QueueManagerInterface interface {
	AddToQueue(jobs []metadata.UploadJob) (added int, skipped int)
	GetQueue() []metadata.UploadJob
	GetHistory() []metadata.UploadJob
	ClaimNextPendingJob() *metadata.UploadJob
	UpdateJobStatus(jobID string, status metadata.JobStatus, message string) error
	MoveJobToHistory(jobID string) error
	ClearQueue() error
}

var _ QueueManagerInterface = (*QueueManager)(nil)

// QueueManager manages the upload job queue and history.
type QueueManager struct {
	queue     []metadata.UploadJob
	history   []metadata.UploadJob
	queueLock sync.RWMutex
	histLock  sync.RWMutex

	queueFilePath   string
	historyFilePath string
	logger          *log.Logger
}

// NewQueueManager creates and initializes a new QueueManager.
// configDir specifies the directory where queue.json and history.json are
// stored. Unreadable state files are logged and replaced by empty state.
func NewQueueManager(configDir string, logger *log.Logger) (*QueueManager, error) {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(os.Stdout)
		logger.SetLevel(log.InfoLevel)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	qm := &QueueManager{
		queue:           []metadata.UploadJob{},
		history:         []metadata.UploadJob{},
		queueFilePath:   filepath.Join(configDir, defaultQueueFile),
		historyFilePath: filepath.Join(configDir, defaultHistoryFile),
		logger:          logger,
	}

	if err := qm.LoadQueueState(); err != nil {
		qm.logger.Warnf("Failed to load queue state from %s: %v. Starting with empty queue.", qm.queueFilePath, err)
	}
	if err := qm.LoadHistory(); err != nil {
		qm.logger.Warnf("Failed to load history from %s: %v. Starting with empty history.", qm.historyFilePath, err)
	}

	qm.logger.Debugf("QueueManager initialized. Queue: %d items, History: %d items.", len(qm.queue), len(qm.history))
	return qm, nil
}

// --- Persistence --- //

func writeJobs(path string, jobs []metadata.UploadJob) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs: %w", err)
	}
	err = fileops.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJobs(path string) ([]metadata.UploadJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []metadata.UploadJob{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return []metadata.UploadJob{}, nil
	}
	var jobs []metadata.UploadJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return jobs, nil
}

// saveQueueLocked persists the queue. The caller holds queueLock.
func (qm *QueueManager) saveQueueLocked() error {
	if err := writeJobs(qm.queueFilePath, qm.queue); err != nil {
		qm.logger.Errorf("Error saving queue state: %v", err)
		return err
	}
	return nil
}

// saveHistoryLocked persists the history. The caller holds histLock.
func (qm *QueueManager) saveHistoryLocked() error {
	if err := writeJobs(qm.historyFilePath, qm.history); err != nil {
		qm.logger.Errorf("Error saving history: %v", err)
		return err
	}
	return nil
}

// SaveQueueState saves the current queue to its JSON file.
func (qm *QueueManager) SaveQueueState() error {
	qm.queueLock.RLock()
	defer qm.queueLock.RUnlock()
	return qm.saveQueueLocked()
}

// LoadQueueState loads the queue from its JSON file.
func (qm *QueueManager) LoadQueueState() error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	jobs, err := readJobs(qm.queueFilePath)
	if err != nil {
		return err
	}
	// A job left Uploading by an interrupted run is retried.
	for i := range jobs {
		if jobs[i].Status == metadata.StatusUploading {
			jobs[i].Status = metadata.StatusPending
		}
	}
	qm.queue = jobs
	qm.logger.Debugf("Queue state loaded from %s (%d items)", qm.queueFilePath, len(qm.queue))
	return nil
}

// SaveHistory saves the current history to its JSON file.
func (qm *QueueManager) SaveHistory() error {
	qm.histLock.RLock()
	defer qm.histLock.RUnlock()
	return qm.saveHistoryLocked()
}

// LoadHistory loads the history from its JSON file.
func (qm *QueueManager) LoadHistory() error {
	qm.histLock.Lock()
	defer qm.histLock.Unlock()

	jobs, err := readJobs(qm.historyFilePath)
	if err != nil {
		return err
	}
	qm.history = jobs
	qm.logger.Debugf("History loaded from %s (%d items)", qm.historyFilePath, len(qm.history))
	return nil
}

// --- Queue Operations --- //

// AddToQueue appends jobs to the queue and saves the state. Jobs without an
// edit URL, or whose edit URL is already queued, are skipped.
func (qm *QueueManager) AddToQueue(jobs []metadata.UploadJob) (added int, skipped int) {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	queued := make(map[string]bool, len(qm.queue))
	for _, job := range qm.queue {
		queued[job.EditURL] = true
	}

	for _, job := range jobs {
		if job.EditURL == "" {
			qm.logger.Warnf("Skipping job add: edit URL is missing (%s %q)", job.Kind, job.Name)
			skipped++
			continue
		}
		if queued[job.EditURL] {
			qm.logger.Infof("Skipping duplicate job for %s", job.EditURL)
			skipped++
			continue
		}
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		job.Status = metadata.StatusPending
		job.SubmittedAt = time.Now()
		qm.queue = append(qm.queue, job)
		queued[job.EditURL] = true
		added++
	}

	if added > 0 {
		qm.logger.Infof("Added %d new job(s) to the queue.", added)
		if err := qm.saveQueueLocked(); err != nil {
			qm.logger.Warnf("Queue kept in memory only: %v", err)
		}
	}
	return added, skipped
}

// GetQueue returns a copy of the current queue.
func (qm *QueueManager) GetQueue() []metadata.UploadJob {
	qm.queueLock.RLock()
	defer qm.queueLock.RUnlock()

	queueCopy := make([]metadata.UploadJob, len(qm.queue))
	copy(queueCopy, qm.queue)
	return queueCopy
}

// GetHistory returns a copy of the current history, newest first.
func (qm *QueueManager) GetHistory() []metadata.UploadJob {
	qm.histLock.RLock()
	defer qm.histLock.RUnlock()

	historyCopy := make([]metadata.UploadJob, len(qm.history))
	copy(historyCopy, qm.history)
	return historyCopy
}

// GetNextPendingJob returns a copy of the first pending job, or nil.
func (qm *QueueManager) GetNextPendingJob() *metadata.UploadJob {
	qm.queueLock.RLock()
	defer qm.queueLock.RUnlock()

	for _, job := range qm.queue {
		if job.Status == metadata.StatusPending {
			jobCopy := job
			return &jobCopy
		}
	}
	return nil
}

// ClaimNextPendingJob marks the first pending job as uploading and returns a
// copy of it, or nil when nothing is pending. Concurrent callers never claim
// the same job.
func (qm *QueueManager) ClaimNextPendingJob() *metadata.UploadJob {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	for i := range qm.queue {
		if qm.queue[i].Status != metadata.StatusPending {
			continue
		}
		qm.queue[i].Status = metadata.StatusUploading
		if err := qm.saveQueueLocked(); err != nil {
			qm.logger.Warnf("Queue kept in memory only: %v", err)
		}
		jobCopy := qm.queue[i]
		return &jobCopy
	}
	return nil
}

func (qm *QueueManager) indexOf(jobID string) int {
	for i, job := range qm.queue {
		if job.ID == jobID {
			return i
		}
	}
	return -1
}

// UpdateJobStatus updates the status and message of a queued job and saves
// the queue state.
func (qm *QueueManager) UpdateJobStatus(jobID string, status metadata.JobStatus, message string) error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	index := qm.indexOf(jobID)
	if index < 0 {
		return fmt.Errorf("job %s not found in queue", jobID)
	}

	qm.queue[index].Status = status
	qm.queue[index].Message = message
	if status.Done() {
		qm.queue[index].CompletedAt = time.Now()
	}
	qm.logger.Debugf("Updated job %s to status %s (Msg: %s)", jobID, status, message)
	return qm.saveQueueLocked()
}

// MoveJobToHistory removes a job from the queue and prepends it to history.
// Saves both queue and history states.
func (qm *QueueManager) MoveJobToHistory(jobID string) error {
	qm.queueLock.Lock()
	index := qm.indexOf(jobID)
	if index < 0 {
		qm.queueLock.Unlock()
		return fmt.Errorf("job %s not found in queue", jobID)
	}
	jobToMove := qm.queue[index]
	qm.queue = append(qm.queue[:index], qm.queue[index+1:]...)
	saveErr := qm.saveQueueLocked()
	qm.queueLock.Unlock()

	qm.histLock.Lock()
	qm.history = append([]metadata.UploadJob{jobToMove}, qm.history...)
	histErr := qm.saveHistoryLocked()
	qm.histLock.Unlock()

	switch {
	case saveErr != nil && histErr != nil:
		return fmt.Errorf("queue save failed: %w; history save failed: %w", saveErr, histErr)
	case histErr != nil:
		return fmt.Errorf("history save failed: %w", histErr)
	}
	return saveErr
}

// RemoveJobFromQueue drops a job without recording it in history.
func (qm *QueueManager) RemoveJobFromQueue(jobID string) error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	index := qm.indexOf(jobID)
	if index < 0 {
		return fmt.Errorf("job %s not found in queue", jobID)
	}
	removed := qm.queue[index]
	qm.queue = append(qm.queue[:index], qm.queue[index+1:]...)
	qm.logger.Infof("Removed job %s (%s)", jobID, removed.EditURL)
	return qm.saveQueueLocked()
}

// ClearQueue removes all jobs from the queue and saves the state.
func (qm *QueueManager) ClearQueue() error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	if len(qm.queue) == 0 {
		return nil
	}
	qm.queue = []metadata.UploadJob{}
	qm.logger.Info("Cleared all jobs from the queue.")
	return qm.saveQueueLocked()
}

// ClearHistory removes all jobs from the history and saves the state.
func (qm *QueueManager) ClearHistory() error {
	qm.histLock.Lock()
	defer qm.histLock.Unlock()

	if len(qm.history) == 0 {
		return nil
	}
	qm.history = []metadata.UploadJob{}
	qm.logger.Info("Cleared all jobs from the history.")
	return qm.saveHistoryLocked()
}
