package config

const (
	defaultDataDir     = "~/.local/share/finlens"
	defaultArtifactDir = "~/.local/share/finlens/artifacts"
	defaultLogDir      = "~/.local/share/finlens/logs"

	defaultMaxQueryChars       = 1000
	defaultMaxDocumentBytes    = 25 << 20
	defaultStageTimeoutSeconds = 120
	defaultMaxRetries          = 1
	defaultRetryDelayMillis    = 250

	defaultReasoningBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultReasoningModel          = "google/gemini-3-flash-preview"
	defaultReasoningTimeoutSeconds = 60

	defaultQueueWorkers            = 2
	defaultQueuePollInterval       = 2
	defaultQueueErrorRetryInterval = 10
	defaultQueueLeaseSeconds       = 300

	defaultSchedulerMaxInline = 4

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			ArtifactDir: defaultArtifactDir,
			LogDir:      defaultLogDir,
		},
		Analysis: Analysis{
			MaxQueryChars:       defaultMaxQueryChars,
			MaxDocumentBytes:    defaultMaxDocumentBytes,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			MaxRetries:          defaultMaxRetries,
			RetryDelayMillis:    defaultRetryDelayMillis,
			StopOnFirstFailure:  false,
		},
		Reasoning: Reasoning{
			Enabled:        true,
			BaseURL:        defaultReasoningBaseURL,
			Model:          defaultReasoningModel,
			TimeoutSeconds: defaultReasoningTimeoutSeconds,
		},
		Queue: Queue{
			Workers:            defaultQueueWorkers,
			PollInterval:       defaultQueuePollInterval,
			ErrorRetryInterval: defaultQueueErrorRetryInterval,
			LeaseSeconds:       defaultQueueLeaseSeconds,
		},
		Scheduler: Scheduler{
			MaxInline: defaultSchedulerMaxInline,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
