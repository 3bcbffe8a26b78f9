package common

// Predictor variant names
const (
	VariantLinear = "linear"
	VariantMargin = "margin"
	VariantSign   = "sign"
)

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvHistoryLength  = "HISTORY_LENGTH"
	EnvVariant        = "PREDICTOR_VARIANT"
	EnvLearningRate   = "LEARNING_RATE"
	EnvLambda         = "LAMBDA"
	EnvBatchSize      = "BATCH_SIZE"
	EnvSeed           = "SEED"
	EnvTracePath      = "TRACE_PATH"
	EnvTraceURL       = "TRACE_URL"
	EnvTraceFormat    = "TRACE_FORMAT"
	EnvDataPath       = "DATA_PATH"
	EnvOutputPath     = "OUTPUT_PATH"
	EnvMetricsPort    = "METRICS_PORT"
	EnvDashboardPort  = "DASHBOARD_PORT"
	EnvRecordEvents   = "RECORD_EVENTS"
	EnvStreamInterval = "STREAM_INTERVAL"
)

// Configuration defaults
const (
	DefaultHistoryLength = 10
	DefaultVariant       = VariantSign
	DefaultLearningRate  = 1e-3 // linear and margin variants
	DefaultSignEta       = 1.0  // classical perceptron rule
	DefaultLambda        = 0.1
	DefaultBatchSize     = 16
	DefaultMetricsPort   = 8080
	DefaultDashboardPort = 8081
	DefaultOutputPath    = "results"

	// DefaultStreamInterval is how often the dashboard samples the predictor.
	DefaultStreamInterval = "1s"
)

// Moving-accuracy recurrence. The table multiplies by the decay on every
// observation and adds the bonus on a hit. This is not a normalized moving
// average and is kept as-is; see the table documentation.
const (
	MovingAccuracyDecay = 0.9
	MovingAccuracyBonus = 0.1
)

// Validation limits
const (
	MaxHistoryLength = 4096
	MaxBatchSize     = 1024
	MinMetricsPort   = 1024
	MaxMetricsPort   = 65535
)

// Common error messages
const (
	ErrMsgHistoryLength  = "history length must be positive"
	ErrMsgUnknownVariant = "unknown predictor variant"
	ErrMsgNoObservations = "no observations recorded for tag"
)
