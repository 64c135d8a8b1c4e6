package probe

// HTTP status code constants.
const (
	StatusOK = 200
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	DefaultScenarios     = 20
)
