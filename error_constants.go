package bulktransition

// Stage names the collaborator call an InvocationError came from.
type Stage string

const (
	StageCapacity    Stage = "capacity"
	StageFetch       Stage = "fetch"
	StageRecordUsage Stage = "record_usage"
	StageDecode      Stage = "decode"
)

const (
	statusComplete = "bulk transition: processing complete"

	errorMessageNoCapacity = "bulk transition: no capacity available"
	errorMessageNilProcess = "bulk transition: nil process function"
)
