package constants

// LogStatus is the outcome recorded for one document in a processing log.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
)

// Stage names the pipeline step a failure came from.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageStructure Stage = "structure"
	StageEstimate  Stage = "estimate"
	StageValidate  Stage = "validate"
	StageNormalize Stage = "normalize"
	StageStore     Stage = "store"
)

// SourceType describes how a document entered the system.
const (
	SourceBatchImport = "batch_import"
	SourceUpload      = "upload"
)
