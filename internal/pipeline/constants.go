package pipeline

// Stage names, used in logs and metrics labels.
const (
	StageCollect   = "collect"
	StageResolve   = "resolve"
	StageDownload  = "download"
	StageSummarize = "summarize"
	StageArchive   = "archive"
	StageExport    = "export"
	StageNotify    = "notify"
)
