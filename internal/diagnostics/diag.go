package diagnostics

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes emitted by the timeline and playback layers.
const (
	CodeUnknownTimeline = "TIMELINE.UNKNOWN_ID"
	CodeDanglingTarget  = "TIMELINE.DANGLING_TARGET"
	CodeEmptyTimeline   = "TIMELINE.EMPTY"
	CodeUnknownEvent    = "TIMELINE.UNKNOWN_EVENT"
	CodeSessionStarted  = "SESSION.STARTED"
	CodeSessionFinished = "SESSION.FINISHED"
	CodeSceneSwitched   = "SESSION.SCENE"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics as they are produced. A nil Sink drops them.
type Sink func(Diagnostic)

// Emit forwards d to s if s is set.
func (s Sink) Emit(d Diagnostic) {
	if s != nil {
		s(d)
	}
}
