package point

// Stage is one phase of a call's instrumentation lifecycle.
type Stage int

const (
	StageInit Stage = iota
	StagePre
	StagePost
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StagePre:
		return "pre"
	case StagePost:
		return "post"
	default:
		return "unknown"
	}
}
