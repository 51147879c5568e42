package model

import "time"

type RiskLevel string

const (
	RiskSafe       RiskLevel = "safe"
	RiskCaution    RiskLevel = "caution"
	RiskDoNotTouch RiskLevel = "do-not-touch"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskSafe, RiskCaution, RiskDoNotTouch:
		return true
	}
	return false
}

type TargetKind string

const (
	KindTemp      TargetKind = "temp"
	KindToolCache TargetKind = "tool-cache"
	KindCustom    TargetKind = "custom"
)

// RawTarget is what a discovery source yields, before analysis.
type RawTarget struct {
	ID          string     `json:"id"`
	Kind        TargetKind `json:"kind"`
	Path        string     `json:"path"`
	DisplayName string     `json:"displayName"`
	Diagnostics []string   `json:"diagnostics,omitempty"`
}

// ScanMetrics invariants: Skipped implies zero counters and nil timestamps;
// Partial implies !Skipped and SkippedEntries > 0.
type ScanMetrics struct {
	TotalBytes     uint64     `json:"totalBytes"`
	FileCount      uint64     `json:"fileCount"`
	LastModifiedAt *time.Time `json:"lastModifiedAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"`
	Skipped        bool       `json:"skipped"`
	Partial        bool       `json:"partial"`
	SkippedEntries uint32     `json:"skippedEntries"`
	Error          string     `json:"error,omitempty"`
}

type FilesystemUsage struct {
	Mountpoint string `json:"mountpoint,omitempty"`
	FreeBytes  uint64 `json:"freeBytes"`
	TotalBytes uint64 `json:"totalBytes"`
}

type ScanTarget struct {
	ID          string           `json:"id"`
	Kind        TargetKind       `json:"kind"`
	Path        string           `json:"path"`
	DisplayName string           `json:"displayName"`
	Exists      bool             `json:"exists"`
	Metrics     ScanMetrics      `json:"metrics"`
	Filesystem  *FilesystemUsage `json:"filesystem,omitempty"`
	Diagnostics []string         `json:"diagnostics,omitempty"`
}

type Rule struct {
	ID            string    `json:"id"`
	Risk          RiskLevel `json:"risk"`
	SafeAfterDays uint      `json:"safeAfterDays"`
	Description   string    `json:"description"`
	Paths         []string  `json:"paths,omitempty"`
}

type RuleDefaults struct {
	Risk          RiskLevel `json:"risk"`
	SafeAfterDays uint      `json:"safeAfterDays"`
}

type RuleConfig struct {
	Rules    []Rule       `json:"rules"`
	Defaults RuleDefaults `json:"defaults"`
}

type Decision struct {
	Risk          RiskLevel `json:"risk"`
	SafeAfterDays uint      `json:"safeAfterDays"`
	Reasons       []string  `json:"reasons"`
}

type PlanStatus string

const (
	StatusEligible PlanStatus = "eligible"
	StatusCaution  PlanStatus = "caution"
	StatusBlocked  PlanStatus = "blocked"
)

type CleanPlanItem struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"displayName"`
	Path           string     `json:"path"`
	Exists         bool       `json:"exists"`
	Risk           RiskLevel  `json:"risk"`
	SafeAfterDays  uint       `json:"safeAfterDays"`
	Status         PlanStatus `json:"status"`
	EstimatedBytes uint64     `json:"estimatedBytes"`
	Reasons        []string   `json:"reasons"`
}

type PlanSummary struct {
	Eligible       int    `json:"eligible"`
	Caution        int    `json:"caution"`
	Blocked        int    `json:"blocked"`
	EstimatedBytes uint64 `json:"estimatedBytes"`
}

type Plan struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	DryRun      bool            `json:"dryRun"`
	Apply       bool            `json:"apply"`
	Items       []CleanPlanItem `json:"items"`
	Summary     PlanSummary     `json:"summary"`
}

type ApplyStatus string

const (
	ApplyTrashed ApplyStatus = "trashed"
	ApplySkipped ApplyStatus = "skipped"
	ApplyFailed  ApplyStatus = "failed"
)

type ApplyResult struct {
	ID     string      `json:"id"`
	Path   string      `json:"path"`
	Status ApplyStatus `json:"status"`
	Bytes  uint64      `json:"bytes"`
	Reason string      `json:"reason,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type ApplySummary struct {
	Trashed      int    `json:"trashed"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	TrashedBytes uint64 `json:"trashedBytes"`
}

const RunLogVersion = 1

type RunLog struct {
	Version      int            `json:"version"`
	Timestamp    time.Time      `json:"timestamp"`
	Command      string         `json:"command"`
	DryRun       bool           `json:"dryRun"`
	Apply        *bool          `json:"apply,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Targets      []ScanTarget   `json:"targets,omitempty"`
	Plan         *Plan          `json:"plan,omitempty"`
	ApplyResults []ApplyResult  `json:"applyResults,omitempty"`
	ApplySummary *ApplySummary  `json:"applySummary,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

type LatestRunPointer struct {
	UpdatedAt time.Time `json:"updatedAt"`
	LogFile   string    `json:"logFile"`
}
