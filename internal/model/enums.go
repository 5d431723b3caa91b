package model

import "strings"

type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in-progress"
	StatusDone       IssueStatus = "done"
)

// legacyInProgress is the underscore spelling some clients still send.
const legacyInProgress = "in_progress"

var IssueStatuses = []IssueStatus{StatusOpen, StatusInProgress, StatusDone}

// ParseIssueStatus normalises s to a known status. The legacy "in_progress"
// spelling maps to StatusInProgress.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == legacyInProgress {
		return StatusInProgress, true
	}
	for _, st := range IssueStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type IssueType string

const (
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeTask    IssueType = "task"
)

func ParseIssueType(s string) (IssueType, bool) {
	switch t := IssueType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeBug, TypeFeature, TypeTask:
		return t, true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, true
	}
	return "", false
}

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

func ParseProjectStatus(s string) (ProjectStatus, bool) {
	switch p := ProjectStatus(strings.ToLower(strings.TrimSpace(s))); p {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return p, true
	}
	return "", false
}
