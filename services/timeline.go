package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"planboard/models"
	"planboard/store"
)

type MemberAllocation struct {
	TeamMemberID    uint   `json:"team_member_id"`
	Name            string `json:"name"`
	TotalPercentage int    `json:"total_percentage"`
}

// ProjectView is one project's slice of the timeline: its phases with tasks
// and assignments nested, plus the cumulative allocation of every team
// member committed to it.
type ProjectView struct {
	Project         models.Project     `json:"project"`
	TeamAllocations []MemberAllocation `json:"team_allocations"`
}

type Timeline struct {
	Projects  []ProjectView     `json:"projects"`
	Conflicts []models.Conflict `json:"conflicts"`
}

type CalendarResourceType string

const (
	ResourceProject CalendarResourceType = "PROJECT"
	ResourcePhase   CalendarResourceType = "PHASE"
	ResourceTask    CalendarResourceType = "TASK"
)

type CalendarEvent struct {
	ID           uint                 `json:"id"`
	Title        string               `json:"title"`
	Start        time.Time            `json:"start"`
	End          time.Time            `json:"end"`
	ResourceType CalendarResourceType `json:"resource_type"`
}

// TimelineConflictDetector builds per-project phase/assignment views and
// detects scheduling conflicts across the filtered scope. Read-only.
type TimelineConflictDetector struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewTimelineConflictDetector(st store.Store, logger *zap.SugaredLogger) *TimelineConflictDetector {
	return &TimelineConflictDetector{store: st, logger: logger}
}

func (d *TimelineConflictDetector) GetTimeline(ctx context.Context, filter models.TimelineFilter) (*Timeline, error) {
	projects, err := d.store.Projects().ListForTimeline(ctx, filter.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load timeline projects: %w", err)
	}
	projects = applyTimelineFilter(projects, filter)

	timeline := &Timeline{Projects: make([]ProjectView, 0, len(projects))}
	for _, project := range projects {
		timeline.Conflicts = append(timeline.Conflicts, phaseOverlaps(project)...)
		timeline.Projects = append(timeline.Projects, ProjectView{
			Project:         project,
			TeamAllocations: projectAllocations(project),
		})
	}
	timeline.Conflicts = append(timeline.Conflicts, resourceOverallocations(projects)...)

	d.logger.Debugw("timeline built",
		"projects", len(timeline.Projects), "conflicts", len(timeline.Conflicts))
	return timeline, nil
}

// applyTimelineFilter narrows the loaded projects to the requested scope:
// a date window keeps only phases intersecting it, and a team member filter
// keeps only that member's assignments and the projects involving them.
func applyTimelineFilter(projects []models.Project, filter models.TimelineFilter) []models.Project {
	filtered := projects[:0]
	for _, project := range projects {
		phases := make([]models.Phase, 0, len(project.Phases))
		for _, phase := range project.Phases {
			if filter.StartDate != nil && !phase.EffectiveEnd().After(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && !phase.StartDate.Before(*filter.EndDate) {
				continue
			}
			if filter.TeamMemberID != nil {
				assignments := make([]models.Assignment, 0, len(phase.Assignments))
				for _, a := range phase.Assignments {
					if a.TeamMemberID == *filter.TeamMemberID {
						assignments = append(assignments, a)
					}
				}
				phase.Assignments = assignments
			}
			phases = append(phases, phase)
		}
		project.Phases = phases

		if filter.TeamMemberID != nil && countAssignments(project) == 0 {
			continue
		}
		if (filter.StartDate != nil || filter.EndDate != nil) && len(project.Phases) == 0 {
			continue
		}
		filtered = append(filtered, project)
	}
	return filtered
}

func countAssignments(project models.Project) int {
	n := 0
	for _, phase := range project.Phases {
		n += len(phase.Assignments)
	}
	return n
}

// phaseOverlaps reports every pair of phases within the project whose date
// ranges strictly overlap. Touching ranges (one ends the day the other
// starts) do not conflict.
func phaseOverlaps(project models.Project) []models.Conflict {
	phases := append([]models.Phase(nil), project.Phases...)
	sort.Slice(phases, func(i, j int) bool {
		return phases[i].StartDate.Before(phases[j].StartDate)
	})

	var conflicts []models.Conflict
	for i := 0; i < len(phases); i++ {
		for j := i + 1; j < len(phases); j++ {
			a, b := phases[i], phases[j]
			if a.StartDate.Before(b.EffectiveEnd()) && a.EffectiveEnd().After(b.StartDate) {
				conflicts = append(conflicts, models.Conflict{
					Type:      models.ConflictPhaseOverlap,
					ProjectID: project.ID,
					PhaseIDs:  []uint{a.ID, b.ID},
					Description: fmt.Sprintf(
						"phase %q (%s to %s) overlaps phase %q (%s to %s) in project %q",
						a.Name, fmtDate(a.StartDate), fmtDate(a.EffectiveEnd()),
						b.Name, fmtDate(b.StartDate), fmtDate(b.EffectiveEnd()),
						project.Name),
				})
			}
		}
	}
	return conflicts
}

// resourceOverallocations accumulates each member's total allocation across
// the filtered projects and emits one conflict per overallocated member.
// The total is date-insensitive, matching AllocationLedger's default scope;
// exactly 100% is never reported.
func resourceOverallocations(projects []models.Project) []models.Conflict {
	totals := map[uint]int{}
	names := map[uint]string{}
	memberProjects := map[uint]map[uint]bool{}

	for _, project := range projects {
		for _, phase := range project.Phases {
			for _, a := range phase.Assignments {
				totals[a.TeamMemberID] += a.WorkingPercentage
				if a.TeamMember != nil {
					names[a.TeamMemberID] = a.TeamMember.Name
				}
				if memberProjects[a.TeamMemberID] == nil {
					memberProjects[a.TeamMemberID] = map[uint]bool{}
				}
				memberProjects[a.TeamMemberID][project.ID] = true
			}
		}
	}

	memberIDs := make([]uint, 0, len(totals))
	for id := range totals {
		memberIDs = append(memberIDs, id)
	}
	sort.Slice(memberIDs, func(i, j int) bool { return memberIDs[i] < memberIDs[j] })

	var conflicts []models.Conflict
	for _, id := range memberIDs {
		if totals[id] <= MaxAllocation {
			continue
		}
		name := names[id]
		if name == "" {
			name = fmt.Sprintf("team member %d", id)
		}
		conflicts = append(conflicts, models.Conflict{
			Type:         models.ConflictResourceOveralloc,
			TeamMemberID: id,
			Description: fmt.Sprintf("%s is allocated at %d%% across %d project(s)",
				name, totals[id], len(memberProjects[id])),
		})
	}
	return conflicts
}

func projectAllocations(project models.Project) []MemberAllocation {
	totals := map[uint]int{}
	names := map[uint]string{}
	for _, phase := range project.Phases {
		for _, a := range phase.Assignments {
			totals[a.TeamMemberID] += a.WorkingPercentage
			if a.TeamMember != nil {
				names[a.TeamMemberID] = a.TeamMember.Name
			}
		}
	}

	allocations := make([]MemberAllocation, 0, len(totals))
	for id, total := range totals {
		allocations = append(allocations, MemberAllocation{
			TeamMemberID:    id,
			Name:            names[id],
			TotalPercentage: total,
		})
	}
	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].TeamMemberID < allocations[j].TeamMemberID
	})
	return allocations
}

// GetCalendarEvents projects every project, phase and task intersecting the
// given month onto a flat event list. No conflict logic runs here.
func (d *TimelineConflictDetector) GetCalendarEvents(ctx context.Context, year, month int) ([]CalendarEvent, error) {
	if month < 1 || month > 12 {
		return nil, &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if year < 2000 || year > 2100 {
		return nil, &ValidationError{Field: "year", Reason: "must be between 2000 and 2100"}
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var events []CalendarEvent

	projects, err := d.store.Projects().ListStartingBefore(ctx, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("load calendar projects: %w", err)
	}
	for _, p := range projects {
		end := p.StartDate
		if p.EndDate != nil {
			end = *p.EndDate
		}
		if end.Before(monthStart) {
			continue
		}
		events = append(events, CalendarEvent{
			ID: p.ID, Title: p.Name, Start: p.StartDate, End: end, ResourceType: ResourceProject,
		})
	}

	phases, err := d.store.Phases().ListStartingBefore(ctx, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("load calendar phases: %w", err)
	}
	for _, p := range phases {
		end := p.EffectiveEnd()
		if end.Before(monthStart) {
			continue
		}
		events = append(events, CalendarEvent{
			ID: p.ID, Title: p.Name, Start: p.StartDate, End: end, ResourceType: ResourcePhase,
		})
	}

	tasks, err := d.store.Tasks().ListStartingBefore(ctx, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("load calendar tasks: %w", err)
	}
	for _, t := range tasks {
		end := *t.StartDate
		if t.EndDate != nil {
			end = *t.EndDate
		}
		if end.Before(monthStart) {
			continue
		}
		events = append(events, CalendarEvent{
			ID: t.ID, Title: t.Name, Start: *t.StartDate, End: end, ResourceType: ResourceTask,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}
