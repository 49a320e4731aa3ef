// Package storetest provides an in-memory store.Store for service and
// handler tests. InTx snapshots the state and restores it when fn fails,
// mirroring the rollback behavior of the real transaction.
package storetest

import (
	"context"
	"sort"
	"time"

	"planboard/models"
	"planboard/store"
)

type Store struct {
	MembersByID     map[uint]models.TeamMember
	ProjectsByID    map[uint]models.Project
	PhasesByID      map[uint]models.Phase
	TasksByID       map[uint]models.Task
	AssignmentsByID map[uint]models.Assignment
	AuditLog        []models.AuditLogEntry

	nextAssignmentID uint
	nextAuditID      uint

	// AuditAppendErr, when set, makes every audit append fail.
	AuditAppendErr error
}

func New() *Store {
	return &Store{
		MembersByID:      make(map[uint]models.TeamMember),
		ProjectsByID:     make(map[uint]models.Project),
		PhasesByID:       make(map[uint]models.Phase),
		TasksByID:        make(map[uint]models.Task),
		AssignmentsByID:  make(map[uint]models.Assignment),
		nextAssignmentID: 1,
		nextAuditID:      1,
	}
}

func (s *Store) AddMember(m models.TeamMember) *Store {
	s.MembersByID[m.ID] = m
	return s
}

func (s *Store) AddProject(p models.Project) *Store {
	s.ProjectsByID[p.ID] = p
	return s
}

func (s *Store) AddPhase(p models.Phase) *Store {
	s.PhasesByID[p.ID] = p
	return s
}

func (s *Store) AddTask(t models.Task) *Store {
	s.TasksByID[t.ID] = t
	return s
}

func (s *Store) AddAssignment(a models.Assignment) *Store {
	if a.ID == 0 {
		a.ID = s.nextAssignmentID
	}
	if a.ID >= s.nextAssignmentID {
		s.nextAssignmentID = a.ID + 1
	}
	if a.Version == 0 {
		a.Version = 1
	}
	s.AssignmentsByID[a.ID] = a
	return s
}

func (s *Store) Members() store.MemberStore         { return (*memberStore)(s) }
func (s *Store) Projects() store.ProjectStore       { return (*projectStore)(s) }
func (s *Store) Phases() store.PhaseStore           { return (*phaseStore)(s) }
func (s *Store) Tasks() store.TaskStore             { return (*taskStore)(s) }
func (s *Store) Assignments() store.AssignmentStore { return (*assignmentStore)(s) }
func (s *Store) Audit() store.AuditStore            { return (*auditStore)(s) }
func (s *Store) Versions() store.VersionStore       { return (*versionStore)(s) }

func (s *Store) InTx(_ context.Context, fn func(store.Store) error) error {
	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	assignments map[uint]models.Assignment
	phases      map[uint]models.Phase
	audit       []models.AuditLogEntry
	nextAssign  uint
	nextAudit   uint
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		assignments: make(map[uint]models.Assignment, len(s.AssignmentsByID)),
		phases:      make(map[uint]models.Phase, len(s.PhasesByID)),
		audit:       append([]models.AuditLogEntry(nil), s.AuditLog...),
		nextAssign:  s.nextAssignmentID,
		nextAudit:   s.nextAuditID,
	}
	for id, a := range s.AssignmentsByID {
		snap.assignments[id] = a
	}
	for id, p := range s.PhasesByID {
		snap.phases[id] = p
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.AssignmentsByID = snap.assignments
	s.PhasesByID = snap.phases
	s.AuditLog = snap.audit
	s.nextAssignmentID = snap.nextAssign
	s.nextAuditID = snap.nextAudit
}

type memberStore Store

func (s *memberStore) Get(_ context.Context, id uint) (*models.TeamMember, error) {
	m, ok := s.MembersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *memberStore) GetByEmail(_ context.Context, email string) (*models.TeamMember, error) {
	for _, m := range s.MembersByID {
		if m.Email == email {
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memberStore) List(_ context.Context) ([]models.TeamMember, error) {
	members := make([]models.TeamMember, 0, len(s.MembersByID))
	for _, m := range s.MembersByID {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

type projectStore Store

func (s *projectStore) Get(_ context.Context, id uint) (*models.Project, error) {
	p, ok := s.ProjectsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *projectStore) ListForTimeline(_ context.Context, projectID *uint) ([]models.Project, error) {
	var projects []models.Project
	for _, p := range s.ProjectsByID {
		if projectID != nil && p.ID != *projectID {
			continue
		}
		p.Phases = (*Store)(s).phasesOf(p.ID)
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].StartDate.Before(projects[j].StartDate)
	})
	return projects, nil
}

func (s *projectStore) ListStartingBefore(_ context.Context, cutoff time.Time) ([]models.Project, error) {
	var projects []models.Project
	for _, p := range s.ProjectsByID {
		if p.StartDate.Before(cutoff) {
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].StartDate.Before(projects[j].StartDate)
	})
	return projects, nil
}

func (s *Store) phasesOf(projectID uint) []models.Phase {
	var phases []models.Phase
	for _, p := range s.PhasesByID {
		if p.ProjectID != projectID {
			continue
		}
		for _, t := range s.TasksByID {
			if t.PhaseID == p.ID {
				p.Tasks = append(p.Tasks, t)
			}
		}
		for _, a := range s.AssignmentsByID {
			if a.PhaseID == p.ID {
				if m, ok := s.MembersByID[a.TeamMemberID]; ok {
					a.TeamMember = &m
				}
				p.Assignments = append(p.Assignments, a)
			}
		}
		sort.Slice(p.Assignments, func(i, j int) bool { return p.Assignments[i].ID < p.Assignments[j].ID })
		phases = append(phases, p)
	}
	sort.Slice(phases, func(i, j int) bool {
		return phases[i].StartDate.Before(phases[j].StartDate)
	})
	return phases
}

type phaseStore Store

func (s *phaseStore) Get(_ context.Context, id uint) (*models.Phase, error) {
	p, ok := s.PhasesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *phaseStore) ListByProject(_ context.Context, projectID uint) ([]models.Phase, error) {
	var phases []models.Phase
	for _, p := range s.PhasesByID {
		if p.ProjectID == projectID {
			phases = append(phases, p)
		}
	}
	sort.Slice(phases, func(i, j int) bool {
		return phases[i].StartDate.Before(phases[j].StartDate)
	})
	return phases, nil
}

func (s *phaseStore) ListStartingBefore(_ context.Context, cutoff time.Time) ([]models.Phase, error) {
	var phases []models.Phase
	for _, p := range s.PhasesByID {
		if p.StartDate.Before(cutoff) {
			phases = append(phases, p)
		}
	}
	sort.Slice(phases, func(i, j int) bool {
		return phases[i].StartDate.Before(phases[j].StartDate)
	})
	return phases, nil
}

func (s *phaseStore) SetStatus(_ context.Context, id uint, status models.PhaseStatus) error {
	p, ok := s.PhasesByID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	s.PhasesByID[id] = p
	return nil
}

type taskStore Store

func (s *taskStore) Get(_ context.Context, id uint) (*models.Task, error) {
	t, ok := s.TasksByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *taskStore) ListStartingBefore(_ context.Context, cutoff time.Time) ([]models.Task, error) {
	var tasks []models.Task
	for _, t := range s.TasksByID {
		if t.StartDate != nil && t.StartDate.Before(cutoff) {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartDate.Before(*tasks[j].StartDate)
	})
	return tasks, nil
}

type assignmentStore Store

func (s *assignmentStore) Create(_ context.Context, a *models.Assignment) error {
	for _, existing := range s.AssignmentsByID {
		if existing.PhaseID == a.PhaseID && existing.TeamMemberID == a.TeamMemberID && existing.Role == a.Role {
			return store.ErrDuplicate
		}
	}
	a.ID = s.nextAssignmentID
	s.nextAssignmentID++
	if a.Version == 0 {
		a.Version = 1
	}
	s.AssignmentsByID[a.ID] = *a
	return nil
}

func (s *assignmentStore) Get(_ context.Context, id uint) (*models.Assignment, error) {
	a, ok := s.AssignmentsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *assignmentStore) GetDetailed(ctx context.Context, id uint) (*models.Assignment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if phase, ok := s.PhasesByID[a.PhaseID]; ok {
		if project, ok := s.ProjectsByID[phase.ProjectID]; ok {
			phase.Project = &project
		}
		a.Phase = &phase
	}
	if m, ok := s.MembersByID[a.TeamMemberID]; ok {
		a.TeamMember = &m
	}
	return a, nil
}

func (s *assignmentStore) ListByMember(_ context.Context, memberID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	for _, a := range s.AssignmentsByID {
		if a.TeamMemberID == memberID {
			assignments = append(assignments, a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (s *assignmentStore) ListByPhase(_ context.Context, phaseID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	for _, a := range s.AssignmentsByID {
		if a.PhaseID == phaseID {
			assignments = append(assignments, a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (s *assignmentStore) ListByProject(_ context.Context, projectID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	for _, a := range s.AssignmentsByID {
		phase, ok := s.PhasesByID[a.PhaseID]
		if ok && phase.ProjectID == projectID {
			assignments = append(assignments, a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (s *assignmentStore) LockForMember(context.Context, uint) error { return nil }

func (s *assignmentStore) UpdateVersioned(_ context.Context, id uint, version int, fields map[string]any) (int64, error) {
	a, ok := s.AssignmentsByID[id]
	if !ok || a.Version != version {
		return 0, nil
	}
	for k, v := range fields {
		switch k {
		case "role":
			a.Role = v.(string)
		case "working_percentage":
			a.WorkingPercentage = v.(int)
		case "start_date":
			a.StartDate = v.(time.Time)
		case "end_date":
			if v == nil {
				a.EndDate = nil
			} else {
				a.EndDate = v.(*time.Time)
			}
		}
	}
	a.Version++
	s.AssignmentsByID[id] = a
	return 1, nil
}

func (s *assignmentStore) Delete(_ context.Context, id uint) (int64, error) {
	if _, ok := s.AssignmentsByID[id]; !ok {
		return 0, nil
	}
	delete(s.AssignmentsByID, id)
	return 1, nil
}

func (s *assignmentStore) DeleteVersioned(_ context.Context, id uint, version int) (int64, error) {
	a, ok := s.AssignmentsByID[id]
	if !ok || a.Version != version {
		return 0, nil
	}
	delete(s.AssignmentsByID, id)
	return 1, nil
}

type auditStore Store

func (s *auditStore) Append(_ context.Context, entry *models.AuditLogEntry) error {
	if s.AuditAppendErr != nil {
		return s.AuditAppendErr
	}
	entry.ID = s.nextAuditID
	s.nextAuditID++
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.AuditLog = append(s.AuditLog, *entry)
	return nil
}

func (s *auditStore) ListByEntity(_ context.Context, entityType string, entityID uint, limit int) ([]models.AuditLogEntry, error) {
	return filterAudit(s.AuditLog, limit, func(e models.AuditLogEntry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	}), nil
}

func (s *auditStore) ListByActor(_ context.Context, actorID uint, limit int) ([]models.AuditLogEntry, error) {
	return filterAudit(s.AuditLog, limit, func(e models.AuditLogEntry) bool {
		return e.ActorID == actorID
	}), nil
}

func (s *auditStore) Recent(_ context.Context, limit int) ([]models.AuditLogEntry, error) {
	return filterAudit(s.AuditLog, limit, func(models.AuditLogEntry) bool { return true }), nil
}

// filterAudit returns matching entries newest first, mirroring the
// created_at desc ordering of the real store.
func filterAudit(log []models.AuditLogEntry, limit int, match func(models.AuditLogEntry) bool) []models.AuditLogEntry {
	var entries []models.AuditLogEntry
	for i := len(log) - 1; i >= 0; i-- {
		if match(log[i]) {
			entries = append(entries, log[i])
			if limit > 0 && len(entries) == limit {
				break
			}
		}
	}
	return entries
}

type versionStore Store

func (s *versionStore) Load(_ context.Context, kind store.Kind, id uint) (int, bool, error) {
	switch kind {
	case store.KindProject:
		if p, ok := s.ProjectsByID[id]; ok {
			return p.Version, true, nil
		}
	case store.KindPhase:
		if p, ok := s.PhasesByID[id]; ok {
			return p.Version, true, nil
		}
	case store.KindTask:
		if t, ok := s.TasksByID[id]; ok {
			return t.Version, true, nil
		}
	case store.KindAssignment:
		if a, ok := s.AssignmentsByID[id]; ok {
			return a.Version, true, nil
		}
	}
	return 0, false, nil
}

func (s *versionStore) CompareAndIncrement(_ context.Context, kind store.Kind, id uint, version int) (bool, error) {
	switch kind {
	case store.KindProject:
		if p, ok := s.ProjectsByID[id]; ok && p.Version == version {
			p.Version++
			s.ProjectsByID[id] = p
			return true, nil
		}
	case store.KindPhase:
		if p, ok := s.PhasesByID[id]; ok && p.Version == version {
			p.Version++
			s.PhasesByID[id] = p
			return true, nil
		}
	case store.KindTask:
		if t, ok := s.TasksByID[id]; ok && t.Version == version {
			t.Version++
			s.TasksByID[id] = t
			return true, nil
		}
	case store.KindAssignment:
		if a, ok := s.AssignmentsByID[id]; ok && a.Version == version {
			a.Version++
			s.AssignmentsByID[id] = a
			return true, nil
		}
	}
	return false, nil
}
