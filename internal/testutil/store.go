// Package testutil provides an in-memory implementation of the repository
// interfaces for service and ordering tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

// Store holds every table in memory. The typed views returned by Users,
// Projects, Issues and Comments share it.
type Store struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[uuid.UUID]model.User
	projects map[uuid.UUID]model.Project
	members  map[uuid.UUID]map[uuid.UUID]time.Time
	issues   map[uuid.UUID]model.Issue
	comments map[uuid.UUID]model.Comment

	// FailShift, when set, is returned by ShiftOrders once FailShiftAfter
	// earlier calls have succeeded.
	FailShift      error
	FailShiftAfter int
	// FailMembers, when set, is returned by ReplaceMembers.
	FailMembers error
}

func NewStore() *Store {
	return &Store{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    make(map[uuid.UUID]model.User),
		projects: make(map[uuid.UUID]model.Project),
		members:  make(map[uuid.UUID]map[uuid.UUID]time.Time),
		issues:   make(map[uuid.UUID]model.Issue),
		comments: make(map[uuid.UUID]model.Comment),
	}
}

func (s *Store) Users() *UserStore       { return &UserStore{s: s} }
func (s *Store) Projects() *ProjectStore { return &ProjectStore{s: s} }
func (s *Store) Issues() *IssueStore     { return &IssueStore{s: s} }
func (s *Store) Comments() *CommentStore { return &CommentStore{s: s} }

// tick returns a strictly increasing timestamp so recency sorts are stable.
// Callers hold s.mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// Column returns the issues of one column sorted by order.
func (s *Store) Column(projectID uuid.UUID, status model.IssueStatus) []model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var col []model.Issue
	for _, is := range s.issues {
		if is.ProjectID == projectID && is.Status == status {
			col = append(col, is)
		}
	}
	sort.Slice(col, func(i, j int) bool { return col[i].Order < col[j].Order })
	return col
}

// Issue returns the stored row without preloads.
func (s *Store) Issue(id uuid.UUID) (model.Issue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	is, ok := s.issues[id]
	return is, ok
}

func (s *Store) Comment(id uuid.UUID) (model.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	return c, ok
}

func (s *Store) IsListedMember(projectID, userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[projectID][userID]
	return ok
}

// SeedUser stores a user with the given name and a derived email.
func (s *Store) SeedUser(name string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	u := model.User{
		ID:             uuid.New(),
		Email:          strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		HashedPassword: "hashed",
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[u.ID] = u
	return u
}

// SeedProject stores a project owned by owner with members listed explicitly.
// The owner is not added to the member set.
func (s *Store) SeedProject(name string, owner uuid.UUID, members ...uuid.UUID) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	p := model.Project{
		ID:        uuid.New(),
		Name:      name,
		Status:    model.ProjectPlanning,
		Priority:  model.PriorityMedium,
		CreatedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.projects[p.ID] = p
	s.members[p.ID] = make(map[uuid.UUID]time.Time)
	for _, m := range members {
		s.members[p.ID][m] = now
	}
	return p
}

// SeedIssue stores an issue at an explicit position, bypassing the ordering engine.
func (s *Store) SeedIssue(title string, projectID, creator uuid.UUID, status model.IssueStatus, order int) model.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	is := model.Issue{
		ID:        uuid.New(),
		Title:     title,
		Type:      model.TypeBug,
		Status:    status,
		Priority:  model.PriorityMedium,
		ProjectID: projectID,
		CreatedBy: creator,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.issues[is.ID] = is
	return is
}

func (s *Store) SeedComment(issueID, author uuid.UUID, parent *uuid.UUID, content string) model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	c := model.Comment{
		ID:        uuid.New(),
		Content:   content,
		IssueID:   issueID,
		AuthorID:  author,
		ParentID:  parent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.comments[c.ID] = c
	return c
}

// UserStore implements repository.UserStore.
type UserStore struct{ s *Store }

var _ repository.UserStore = (*UserStore)(nil)

func (r *UserStore) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.tick()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if strings.ToLower(u.Email) == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserStore) FindByResetToken(_ context.Context, token string, now time.Time) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserStore) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Name = user.Name
	u.HashedPassword = user.HashedPassword
	u.ResetToken = user.ResetToken
	u.ResetTokenExpiry = user.ResetTokenExpiry
	u.UpdatedAt = r.s.tick()
	r.s.users[u.ID] = u
	return nil
}

func (r *UserStore) List(_ context.Context) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (r *UserStore) Search(ctx context.Context, query string, limit int) ([]model.User, error) {
	all, _ := r.List(ctx)
	q := strings.ToLower(strings.TrimSpace(query))
	var users []model.User
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q) {
			users = append(users, u)
			if limit > 0 && len(users) == limit {
				break
			}
		}
	}
	return users, nil
}

// ProjectStore implements repository.ProjectStore.
type ProjectStore struct{ s *Store }

var _ repository.ProjectStore = (*ProjectStore)(nil)

// WithTx snapshots projects and memberships and restores them when fn fails.
func (r *ProjectStore) WithTx(_ context.Context, fn func(tx repository.ProjectStore) error) error {
	r.s.mu.Lock()
	projects := make(map[uuid.UUID]model.Project, len(r.s.projects))
	for id, p := range r.s.projects {
		projects[id] = p
	}
	members := make(map[uuid.UUID]map[uuid.UUID]time.Time, len(r.s.members))
	for id, set := range r.s.members {
		copied := make(map[uuid.UUID]time.Time, len(set))
		for uid, at := range set {
			copied[uid] = at
		}
		members[id] = copied
	}
	r.s.mu.Unlock()

	if err := fn(r); err != nil {
		r.s.mu.Lock()
		r.s.projects, r.s.members = projects, members
		r.s.mu.Unlock()
		return err
	}
	return nil
}

func (r *ProjectStore) Create(_ context.Context, project *model.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	now := r.s.tick()
	project.CreatedAt, project.UpdatedAt = now, now
	stored := *project
	stored.Members = nil
	r.s.projects[project.ID] = stored
	r.s.members[project.ID] = make(map[uuid.UUID]time.Time)
	for _, id := range project.MemberIDs() {
		r.s.members[project.ID][id] = now
	}
	return nil
}

func (r *ProjectStore) GetByID(_ context.Context, id uuid.UUID) (*model.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	r.s.preloadProject(&p)
	return &p, nil
}

func (r *ProjectStore) ListForUser(_ context.Context, userID uuid.UUID) ([]model.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var projects []model.Project
	for id, p := range r.s.projects {
		if _, member := r.s.members[id][userID]; p.CreatedBy == userID || member {
			r.s.preloadProject(&p)
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].UpdatedAt.After(projects[j].UpdatedAt) })
	return projects, nil
}

func (r *ProjectStore) IDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	projects, _ := r.ListForUser(ctx, userID)
	ids := []uuid.UUID{}
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *ProjectStore) Update(_ context.Context, project *model.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[project.ID]
	if !ok {
		return repository.ErrProjectNotFound
	}
	p.Name = project.Name
	p.Description = project.Description
	p.Status = project.Status
	p.Priority = project.Priority
	p.StartDate = project.StartDate
	p.EndDate = project.EndDate
	p.LeadID = project.LeadID
	p.UpdatedAt = r.s.tick()
	r.s.projects[p.ID] = p
	return nil
}

func (r *ProjectStore) ReplaceMembers(_ context.Context, projectID uuid.UUID, memberIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailMembers != nil {
		return r.s.FailMembers
	}
	p, ok := r.s.projects[projectID]
	if !ok {
		return repository.ErrProjectNotFound
	}
	now := r.s.tick()
	set := make(map[uuid.UUID]time.Time, len(memberIDs))
	for _, id := range memberIDs {
		set[id] = now
	}
	r.s.members[projectID] = set
	p.UpdatedAt = now
	r.s.projects[projectID] = p
	return nil
}

func (r *ProjectStore) AddMember(_ context.Context, projectID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[projectID]
	if !ok {
		return repository.ErrProjectNotFound
	}
	if _, exists := r.s.members[projectID][userID]; exists {
		return repository.ErrAlreadyMember
	}
	now := r.s.tick()
	r.s.members[projectID][userID] = now
	p.UpdatedAt = now
	r.s.projects[projectID] = p
	return nil
}

func (r *ProjectStore) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return repository.ErrProjectNotFound
	}
	for issueID, is := range r.s.issues {
		if is.ProjectID != id {
			continue
		}
		for cid, c := range r.s.comments {
			if c.IssueID == issueID {
				delete(r.s.comments, cid)
			}
		}
		delete(r.s.issues, issueID)
	}
	delete(r.s.members, id)
	delete(r.s.projects, id)
	return nil
}

// preloadProject fills the associations gorm would preload. Callers hold s.mu.
func (s *Store) preloadProject(p *model.Project) {
	p.Creator = s.users[p.CreatedBy]
	if p.LeadID != nil {
		if lead, ok := s.users[*p.LeadID]; ok {
			p.Lead = &lead
		}
	}
	p.Members = nil
	for id := range s.members[p.ID] {
		if u, ok := s.users[id]; ok {
			p.Members = append(p.Members, u)
		} else {
			p.Members = append(p.Members, model.User{ID: id})
		}
	}
	sort.Slice(p.Members, func(i, j int) bool { return p.Members[i].Name < p.Members[j].Name })
}

// IssueStore implements repository.IssueStore.
type IssueStore struct{ s *Store }

var _ repository.IssueStore = (*IssueStore)(nil)

// WithTx snapshots issues and restores them when fn fails.
func (r *IssueStore) WithTx(_ context.Context, fn func(tx repository.IssueStore) error) error {
	r.s.mu.Lock()
	snapshot := make(map[uuid.UUID]model.Issue, len(r.s.issues))
	for id, is := range r.s.issues {
		snapshot[id] = is
	}
	r.s.mu.Unlock()

	if err := fn(r); err != nil {
		r.s.mu.Lock()
		r.s.issues = snapshot
		r.s.mu.Unlock()
		return err
	}
	return nil
}

func (r *IssueStore) Create(_ context.Context, issue *model.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
	}
	now := r.s.tick()
	issue.CreatedAt, issue.UpdatedAt = now, now
	stored := *issue
	stored.Project, stored.Creator, stored.Assignee = model.Project{}, model.User{}, nil
	r.s.issues[issue.ID] = stored
	return nil
}

func (r *IssueStore) GetByID(_ context.Context, id uuid.UUID) (*model.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	is, ok := r.s.issues[id]
	if !ok {
		return nil, repository.ErrIssueNotFound
	}
	r.s.preloadIssue(&is)
	return &is, nil
}

func (r *IssueStore) LockByID(_ context.Context, id uuid.UUID) (*model.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	is, ok := r.s.issues[id]
	if !ok {
		return nil, repository.ErrIssueNotFound
	}
	return &is, nil
}

func (r *IssueStore) Update(_ context.Context, issue *model.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	is, ok := r.s.issues[issue.ID]
	if !ok {
		return repository.ErrIssueNotFound
	}
	is.Title = issue.Title
	is.Description = issue.Description
	is.Type = issue.Type
	is.Priority = issue.Priority
	is.AssigneeID = issue.AssigneeID
	is.DueDate = issue.DueDate
	is.UpdatedAt = r.s.tick()
	r.s.issues[is.ID] = is
	return nil
}

func (r *IssueStore) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.issues[id]; !ok {
		return repository.ErrIssueNotFound
	}
	for cid, c := range r.s.comments {
		if c.IssueID == id {
			delete(r.s.comments, cid)
		}
	}
	delete(r.s.issues, id)
	return nil
}

func (r *IssueStore) List(_ context.Context, filter repository.IssueFilter) ([]model.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issues := r.s.filterIssues(filter)
	sortIssues(issues, filter.Sort)
	if filter.Offset > 0 {
		if filter.Offset >= len(issues) {
			return []model.Issue{}, nil
		}
		issues = issues[filter.Offset:]
	}
	if filter.Limit > 0 && len(issues) > filter.Limit {
		issues = issues[:filter.Limit]
	}
	for i := range issues {
		r.s.preloadIssue(&issues[i])
	}
	return issues, nil
}

func (r *IssueStore) Count(_ context.Context, filter repository.IssueFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.filterIssues(filter))), nil
}

func (r *IssueStore) MaxOrder(_ context.Context, projectID uuid.UUID, status model.IssueStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	highest := -1
	for _, is := range r.s.issues {
		if is.ProjectID == projectID && is.Status == status && is.Order > highest {
			highest = is.Order
		}
	}
	return highest, nil
}

func (r *IssueStore) ShiftOrders(_ context.Context, shift repository.OrderShift) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.FailShift; err != nil {
		if r.s.FailShiftAfter == 0 {
			r.s.FailShift = nil
			return 0, err
		}
		r.s.FailShiftAfter--
	}
	var n int64
	for id, is := range r.s.issues {
		if is.ProjectID != shift.ProjectID || is.Status != shift.Status {
			continue
		}
		if is.Order < shift.From || (shift.To >= 0 && is.Order > shift.To) {
			continue
		}
		is.Order += shift.Delta
		r.s.issues[id] = is
		n++
	}
	return n, nil
}

func (r *IssueStore) SetPosition(_ context.Context, id uuid.UUID, status model.IssueStatus, order int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	is, ok := r.s.issues[id]
	if !ok {
		return repository.ErrIssueNotFound
	}
	is.Status = status
	is.Order = order
	is.UpdatedAt = r.s.tick()
	r.s.issues[id] = is
	return nil
}

// filterIssues applies every IssueFilter constraint. Callers hold s.mu.
func (s *Store) filterIssues(f repository.IssueFilter) []model.Issue {
	var allowed map[uuid.UUID]bool
	if f.ProjectIDs != nil {
		allowed = make(map[uuid.UUID]bool, len(f.ProjectIDs))
		for _, id := range f.ProjectIDs {
			allowed[id] = true
		}
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	issues := []model.Issue{}
	for _, is := range s.issues {
		switch {
		case f.ProjectID != nil && is.ProjectID != *f.ProjectID,
			allowed != nil && !allowed[is.ProjectID],
			f.Status != nil && is.Status != *f.Status,
			f.Priority != nil && is.Priority != *f.Priority,
			f.Type != nil && is.Type != *f.Type,
			f.Unassigned && is.AssigneeID != nil,
			!f.Unassigned && f.AssigneeID != nil && (is.AssigneeID == nil || *is.AssigneeID != *f.AssigneeID),
			f.CreatedBy != nil && is.CreatedBy != *f.CreatedBy:
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(is.Title), search) &&
			!strings.Contains(strings.ToLower(is.Description), search) {
			continue
		}
		issues = append(issues, is)
	}
	return issues
}

func sortIssues(issues []model.Issue, fields []repository.SortField) {
	sort.SliceStable(issues, func(i, j int) bool {
		for _, f := range fields {
			c := compareIssues(&issues[i], &issues[j], f.Field)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareIssues(a, b *model.Issue, field string) int {
	switch field {
	case repository.SortByOrder:
		return a.Order - b.Order
	case repository.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case repository.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case repository.SortByPriority:
		return strings.Compare(string(a.Priority), string(b.Priority))
	case repository.SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case repository.SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case repository.SortByDueDate:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	}
	return 0
}

// preloadIssue fills the associations gorm would preload. Callers hold s.mu.
func (s *Store) preloadIssue(is *model.Issue) {
	is.Creator = s.users[is.CreatedBy]
	is.Assignee = nil
	if is.AssigneeID != nil {
		if u, ok := s.users[*is.AssigneeID]; ok {
			is.Assignee = &u
		}
	}
	is.Project = s.projects[is.ProjectID]
}

// CommentStore implements repository.CommentStore.
type CommentStore struct{ s *Store }

var _ repository.CommentStore = (*CommentStore)(nil)

func (r *CommentStore) Create(_ context.Context, comment *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	now := r.s.tick()
	comment.CreatedAt, comment.UpdatedAt = now, now
	stored := *comment
	stored.Author = model.User{}
	r.s.comments[comment.ID] = stored
	return nil
}

func (r *CommentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, repository.ErrCommentNotFound
	}
	c.Author = r.s.users[c.AuthorID]
	return &c, nil
}

func (r *CommentStore) ListByIssue(_ context.Context, issueID uuid.UUID) ([]model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comments := []model.Comment{}
	for _, c := range r.s.comments {
		if c.IssueID == issueID {
			c.Author = r.s.users[c.AuthorID]
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (r *CommentStore) DeleteWithReplies(_ context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for cid, c := range r.s.comments {
		if cid == id || (c.ParentID != nil && *c.ParentID == id) {
			delete(r.s.comments, cid)
			n++
		}
	}
	return n, nil
}
