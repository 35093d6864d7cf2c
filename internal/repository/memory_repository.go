package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// ============================================
// In-memory store (for testing/fallback)
// ============================================

// memState mirrors the relational schema, including its unique, foreign key
// and check constraints. Cascades are applied explicitly, children first.
type memState struct {
	users         map[string]User
	refreshTokens map[string]RefreshToken
	workspaces    map[string]Workspace
	members       map[string]WorkspaceMember
	projects      map[string]Project
	tasks         map[string]Task
	comments      map[string]TaskComment
	seq           map[string]int64
	next          int64
}

func newMemState() *memState {
	return &memState{
		users:         map[string]User{},
		refreshTokens: map[string]RefreshToken{},
		workspaces:    map[string]Workspace{},
		members:       map[string]WorkspaceMember{},
		projects:      map[string]Project{},
		tasks:         map[string]Task{},
		comments:      map[string]TaskComment{},
		seq:           map[string]int64{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		users:         cloneMap(s.users),
		refreshTokens: cloneMap(s.refreshTokens),
		workspaces:    cloneMap(s.workspaces),
		members:       cloneMap(s.members),
		projects:      cloneMap(s.projects),
		tasks:         cloneMap(s.tasks),
		comments:      cloneMap(s.comments),
		seq:           cloneMap(s.seq),
		next:          s.next,
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) newID() string {
	id := uuid.NewString()
	s.next++
	s.seq[id] = s.next
	return id
}

func memberKey(workspaceID, userID string) string {
	return workspaceID + "/" + userID
}

type memoryStore struct {
	mu    sync.Mutex
	state *memState
}

// memView is a handle on the store. A held view runs inside a transaction
// that already owns the store lock.
type memView struct {
	store *memoryStore
	held  bool
}

func (v *memView) run(fn func(st *memState) error) error {
	if !v.held {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.state)
}

func (v *memView) withTx(ctx context.Context, fn func(tx *Repositories) error) error {
	if v.held {
		return fn(newMemRepositories(v))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	snapshot := v.store.state.clone()
	committed := false
	defer func() {
		if !committed {
			v.store.state = snapshot
		}
	}()

	if err := fn(newMemRepositories(&memView{store: v.store, held: true})); err != nil {
		return err
	}
	committed = true
	return nil
}

func (v *memView) ping(ctx context.Context) error {
	return ctx.Err()
}

// NewRepositories creates in-memory repositories (for testing/fallback)
func NewRepositories() *Repositories {
	return newMemRepositories(&memView{store: &memoryStore{state: newMemState()}})
}

func newMemRepositories(v *memView) *Repositories {
	return &Repositories{
		UserRepo:      &memUserRepository{v: v},
		WorkspaceRepo: &memWorkspaceRepository{v: v},
		MemberRepo:    &memMemberRepository{v: v},
		ProjectRepo:   &memProjectRepository{v: v},
		TaskRepo:      &memTaskRepository{v: v},
		CommentRepo:   &memCommentRepository{v: v},
		runner:        v,
	}
}

func now() time.Time {
	return time.Now().UTC()
}

func page[T any](items []T, opts ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// ============================================
// Users
// ============================================

type memUserRepository struct {
	v *memView
}

func (r *memUserRepository) Create(ctx context.Context, user *User) error {
	return r.v.run(func(st *memState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return &DuplicateError{Constraint: ConstraintUserEmail}
			}
		}
		user.ID = st.newID()
		user.CreatedAt = now()
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = *user
		return nil
	})
}

func (r *memUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var found *User
	err := r.v.run(func(st *memState) error {
		if u, ok := st.users[id]; ok {
			found = &u
		}
		return nil
	})
	return found, err
}

func (r *memUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var found *User
	err := r.v.run(func(st *memState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				found = &u
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *memUserRepository) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.users[token.UserID]; !ok {
			return ErrForeignKey
		}
		token.ID = st.newID()
		token.CreatedAt = now()
		st.refreshTokens[token.Token] = *token
		return nil
	})
}

func (r *memUserRepository) FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	var found *RefreshToken
	err := r.v.run(func(st *memState) error {
		if rt, ok := st.refreshTokens[token]; ok {
			found = &rt
		}
		return nil
	})
	return found, err
}

func (r *memUserRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return r.v.run(func(st *memState) error {
		delete(st.refreshTokens, token)
		return nil
	})
}

func (r *memUserRepository) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.v.run(func(st *memState) error {
		for key, rt := range st.refreshTokens {
			if rt.ExpiresAt.Before(before) {
				delete(st.refreshTokens, key)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

// ============================================
// Workspaces
// ============================================

type memWorkspaceRepository struct {
	v *memView
}

func slugTaken(st *memState, slug, exceptID string) bool {
	for id, ws := range st.workspaces {
		if id != exceptID && ws.Slug == slug {
			return true
		}
	}
	return false
}

func (r *memWorkspaceRepository) Create(ctx context.Context, workspace *Workspace) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.users[workspace.OwnerID]; !ok {
			return ErrForeignKey
		}
		if slugTaken(st, workspace.Slug, "") {
			return &DuplicateError{Constraint: ConstraintWorkspaceSlug}
		}
		workspace.ID = st.newID()
		workspace.CreatedAt = now()
		workspace.UpdatedAt = workspace.CreatedAt
		workspace.AccessedAt = workspace.CreatedAt
		st.workspaces[workspace.ID] = *workspace
		return nil
	})
}

func (r *memWorkspaceRepository) FindByID(ctx context.Context, id string) (*Workspace, error) {
	var found *Workspace
	err := r.v.run(func(st *memState) error {
		if ws, ok := st.workspaces[id]; ok {
			found = &ws
		}
		return nil
	})
	return found, err
}

func (r *memWorkspaceRepository) FindBySlug(ctx context.Context, slug string) (*Workspace, error) {
	var found *Workspace
	err := r.v.run(func(st *memState) error {
		for _, ws := range st.workspaces {
			if ws.Slug == slug {
				found = &ws
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *memWorkspaceRepository) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]*Workspace, int, error) {
	var (
		result []*Workspace
		total  int
	)
	err := r.v.run(func(st *memState) error {
		var all []Workspace
		for _, m := range st.members {
			if m.UserID != userID {
				continue
			}
			if ws, ok := st.workspaces[m.WorkspaceID]; ok {
				all = append(all, ws)
			}
		}
		total = len(all)

		bySeq := func(a, b Workspace) int { return cmp.Compare(st.seq[a.ID], st.seq[b.ID]) }
		slices.SortStableFunc(all, func(a, b Workspace) int {
			switch opts.Sort {
			case "accessed":
				if c := b.AccessedAt.Compare(a.AccessedAt); c != 0 {
					return c
				}
			case "name":
				if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
					return c
				}
			}
			return bySeq(a, b)
		})

		for _, ws := range page(all, opts) {
			result = append(result, &ws)
		}
		return nil
	})
	return result, total, err
}

func (r *memWorkspaceRepository) Update(ctx context.Context, workspace *Workspace) error {
	return r.v.run(func(st *memState) error {
		existing, ok := st.workspaces[workspace.ID]
		if !ok {
			return ErrNotFound
		}
		if slugTaken(st, workspace.Slug, workspace.ID) {
			return &DuplicateError{Constraint: ConstraintWorkspaceSlug}
		}
		existing.Name = workspace.Name
		existing.Slug = workspace.Slug
		existing.UpdatedAt = now()
		st.workspaces[workspace.ID] = existing
		workspace.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *memWorkspaceRepository) TouchAccessedAt(ctx context.Context, id string, at time.Time) error {
	return r.v.run(func(st *memState) error {
		ws, ok := st.workspaces[id]
		if !ok {
			return ErrNotFound
		}
		ws.AccessedAt = at
		st.workspaces[id] = ws
		return nil
	})
}

func (r *memWorkspaceRepository) Delete(ctx context.Context, id string) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.workspaces[id]; !ok {
			return ErrNotFound
		}
		for pid, p := range st.projects {
			if p.WorkspaceID == id {
				deleteProjectCascade(st, pid)
			}
		}
		for key, m := range st.members {
			if m.WorkspaceID == id {
				delete(st.members, key)
			}
		}
		delete(st.workspaces, id)
		return nil
	})
}

func (r *memWorkspaceRepository) LockForUpdate(ctx context.Context, id string) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.workspaces[id]; !ok {
			return ErrNotFound
		}
		return nil
	})
}

// ============================================
// Members
// ============================================

type memMemberRepository struct {
	v *memView
}

func (r *memMemberRepository) Add(ctx context.Context, member *WorkspaceMember) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.workspaces[member.WorkspaceID]; !ok {
			return ErrForeignKey
		}
		if _, ok := st.users[member.UserID]; !ok {
			return ErrForeignKey
		}
		if !member.Role.Valid() {
			return ErrCheckViolation
		}
		key := memberKey(member.WorkspaceID, member.UserID)
		if _, ok := st.members[key]; ok {
			return &DuplicateError{Constraint: ConstraintMemberPair}
		}
		member.ID = st.newID()
		member.AddedAt = now()
		stored := *member
		stored.User = nil
		st.members[key] = stored
		return nil
	})
}

func (r *memMemberRepository) Find(ctx context.Context, workspaceID, userID string) (*WorkspaceMember, error) {
	var found *WorkspaceMember
	err := r.v.run(func(st *memState) error {
		if m, ok := st.members[memberKey(workspaceID, userID)]; ok {
			found = &m
		}
		return nil
	})
	return found, err
}

func (r *memMemberRepository) List(ctx context.Context, workspaceID string) ([]*WorkspaceMember, error) {
	var result []*WorkspaceMember
	err := r.v.run(func(st *memState) error {
		var all []WorkspaceMember
		for _, m := range st.members {
			if m.WorkspaceID == workspaceID {
				all = append(all, m)
			}
		}
		slices.SortFunc(all, func(a, b WorkspaceMember) int { return cmp.Compare(st.seq[a.ID], st.seq[b.ID]) })
		for _, m := range all {
			if u, ok := st.users[m.UserID]; ok {
				m.User = &u
			}
			result = append(result, &m)
		}
		return nil
	})
	return result, err
}

func (r *memMemberRepository) UpdateRole(ctx context.Context, workspaceID, userID string, role types.Role) error {
	return r.v.run(func(st *memState) error {
		if !role.Valid() {
			return ErrCheckViolation
		}
		key := memberKey(workspaceID, userID)
		m, ok := st.members[key]
		if !ok {
			return ErrNotFound
		}
		m.Role = role
		st.members[key] = m
		return nil
	})
}

func (r *memMemberRepository) Remove(ctx context.Context, workspaceID, userID string) error {
	return r.v.run(func(st *memState) error {
		key := memberKey(workspaceID, userID)
		if _, ok := st.members[key]; !ok {
			return ErrNotFound
		}
		delete(st.members, key)
		return nil
	})
}

func (r *memMemberRepository) CountAdmins(ctx context.Context, workspaceID string) (int, error) {
	var count int
	err := r.v.run(func(st *memState) error {
		for _, m := range st.members {
			if m.WorkspaceID == workspaceID && m.Role == types.RoleAdmin {
				count++
			}
		}
		return nil
	})
	return count, err
}

// ============================================
// Projects
// ============================================

type memProjectRepository struct {
	v *memView
}

func checkProject(p *Project) error {
	if !p.Status.Valid() || p.Priority < types.ProjectPriorityMin || p.Priority > types.ProjectPriorityMax {
		return ErrCheckViolation
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return ErrCheckViolation
	}
	return nil
}

func (r *memProjectRepository) Create(ctx context.Context, project *Project) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.workspaces[project.WorkspaceID]; !ok {
			return ErrForeignKey
		}
		if err := checkProject(project); err != nil {
			return err
		}
		project.ID = st.newID()
		project.CreatedAt = now()
		project.UpdatedAt = project.CreatedAt
		st.projects[project.ID] = *project
		return nil
	})
}

func (r *memProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	var found *Project
	err := r.v.run(func(st *memState) error {
		if p, ok := st.projects[id]; ok {
			found = &p
		}
		return nil
	})
	return found, err
}

func (r *memProjectRepository) ListByWorkspace(ctx context.Context, workspaceID string, opts ListOptions) ([]*Project, error) {
	var result []*Project
	err := r.v.run(func(st *memState) error {
		var all []Project
		for _, p := range st.projects {
			if p.WorkspaceID == workspaceID && (opts.Status == "" || string(p.Status) == opts.Status) {
				all = append(all, p)
			}
		}
		slices.SortStableFunc(all, func(a, b Project) int {
			return compareListed(opts.Sort, st.seq[a.ID], st.seq[b.ID], a.Name, b.Name, a.Priority, b.Priority, nil, nil)
		})
		for _, p := range page(all, opts) {
			result = append(result, &p)
		}
		return nil
	})
	return result, err
}

func (r *memProjectRepository) Update(ctx context.Context, project *Project) error {
	return r.v.run(func(st *memState) error {
		existing, ok := st.projects[project.ID]
		if !ok {
			return ErrNotFound
		}
		if err := checkProject(project); err != nil {
			return err
		}
		project.WorkspaceID = existing.WorkspaceID
		project.CreatedAt = existing.CreatedAt
		project.UpdatedAt = now()
		st.projects[project.ID] = *project
		return nil
	})
}

func (r *memProjectRepository) Delete(ctx context.Context, id string) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.projects[id]; !ok {
			return ErrNotFound
		}
		deleteProjectCascade(st, id)
		return nil
	})
}

func deleteProjectCascade(st *memState, projectID string) {
	for tid, t := range st.tasks {
		if t.ProjectID == projectID {
			deleteTaskCascade(st, tid)
		}
	}
	delete(st.projects, projectID)
}

// ============================================
// Tasks
// ============================================

type memTaskRepository struct {
	v *memView
}

func checkTask(st *memState, t *Task) error {
	if !t.Status.Valid() || t.Priority < types.TaskPriorityMin || t.Priority > types.TaskPriorityMax {
		return ErrCheckViolation
	}
	if t.AssigneeID != nil {
		if _, ok := st.users[*t.AssigneeID]; !ok {
			return ErrForeignKey
		}
	}
	return nil
}

func (r *memTaskRepository) Create(ctx context.Context, task *Task) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.projects[task.ProjectID]; !ok {
			return ErrForeignKey
		}
		if err := checkTask(st, task); err != nil {
			return err
		}
		task.ID = st.newID()
		task.CreatedAt = now()
		task.UpdatedAt = task.CreatedAt
		st.tasks[task.ID] = *task
		return nil
	})
}

func (r *memTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	var found *Task
	err := r.v.run(func(st *memState) error {
		if t, ok := st.tasks[id]; ok {
			found = &t
		}
		return nil
	})
	return found, err
}

func (r *memTaskRepository) ListByProject(ctx context.Context, projectID string, opts ListOptions) ([]*Task, error) {
	var result []*Task
	err := r.v.run(func(st *memState) error {
		var all []Task
		for _, t := range st.tasks {
			if t.ProjectID == projectID && (opts.Status == "" || string(t.Status) == opts.Status) {
				all = append(all, t)
			}
		}
		slices.SortStableFunc(all, func(a, b Task) int {
			return compareListed(opts.Sort, st.seq[a.ID], st.seq[b.ID], a.Name, b.Name, a.Priority, b.Priority, a.DueDate, b.DueDate)
		})
		for _, t := range page(all, opts) {
			result = append(result, &t)
		}
		return nil
	})
	return result, err
}

func (r *memTaskRepository) Update(ctx context.Context, task *Task) error {
	return r.v.run(func(st *memState) error {
		existing, ok := st.tasks[task.ID]
		if !ok {
			return ErrNotFound
		}
		if err := checkTask(st, task); err != nil {
			return err
		}
		task.ProjectID = existing.ProjectID
		task.CreatedAt = existing.CreatedAt
		task.UpdatedAt = now()
		st.tasks[task.ID] = *task
		return nil
	})
}

func (r *memTaskRepository) Delete(ctx context.Context, id string) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.tasks[id]; !ok {
			return ErrNotFound
		}
		deleteTaskCascade(st, id)
		return nil
	})
}

func (r *memTaskRepository) UnassignInWorkspace(ctx context.Context, workspaceID, userID string) (int64, error) {
	var cleared int64
	err := r.v.run(func(st *memState) error {
		for id, t := range st.tasks {
			if t.AssigneeID == nil || *t.AssigneeID != userID {
				continue
			}
			if p, ok := st.projects[t.ProjectID]; !ok || p.WorkspaceID != workspaceID {
				continue
			}
			t.AssigneeID = nil
			t.UpdatedAt = now()
			st.tasks[id] = t
			cleared++
		}
		return nil
	})
	return cleared, err
}

func deleteTaskCascade(st *memState, taskID string) {
	for cid, c := range st.comments {
		if c.TaskID == taskID {
			delete(st.comments, cid)
		}
	}
	delete(st.tasks, taskID)
}

// compareListed orders project and task listings by the same sort keys the
// SQL store accepts, falling back to creation order.
func compareListed(sortKey string, seqA, seqB int64, nameA, nameB string, prioA, prioB int, dueA, dueB *time.Time) int {
	switch sortKey {
	case "-created":
		return cmp.Compare(seqB, seqA)
	case "name":
		if c := cmp.Compare(strings.ToLower(nameA), strings.ToLower(nameB)); c != 0 {
			return c
		}
	case "priority":
		if c := cmp.Compare(prioA, prioB); c != 0 {
			return c
		}
	case "-priority":
		if c := cmp.Compare(prioB, prioA); c != 0 {
			return c
		}
	case "due":
		switch {
		case dueA == nil && dueB != nil:
			return 1
		case dueA != nil && dueB == nil:
			return -1
		case dueA != nil && dueB != nil:
			if c := dueA.Compare(*dueB); c != 0 {
				return c
			}
		}
	}
	return cmp.Compare(seqA, seqB)
}

// ============================================
// Comments
// ============================================

type memCommentRepository struct {
	v *memView
}

func (r *memCommentRepository) Create(ctx context.Context, comment *TaskComment) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.tasks[comment.TaskID]; !ok {
			return ErrForeignKey
		}
		if comment.UserID != nil {
			if _, ok := st.users[*comment.UserID]; !ok {
				return ErrForeignKey
			}
		}
		comment.ID = st.newID()
		comment.CreatedAt = now()
		stored := *comment
		stored.User = nil
		st.comments[comment.ID] = stored
		return nil
	})
}

func (r *memCommentRepository) FindByID(ctx context.Context, id string) (*TaskComment, error) {
	var found *TaskComment
	err := r.v.run(func(st *memState) error {
		if c, ok := st.comments[id]; ok {
			found = &c
		}
		return nil
	})
	return found, err
}

func (r *memCommentRepository) ListByTask(ctx context.Context, taskID string) ([]*TaskComment, error) {
	var result []*TaskComment
	err := r.v.run(func(st *memState) error {
		var all []TaskComment
		for _, c := range st.comments {
			if c.TaskID == taskID {
				all = append(all, c)
			}
		}
		slices.SortFunc(all, func(a, b TaskComment) int { return cmp.Compare(st.seq[a.ID], st.seq[b.ID]) })
		for _, c := range all {
			if c.UserID != nil {
				if u, ok := st.users[*c.UserID]; ok {
					c.User = &u
				}
			}
			result = append(result, &c)
		}
		return nil
	})
	return result, err
}

func (r *memCommentRepository) Delete(ctx context.Context, id string) error {
	return r.v.run(func(st *memState) error {
		if _, ok := st.comments[id]; !ok {
			return ErrNotFound
		}
		delete(st.comments, id)
		return nil
	})
}
