package repository_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

var _ = Describe("in-memory repositories", func() {
	var (
		ctx   context.Context
		repos *repository.Repositories
		owner *repository.User
		ws    *repository.Workspace
	)

	BeforeEach(func() {
		ctx = context.Background()
		repos = repository.NewRepositories()

		owner = &repository.User{Email: "owner@acme.test", Name: "Owner"}
		Expect(repos.UserRepo.Create(ctx, owner)).To(Succeed())

		ws = &repository.Workspace{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
		Expect(repos.WorkspaceRepo.Create(ctx, ws)).To(Succeed())
		Expect(repos.MemberRepo.Add(ctx, &repository.WorkspaceMember{
			WorkspaceID: ws.ID, UserID: owner.ID, Role: types.RoleAdmin,
		})).To(Succeed())
	})

	Describe("constraints", func() {
		It("rejects a duplicate slug with the slug constraint", func() {
			err := repos.WorkspaceRepo.Create(ctx, &repository.Workspace{Name: "Other", Slug: "acme", OwnerID: owner.ID})
			Expect(errors.Is(err, repository.ErrDuplicate)).To(BeTrue())
			Expect(repository.IsDuplicate(err, repository.ConstraintWorkspaceSlug)).To(BeTrue())
		})

		It("rejects a second membership row for the same pair", func() {
			err := repos.MemberRepo.Add(ctx, &repository.WorkspaceMember{
				WorkspaceID: ws.ID, UserID: owner.ID, Role: types.RoleViewer,
			})
			Expect(repository.IsDuplicate(err, repository.ConstraintMemberPair)).To(BeTrue())
		})

		It("rejects out-of-range priorities", func() {
			err := repos.ProjectRepo.Create(ctx, &repository.Project{
				WorkspaceID: ws.ID, Name: "P", Status: types.ProjectStatusBacklog, Priority: 5, StartDate: time.Now(),
			})
			Expect(err).To(MatchError(repository.ErrCheckViolation))
		})

		It("rejects children of a missing parent", func() {
			err := repos.TaskRepo.Create(ctx, &repository.Task{
				ProjectID: "00000000-0000-0000-0000-000000000000", Name: "T", Status: types.TaskStatusTodo,
			})
			Expect(err).To(MatchError(repository.ErrForeignKey))
		})

		It("returns nil without error for a missing record", func() {
			found, err := repos.ProjectRepo.FindByID(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeNil())
		})
	})

	Describe("WithTx", func() {
		It("rolls back every write when the function fails", func() {
			boom := errors.New("boom")
			err := repos.WithTx(ctx, func(tx *repository.Repositories) error {
				Expect(tx.ProjectRepo.Create(ctx, &repository.Project{
					WorkspaceID: ws.ID, Name: "Doomed", Status: types.ProjectStatusBacklog, StartDate: time.Now(),
				})).To(Succeed())
				Expect(tx.MemberRepo.UpdateRole(ctx, ws.ID, owner.ID, types.RoleViewer)).To(Succeed())
				return boom
			})
			Expect(err).To(MatchError(boom))

			projects, err := repos.ProjectRepo.ListByWorkspace(ctx, ws.ID, repository.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(BeEmpty())

			admins, err := repos.MemberRepo.CountAdmins(ctx, ws.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(admins).To(Equal(1))
		})

		It("commits when the function succeeds and supports nesting", func() {
			err := repos.WithTx(ctx, func(tx *repository.Repositories) error {
				return tx.WithTx(ctx, func(inner *repository.Repositories) error {
					return inner.ProjectRepo.Create(ctx, &repository.Project{
						WorkspaceID: ws.ID, Name: "Kept", Status: types.ProjectStatusBacklog, StartDate: time.Now(),
					})
				})
			})
			Expect(err).NotTo(HaveOccurred())

			projects, err := repos.ProjectRepo.ListByWorkspace(ctx, ws.ID, repository.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(HaveLen(1))
		})
	})

	Describe("cascades", func() {
		It("removes projects, tasks, comments and members with the workspace", func() {
			project := &repository.Project{WorkspaceID: ws.ID, Name: "P", Status: types.ProjectStatusBacklog, StartDate: time.Now()}
			Expect(repos.ProjectRepo.Create(ctx, project)).To(Succeed())
			task := &repository.Task{ProjectID: project.ID, Name: "Task", Status: types.TaskStatusTodo}
			Expect(repos.TaskRepo.Create(ctx, task)).To(Succeed())
			comment := &repository.TaskComment{TaskID: task.ID, UserID: &owner.ID, Content: "hi"}
			Expect(repos.CommentRepo.Create(ctx, comment)).To(Succeed())

			Expect(repos.WorkspaceRepo.Delete(ctx, ws.ID)).To(Succeed())

			Expect(repos.ProjectRepo.FindByID(ctx, project.ID)).To(BeNil())
			Expect(repos.TaskRepo.FindByID(ctx, task.ID)).To(BeNil())
			Expect(repos.CommentRepo.FindByID(ctx, comment.ID)).To(BeNil())
			Expect(repos.MemberRepo.Find(ctx, ws.ID, owner.ID)).To(BeNil())
		})
	})

	Describe("listing", func() {
		It("orders by creation by default and honours sort keys", func() {
			project := &repository.Project{WorkspaceID: ws.ID, Name: "P", Status: types.ProjectStatusBacklog, StartDate: time.Now()}
			Expect(repos.ProjectRepo.Create(ctx, project)).To(Succeed())

			for i, name := range []string{"charlie", "alpha", "bravo"} {
				Expect(repos.TaskRepo.Create(ctx, &repository.Task{
					ProjectID: project.ID, Name: name, Status: types.TaskStatusTodo, Priority: i % 3,
				})).To(Succeed())
			}

			names := func(tasks []*repository.Task) []string {
				out := make([]string, len(tasks))
				for i, t := range tasks {
					out[i] = t.Name
				}
				return out
			}

			tasks, err := repos.TaskRepo.ListByProject(ctx, project.ID, repository.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(names(tasks)).To(Equal([]string{"charlie", "alpha", "bravo"}))

			tasks, err = repos.TaskRepo.ListByProject(ctx, project.ID, repository.ListOptions{Sort: "name"})
			Expect(err).NotTo(HaveOccurred())
			Expect(names(tasks)).To(Equal([]string{"alpha", "bravo", "charlie"}))

			tasks, err = repos.TaskRepo.ListByProject(ctx, project.ID, repository.ListOptions{Sort: "-created", Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(names(tasks)).To(Equal([]string{"bravo", "alpha"}))
		})

		It("pages the user's workspaces and reports the total", func() {
			for _, slug := range []string{"beta", "gamma"} {
				w := &repository.Workspace{Name: slug, Slug: slug, OwnerID: owner.ID}
				Expect(repos.WorkspaceRepo.Create(ctx, w)).To(Succeed())
				Expect(repos.MemberRepo.Add(ctx, &repository.WorkspaceMember{
					WorkspaceID: w.ID, UserID: owner.ID, Role: types.RoleAdmin,
				})).To(Succeed())
			}

			list, total, err := repos.WorkspaceRepo.ListByUser(ctx, owner.ID, repository.ListOptions{Limit: 2, Offset: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(3))
			Expect(list).To(HaveLen(2))
			Expect(list[0].Slug).To(Equal("beta"))
		})
	})
})
