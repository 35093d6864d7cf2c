package service_test

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

var _ = Describe("workspace, member and project services", func() {
	var (
		f     *fixture
		alice *repository.User
		bob   *repository.User
		ws    *repository.Workspace
	)

	BeforeEach(func() {
		f = newFixture()
		alice = f.user("alice")
		bob = f.user("bob")

		var err error
		ws, err = f.services.Workspace.Create(f.ctx, alice.ID, models.CreateWorkspaceRequest{Name: "Acme", Slug: "acme"})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("creating a workspace", func() {
		It("makes the creator owner and sole admin", func() {
			Expect(ws.OwnerID).To(Equal(alice.ID))

			members, err := f.services.Member.List(f.ctx, alice.ID, "acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(1))
			Expect(members[0].UserID).To(Equal(alice.ID))
			Expect(members[0].Role).To(Equal(types.RoleAdmin))
		})

		It("rejects a taken slug with a conflict and writes nothing", func() {
			_, err := f.services.Workspace.Create(f.ctx, bob.ID, models.CreateWorkspaceRequest{Name: "Other", Slug: "acme"})
			Expect(apperr.Is(err, apperr.KindConflict)).To(BeTrue())
			Expect(errors.Is(err, apperr.ErrSlugTaken)).To(BeTrue())

			_, total, err := f.services.Workspace.List(f.ctx, bob.ID, models.ListWorkspacesQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())
		})

		It("rejects a uuid-shaped slug", func() {
			_, err := f.services.Workspace.Create(f.ctx, bob.ID, models.CreateWorkspaceRequest{
				Name: "Sneaky", Slug: "123e4567-e89b-12d3-a456-426614174000",
			})
			Expect(apperr.Is(err, apperr.KindValidation)).To(BeTrue())
		})
	})

	Describe("resolving a workspace", func() {
		It("finds it by id or slug and reports the caller's role", func() {
			byID, role, err := f.services.Workspace.Get(f.ctx, alice.ID, ws.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(types.RoleAdmin))

			bySlug, _, err := f.services.Workspace.Get(f.ctx, alice.ID, "acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(bySlug.ID).To(Equal(byID.ID))
		})

		It("reports an unknown workspace as not found", func() {
			_, _, err := f.services.Workspace.Get(f.ctx, alice.ID, "nope")
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())
		})

		It("forbids non-members", func() {
			_, _, err := f.services.Workspace.Get(f.ctx, bob.ID, "acme")
			Expect(apperr.Is(err, apperr.KindForbidden)).To(BeTrue())
		})

		It("lists only the caller's workspaces with a total", func() {
			_, err := f.services.Workspace.Create(f.ctx, bob.ID, models.CreateWorkspaceRequest{Name: "Bobs", Slug: "bobs"})
			Expect(err).NotTo(HaveOccurred())

			list, total, err := f.services.Workspace.List(f.ctx, alice.ID, models.ListWorkspacesQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(1))
			Expect(list).To(HaveLen(1))
			Expect(list[0].Slug).To(Equal("acme"))
		})
	})

	Describe("updating a workspace", func() {
		It("requires admin", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: bob.ID, Role: "developer"})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.services.Workspace.Update(f.ctx, bob.ID, "acme", models.UpdateWorkspaceRequest{Name: strPtr("Renamed")})
			Expect(apperr.Is(err, apperr.KindForbidden)).To(BeTrue())
		})

		It("renames and publishes the change", func() {
			updated, err := f.services.Workspace.Update(f.ctx, alice.ID, "acme", models.UpdateWorkspaceRequest{
				Name: strPtr("Acme Corp"), Slug: strPtr("acme-corp"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Slug).To(Equal("acme-corp"))
			Expect(f.publisher.types()).To(ContainElement(socket.MessageWorkspaceUpdated))

			_, _, err = f.services.Workspace.Get(f.ctx, alice.ID, "acme")
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())
		})

		It("rejects a slug held by another workspace", func() {
			_, err := f.services.Workspace.Create(f.ctx, alice.ID, models.CreateWorkspaceRequest{Name: "Beta", Slug: "beta"})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.services.Workspace.Update(f.ctx, alice.ID, "acme", models.UpdateWorkspaceRequest{Slug: strPtr("beta")})
			Expect(errors.Is(err, apperr.ErrSlugTaken)).To(BeTrue())
		})

		It("records access for members", func() {
			Expect(f.services.Workspace.TouchAccessed(f.ctx, alice.ID, "acme")).To(Succeed())
			got, _, err := f.services.Workspace.Get(f.ctx, alice.ID, "acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.AccessedAt).To(BeTemporally("~", time.Now(), 5*time.Second))
		})
	})

	Describe("the Acme walkthrough", func() {
		It("lets a viewer create projects only after promotion", func() {
			member, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{Email: "BOB@example.test", Role: "viewer"})
			Expect(err).NotTo(HaveOccurred())
			Expect(member.Role).To(Equal(types.RoleViewer))

			_, err = f.services.Project.Create(f.ctx, bob.ID, "acme", models.CreateProjectRequest{Name: "Launch"})
			Expect(apperr.Is(err, apperr.KindForbidden)).To(BeTrue())

			_, err = f.services.Member.UpdateRole(f.ctx, alice.ID, "acme", bob.ID, models.UpdateMemberRoleRequest{Role: "developer"})
			Expect(err).NotTo(HaveOccurred())

			project, err := f.services.Project.Create(f.ctx, bob.ID, "acme", models.CreateProjectRequest{Name: "Launch"})
			Expect(err).NotTo(HaveOccurred())
			Expect(project.WorkspaceID).To(Equal(ws.ID))
			Expect(project.Status).To(Equal(types.ProjectStatusBacklog))
			Expect(project.Priority).To(BeZero())
			Expect(project.StartDate).To(BeTemporally("~", time.Now(), 5*time.Second))

			Expect(f.publisher.types()).To(ContainElements(
				socket.MessageMemberAdded, socket.MessageMemberRoleUpdated, socket.MessageProjectCreated,
			))
		})
	})

	Describe("membership", func() {
		It("rejects adding an existing member", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: alice.ID, Role: "viewer"})
			Expect(errors.Is(err, apperr.ErrAlreadyMember)).To(BeTrue())
		})

		It("reports an unknown user as not found", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{Email: "ghost@example.test", Role: "viewer"})
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())
		})

		It("refuses to demote or remove the last admin", func() {
			_, err := f.services.Member.UpdateRole(f.ctx, alice.ID, "acme", alice.ID, models.UpdateMemberRoleRequest{Role: "viewer"})
			Expect(errors.Is(err, apperr.ErrLastAdmin)).To(BeTrue())

			err = f.services.Member.Remove(f.ctx, alice.ID, "acme", alice.ID)
			Expect(errors.Is(err, apperr.ErrLastAdmin)).To(BeTrue())

			members, err := f.services.Member.List(f.ctx, alice.ID, "acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(1))
			Expect(members[0].Role).To(Equal(types.RoleAdmin))
		})

		It("rejects every concurrent self-demotion of a sole admin", func() {
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := f.services.Member.UpdateRole(f.ctx, alice.ID, "acme", alice.ID, models.UpdateMemberRoleRequest{Role: "developer"})
					Expect(errors.Is(err, apperr.ErrLastAdmin)).To(BeTrue())
					if err == nil {
						mu.Lock()
						successes++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(successes).To(BeZero())
		})

		It("keeps one admin when two admins step down at once", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: bob.ID, Role: "admin"})
			Expect(err).NotTo(HaveOccurred())

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			stepDown := func(actor string) {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := f.services.Member.UpdateRole(f.ctx, actor, "acme", actor, models.UpdateMemberRoleRequest{Role: "viewer"})
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				Expect(errors.Is(err, apperr.ErrLastAdmin) ||
					errors.Is(err, apperr.ErrOwnerImmutable) ||
					apperr.Is(err, apperr.KindForbidden)).To(BeTrue())
			}

			for i := 0; i < 8; i++ {
				wg.Add(2)
				go stepDown(alice.ID)
				go stepDown(bob.ID)
			}
			wg.Wait()
			Expect(successes).To(Equal(1))

			members, err := f.services.Member.List(f.ctx, alice.ID, "acme")
			Expect(err).NotTo(HaveOccurred())
			admins := 0
			for _, m := range members {
				if m.Role == types.RoleAdmin {
					admins++
				}
			}
			Expect(admins).To(Equal(1))
		})

		It("removes a member and detaches their realtime subscription", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: bob.ID, Role: "developer"})
			Expect(err).NotTo(HaveOccurred())

			Expect(f.services.Member.Remove(f.ctx, alice.ID, "acme", bob.ID)).To(Succeed())
			Expect(f.publisher.detached).To(ContainElement(ws.ID + "/" + bob.ID))

			_, _, err = f.services.Workspace.Get(f.ctx, bob.ID, "acme")
			Expect(apperr.Is(err, apperr.KindForbidden)).To(BeTrue())
		})

		It("keeps the owner an admin member when another admin acts", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: bob.ID, Role: "admin"})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.services.Member.UpdateRole(f.ctx, bob.ID, "acme", alice.ID, models.UpdateMemberRoleRequest{Role: "viewer"})
			Expect(apperr.Is(err, apperr.KindConflict)).To(BeTrue())
			Expect(errors.Is(err, apperr.ErrOwnerImmutable)).To(BeTrue())

			err = f.services.Member.Remove(f.ctx, bob.ID, "acme", alice.ID)
			Expect(apperr.Is(err, apperr.KindConflict)).To(BeTrue())
			Expect(errors.Is(err, apperr.ErrOwnerImmutable)).To(BeTrue())

			owner, err := f.repos.MemberRepo.Find(f.ctx, ws.ID, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(owner).NotTo(BeNil())
			Expect(owner.Role).To(Equal(types.RoleAdmin))
		})

		It("still lets the owner demote and remove other admins", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: bob.ID, Role: "admin"})
			Expect(err).NotTo(HaveOccurred())

			member, err := f.services.Member.UpdateRole(f.ctx, alice.ID, "acme", bob.ID, models.UpdateMemberRoleRequest{Role: "developer"})
			Expect(err).NotTo(HaveOccurred())
			Expect(member.Role).To(Equal(types.RoleDeveloper))

			Expect(f.services.Member.Remove(f.ctx, alice.ID, "acme", bob.ID)).To(Succeed())
		})

		It("clears the removed member's task assignments in that workspace only", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: bob.ID, Role: "developer"})
			Expect(err).NotTo(HaveOccurred())
			project, err := f.services.Project.Create(f.ctx, alice.ID, "acme", models.CreateProjectRequest{Name: "P"})
			Expect(err).NotTo(HaveOccurred())
			task, err := f.services.Task.Create(f.ctx, alice.ID, "acme", project.ID, models.CreateTaskRequest{Name: "Ship it", AssigneeID: &bob.ID})
			Expect(err).NotTo(HaveOccurred())

			other, err := f.services.Workspace.Create(f.ctx, bob.ID, models.CreateWorkspaceRequest{Name: "Bob Co", Slug: "bob-co"})
			Expect(err).NotTo(HaveOccurred())
			otherProject, err := f.services.Project.Create(f.ctx, bob.ID, other.Slug, models.CreateProjectRequest{Name: "Q"})
			Expect(err).NotTo(HaveOccurred())
			otherTask, err := f.services.Task.Create(f.ctx, bob.ID, other.Slug, otherProject.ID, models.CreateTaskRequest{Name: "Keep me", AssigneeID: &bob.ID})
			Expect(err).NotTo(HaveOccurred())

			Expect(f.services.Member.Remove(f.ctx, alice.ID, "acme", bob.ID)).To(Succeed())

			got, err := f.services.Task.Get(f.ctx, alice.ID, "acme", project.ID, task.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.AssigneeID).To(BeNil())

			kept, err := f.services.Task.Get(f.ctx, bob.ID, other.Slug, otherProject.ID, otherTask.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(kept.AssigneeID).To(HaveValue(Equal(bob.ID)))
		})

		It("reports a malformed member id as not found", func() {
			err := f.services.Member.Remove(f.ctx, alice.ID, "acme", "not-a-uuid")
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())
		})
	})

	Describe("projects", func() {
		It("rejects an end date before the merged start date", func() {
			start := time.Now().Add(48 * time.Hour)
			project, err := f.services.Project.Create(f.ctx, alice.ID, "acme", models.CreateProjectRequest{Name: "P", StartDate: &start})
			Expect(err).NotTo(HaveOccurred())

			end := time.Now()
			_, err = f.services.Project.Update(f.ctx, alice.ID, "acme", project.ID, models.UpdateProjectRequest{EndDate: &end})
			appErr, ok := apperr.As(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Fields).To(ContainElement(apperr.Field("endDate", "must not be before startDate")))
		})

		It("clears a previously set end date", func() {
			end := time.Now().Add(72 * time.Hour)
			project, err := f.services.Project.Create(f.ctx, alice.ID, "acme", models.CreateProjectRequest{Name: "P", EndDate: &end})
			Expect(err).NotTo(HaveOccurred())
			Expect(project.EndDate).NotTo(BeNil())

			updated, err := f.services.Project.Update(f.ctx, alice.ID, "acme", project.ID, models.UpdateProjectRequest{ClearEndDate: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.EndDate).To(BeNil())

			got, err := f.services.Project.Get(f.ctx, alice.ID, "acme", project.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.EndDate).To(BeNil())
		})

		It("filters and sorts listings", func() {
			for i, name := range []string{"Low", "High", "Mid"} {
				_, err := f.services.Project.Create(f.ctx, alice.ID, "acme", models.CreateProjectRequest{
					Name: name, Priority: intPtr([]int{0, 4, 2}[i]),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			projects, err := f.services.Project.List(f.ctx, alice.ID, "acme", models.ListQuery{Sort: "-priority"})
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(HaveLen(3))
			Expect(projects[0].Name).To(Equal("High"))
			Expect(projects[2].Name).To(Equal("Low"))

			_, err = f.services.Project.List(f.ctx, alice.ID, "acme", models.ListQuery{Sort: "random"})
			Expect(apperr.Is(err, apperr.KindValidation)).To(BeTrue())
		})
	})

	Describe("deleting a workspace", func() {
		It("cascades to projects, tasks and comments and closes the realtime room", func() {
			project, err := f.services.Project.Create(f.ctx, alice.ID, "acme", models.CreateProjectRequest{Name: "P"})
			Expect(err).NotTo(HaveOccurred())
			task, err := f.services.Task.Create(f.ctx, alice.ID, "acme", project.ID, models.CreateTaskRequest{Name: "Write copy"})
			Expect(err).NotTo(HaveOccurred())
			comment, err := f.services.Comment.Create(f.ctx, alice.ID, "acme", project.ID, task.ID, models.CreateCommentRequest{Content: "draft"})
			Expect(err).NotTo(HaveOccurred())

			id, err := f.services.Workspace.Delete(f.ctx, alice.ID, "acme")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(ws.ID))
			Expect(f.publisher.closed).To(ConsistOf(ws.ID))

			_, _, err = f.services.Workspace.Get(f.ctx, alice.ID, ws.ID)
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())

			found, err := f.repos.ProjectRepo.FindByID(f.ctx, project.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeNil())

			_, err = f.services.Project.Get(f.ctx, alice.ID, ws.ID, project.ID)
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())
			_, err = f.services.Task.Get(f.ctx, alice.ID, ws.ID, project.ID, task.ID)
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())
			_, err = f.services.Comment.List(f.ctx, alice.ID, ws.ID, project.ID, task.ID)
			Expect(apperr.Is(err, apperr.KindNotFound)).To(BeTrue())

			storedTask, err := f.repos.TaskRepo.FindByID(f.ctx, task.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(storedTask).To(BeNil())
			storedComment, err := f.repos.CommentRepo.FindByID(f.ctx, comment.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(storedComment).To(BeNil())
		})

		It("forbids non-admins", func() {
			_, err := f.services.Member.Add(f.ctx, alice.ID, "acme", models.AddMemberRequest{UserID: bob.ID, Role: "developer"})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.services.Workspace.Delete(f.ctx, bob.ID, "acme")
			Expect(apperr.Is(err, apperr.KindForbidden)).To(BeTrue())
		})
	})
})
