// internal/seed/seed.go
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

type demoUser struct {
	name  string
	email string
	role  string
}

var demoUsers = []demoUser{
	{"Marga Ghale", "marga.ghale@oratechnologies.io", ""},
	{"Bipin Dhimal", "bipin.dhimal@oratechnologies.io", string(types.RoleDeveloper)},
	{"Kritim Kafle", "kritim.kafle@oratechnologies.io", string(types.RoleViewer)},
}

// SeedData creates a demo workspace with members, a project, tasks and a
// comment. It does nothing when the first demo user already exists.
func SeedData(ctx context.Context, repos *repository.Repositories, services *service.Services, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("seed")

	existing, err := repos.UserRepo.FindByEmail(ctx, demoUsers[0].email)
	if err != nil {
		return fmt.Errorf("check seed data: %w", err)
	}
	if existing != nil {
		log.Info("data already exists, skipping")
		return nil
	}

	log.Info("creating demo data")

	users := make([]*repository.User, 0, len(demoUsers))
	for _, u := range demoUsers {
		session, err := services.Auth.Register(ctx, models.RegisterRequest{Name: u.name, Email: u.email, Password: DemoPassword})
		if err != nil {
			return fmt.Errorf("register %s: %w", u.email, err)
		}
		users = append(users, session.User)
	}
	owner := users[0]

	workspace, err := services.Workspace.Create(ctx, owner.ID, models.CreateWorkspaceRequest{
		Name: "ORA Technologies",
		Slug: "ora-technologies",
	})
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	for i, u := range demoUsers[1:] {
		if _, err := services.Member.Add(ctx, owner.ID, workspace.ID, models.AddMemberRequest{
			UserID: users[i+1].ID,
			Role:   u.role,
		}); err != nil {
			return fmt.Errorf("add member %s: %w", u.email, err)
		}
	}

	status, priority := string(types.ProjectStatusInProgress), 1
	description := "Refresh the marketing site and customer portal"
	project, err := services.Project.Create(ctx, owner.ID, workspace.ID, models.CreateProjectRequest{
		Name:        "Website Redesign",
		Description: &description,
		Status:      &status,
		Priority:    &priority,
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	developer := users[1]
	tasks := []models.CreateTaskRequest{
		{Name: "Design new landing page", AssigneeID: &developer.ID},
		{Name: "Set up CI pipeline", AssigneeID: &owner.ID},
		{Name: "Write content for pricing page"},
	}
	var first *repository.Task
	for _, req := range tasks {
		task, err := services.Task.Create(ctx, owner.ID, workspace.ID, project.ID, req)
		if err != nil {
			return fmt.Errorf("create task %q: %w", req.Name, err)
		}
		if first == nil {
			first = task
		}
	}

	if _, err := services.Comment.Create(ctx, developer.ID, workspace.ID, project.ID, first.ID, models.CreateCommentRequest{
		Content: "First draft of the hero section is ready for review.",
	}); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	log.Info("demo data created",
		zap.String("workspace", workspace.Slug),
		zap.Int("users", len(users)),
		zap.Int("tasks", len(tasks)),
	)
	return nil
}
