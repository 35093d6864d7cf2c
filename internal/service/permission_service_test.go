package service_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

var _ = DescribeTable("Decide",
	func(member *repository.WorkspaceMember, required types.Role, allowed bool, reason string) {
		d := service.Decide(member, required)
		Expect(d.Allowed).To(Equal(allowed))
		Expect(d.Reason).To(Equal(reason))
	},
	Entry("non-member", (*repository.WorkspaceMember)(nil), types.RoleViewer, false, service.DenyNotMember),
	Entry("viewer reading", &repository.WorkspaceMember{Role: types.RoleViewer}, types.RoleViewer, true, ""),
	Entry("viewer writing", &repository.WorkspaceMember{Role: types.RoleViewer}, types.RoleDeveloper, false, service.DenyInsufficientRole),
	Entry("developer writing", &repository.WorkspaceMember{Role: types.RoleDeveloper}, types.RoleDeveloper, true, ""),
	Entry("developer administering", &repository.WorkspaceMember{Role: types.RoleDeveloper}, types.RoleAdmin, false, service.DenyInsufficientRole),
	Entry("admin administering", &repository.WorkspaceMember{Role: types.RoleAdmin}, types.RoleAdmin, true, ""),
)
