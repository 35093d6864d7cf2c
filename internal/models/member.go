package models

import (
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-workspaces/internal/types"
)

var roleNames = []string{string(types.RoleAdmin), string(types.RoleDeveloper), string(types.RoleViewer)}

// AddMemberRequest identifies the user by id or by email, not both.
type AddMemberRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (r *AddMemberRequest) Validate() error {
	var f fieldErrors
	switch {
	case r.UserID == "" && r.Email == "":
		f.add("userId", "userId or email is required")
	case r.UserID != "" && r.Email != "":
		f.add("userId", "provide either userId or email, not both")
	case r.UserID != "" && !IsUUID(r.UserID):
		f.add("userId", "must be a valid id")
	case r.Email != "":
		f.email("email", r.Email)
	}
	if _, ok := types.ParseRole(r.Role); !ok {
		f.add("role", "must be one of %s", strings.Join(roleNames, ", "))
	}
	return f.err()
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (r *UpdateMemberRoleRequest) Validate() error {
	var f fieldErrors
	if _, ok := types.ParseRole(r.Role); !ok {
		f.add("role", "must be one of %s", strings.Join(roleNames, ", "))
	}
	return f.err()
}

type MemberResponse struct {
	UserID  string    `json:"userId"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Image   *string   `json:"image,omitempty"`
	Role    string    `json:"role"`
	AddedAt time.Time `json:"addedAt"`
}
