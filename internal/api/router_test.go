package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Marga-Ghale/ora-workspaces/internal/api"
	"github.com/Marga-Ghale/ora-workspaces/internal/config"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

type envelope struct {
	OK         bool                   `json:"ok"`
	Data       map[string]interface{} `json:"data"`
	Error      string                 `json:"error"`
	StatusCode int                    `json:"statusCode"`
	Details    []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

var _ = Describe("Router", func() {
	var (
		router *gin.Engine
		repos  *repository.Repositories
	)

	do := func(method, path, token string, body interface{}) (int, envelope) {
		var reader *bytes.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var env envelope
		Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed(), rec.Body.String())
		return rec.Code, env
	}

	register := func(name string) (token, userID string) {
		code, env := do(http.MethodPost, "/auth/register", "", map[string]string{
			"name": name, "email": name + "@example.test", "password": "password123",
		})
		Expect(code).To(Equal(http.StatusCreated))
		user := env.Data["user"].(map[string]interface{})
		return env.Data["accessToken"].(string), user["id"].(string)
	}

	BeforeEach(func() {
		repos = repository.NewRepositories()
		services := service.NewServices(&service.ServiceDeps{
			Config: &config.Config{JWTSecret: "router-secret", JWTExpiry: 1, RefreshExpiry: 1},
			Repos:  repos,
		})
		router = api.NewRouter(api.RouterDeps{Services: services, Database: repos})
	})

	It("reports health", func() {
		code, env := do(http.MethodGet, "/health", "", nil)
		Expect(code).To(Equal(http.StatusOK))
		Expect(env.OK).To(BeTrue())
		Expect(env.Data).To(HaveKeyWithValue("database", "connected"))
		Expect(env.Data).To(HaveKeyWithValue("cache", "disabled"))
	})

	It("rejects unauthenticated requests with the error envelope", func() {
		code, env := do(http.MethodGet, "/workspaces", "", nil)
		Expect(code).To(Equal(http.StatusUnauthorized))
		Expect(env.OK).To(BeFalse())
		Expect(env.StatusCode).To(Equal(http.StatusUnauthorized))

		code, _ = do(http.MethodGet, "/workspaces", "garbage", nil)
		Expect(code).To(Equal(http.StatusUnauthorized))
	})

	It("passes identity provider failures through", func() {
		register("alice")
		code, env := do(http.MethodPost, "/auth/login", "", map[string]string{
			"email": "alice@example.test", "password": "wrong-password",
		})
		Expect(code).To(Equal(http.StatusUnauthorized))
		Expect(env.Error).To(Equal("invalid credentials"))
	})

	It("returns field details for invalid input", func() {
		token, _ := register("alice")
		code, env := do(http.MethodPost, "/workspaces", token, map[string]string{"name": "A", "slug": "Bad Slug"})
		Expect(code).To(Equal(http.StatusBadRequest))
		Expect(env.OK).To(BeFalse())

		fields := []string{}
		for _, d := range env.Details {
			fields = append(fields, d.Field)
		}
		Expect(fields).To(ContainElements("name", "slug"))
	})

	It("rejects malformed JSON", func() {
		token, _ := register("alice")
		req := httptest.NewRequest(http.MethodPost, "/workspaces", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("walks a workspace through its lifecycle", func() {
		aliceToken, _ := register("alice")
		bobToken, bobID := register("bob")

		code, env := do(http.MethodPost, "/workspaces", aliceToken, map[string]string{"name": "Acme", "slug": "acme"})
		Expect(code).To(Equal(http.StatusCreated))
		Expect(env.Data).To(HaveKey("workspaceId"))

		code, env = do(http.MethodPost, "/workspaces", bobToken, map[string]string{"name": "Acme 2", "slug": "acme"})
		Expect(code).To(Equal(http.StatusConflict))

		code, _ = do(http.MethodGet, "/workspaces/acme", bobToken, nil)
		Expect(code).To(Equal(http.StatusForbidden))

		code, _ = do(http.MethodPost, "/workspaces/acme/members", aliceToken, map[string]string{"userId": bobID, "role": "viewer"})
		Expect(code).To(Equal(http.StatusCreated))

		code, env = do(http.MethodPost, "/workspaces/acme/projects", bobToken, map[string]string{"name": "Launch"})
		Expect(code).To(Equal(http.StatusForbidden))
		Expect(env.Error).To(Equal("forbidden"))

		code, _ = do(http.MethodPut, "/workspaces/acme/members/"+bobID+"/role", aliceToken, map[string]string{"role": "developer"})
		Expect(code).To(Equal(http.StatusOK))

		code, env = do(http.MethodPost, "/workspaces/acme/projects", bobToken, map[string]string{"name": "Launch"})
		Expect(code).To(Equal(http.StatusCreated))
		projectID := env.Data["projectId"].(string)

		code, env = do(http.MethodGet, "/workspaces/acme/projects/"+projectID, bobToken, nil)
		Expect(code).To(Equal(http.StatusOK))
		project := env.Data["project"].(map[string]interface{})
		Expect(project).To(HaveKeyWithValue("status", "backlog"))
		Expect(project).To(HaveKeyWithValue("priority", BeNumerically("==", 0)))

		tasksPath := "/workspaces/acme/projects/" + projectID + "/tasks"
		code, env = do(http.MethodPost, tasksPath, bobToken, map[string]interface{}{"name": "Too hot", "priority": 5})
		Expect(code).To(Equal(http.StatusBadRequest))

		code, env = do(http.MethodPost, tasksPath, bobToken, map[string]interface{}{"name": "Ship it", "assigneeId": bobID})
		Expect(code).To(Equal(http.StatusCreated))
		taskID := env.Data["taskId"].(string)

		code, env = do(http.MethodPost, tasksPath+"/"+taskID+"/comments", bobToken, map[string]string{"content": "on it"})
		Expect(code).To(Equal(http.StatusCreated))
		comment := env.Data["comment"].(map[string]interface{})
		Expect(comment["author"]).To(HaveKeyWithValue("name", "bob"))

		code, env = do(http.MethodGet, tasksPath, bobToken, nil)
		Expect(code).To(Equal(http.StatusOK))
		Expect(env.Data["tasks"]).To(HaveLen(1))

		code, _ = do(http.MethodDelete, "/workspaces/acme", bobToken, nil)
		Expect(code).To(Equal(http.StatusForbidden))

		code, _ = do(http.MethodDelete, "/workspaces/acme/members/"+bobID, aliceToken, nil)
		Expect(code).To(Equal(http.StatusOK))

		code, env = do(http.MethodDelete, "/workspaces/acme", aliceToken, nil)
		Expect(code).To(Equal(http.StatusOK))

		code, _ = do(http.MethodGet, "/workspaces/acme/projects/"+projectID, aliceToken, nil)
		Expect(code).To(Equal(http.StatusNotFound))
	})

	It("lists the caller's workspaces with paging", func() {
		token, _ := register("alice")
		for _, slug := range []string{"one", "two", "three"} {
			code, _ := do(http.MethodPost, "/workspaces", token, map[string]string{"name": "WS " + slug, "slug": slug})
			Expect(code).To(Equal(http.StatusCreated))
		}

		code, env := do(http.MethodGet, "/workspaces?limit=2&page=2", token, nil)
		Expect(code).To(Equal(http.StatusOK))
		Expect(env.Data["total"]).To(BeNumerically("==", 3))
		Expect(env.Data["workspaces"]).To(HaveLen(1))

		code, _ = do(http.MethodGet, "/workspaces?limit=500", token, nil)
		Expect(code).To(Equal(http.StatusBadRequest))
	})

	It("logs out an authenticated user", func() {
		token, _ := register("alice")
		code, _ := do(http.MethodGet, "/users/me", token, nil)
		Expect(code).To(Equal(http.StatusOK))

		code, _ = do(http.MethodPost, "/auth/logout", token, nil)
		Expect(code).To(Equal(http.StatusOK))
	})

	It("answers unknown routes with the envelope", func() {
		code, env := do(http.MethodGet, "/nope", "", nil)
		Expect(code).To(Equal(http.StatusNotFound))
		Expect(env.OK).To(BeFalse())
	})
})
