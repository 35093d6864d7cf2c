package service_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Marga-Ghale/ora-workspaces/internal/apperr"
	"github.com/Marga-Ghale/ora-workspaces/internal/models"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
)

var _ = Describe("AuthService", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	register := func() *service.Session {
		session, err := f.services.Auth.Register(f.ctx, models.RegisterRequest{
			Name: "Alice", Email: "Alice@Example.test", Password: "correct-horse",
		})
		Expect(err).NotTo(HaveOccurred())
		return session
	}

	It("registers, normalizes the email and issues a usable token pair", func() {
		session := register()
		Expect(session.User.Email).To(Equal("alice@example.test"))
		Expect(session.AccessToken).NotTo(BeEmpty())
		Expect(session.RefreshToken).NotTo(BeEmpty())

		claims, err := f.services.Auth.Authenticate(f.ctx, session.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Subject).To(Equal(session.User.ID))
		Expect(claims.ID).NotTo(BeEmpty())
	})

	It("rejects a second registration for the same email", func() {
		register()
		_, err := f.services.Auth.Register(f.ctx, models.RegisterRequest{
			Name: "Other", Email: "alice@example.test", Password: "another-pass",
		})
		Expect(apperr.Is(err, apperr.KindUpstream)).To(BeTrue())
		Expect(apperr.HTTPStatus(err)).To(Equal(http.StatusConflict))
	})

	It("rejects a wrong password as upstream 401", func() {
		register()
		_, err := f.services.Auth.Login(f.ctx, models.LoginRequest{Email: "alice@example.test", Password: "wrong-password"})
		Expect(apperr.HTTPStatus(err)).To(Equal(http.StatusUnauthorized))

		session, err := f.services.Auth.Login(f.ctx, models.LoginRequest{Email: "alice@example.test", Password: "correct-horse"})
		Expect(err).NotTo(HaveOccurred())
		Expect(session.AccessToken).NotTo(BeEmpty())
	})

	It("rotates refresh tokens once", func() {
		session := register()

		rotated, err := f.services.Auth.RefreshToken(f.ctx, session.RefreshToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(rotated.RefreshToken).NotTo(Equal(session.RefreshToken))

		_, err = f.services.Auth.RefreshToken(f.ctx, session.RefreshToken)
		Expect(apperr.HTTPStatus(err)).To(Equal(http.StatusUnauthorized))
	})

	It("revokes the access token on logout", func() {
		session := register()
		claims, err := f.services.Auth.Authenticate(f.ctx, session.AccessToken)
		Expect(err).NotTo(HaveOccurred())

		Expect(f.services.Auth.Logout(f.ctx, claims, session.RefreshToken)).To(Succeed())

		_, err = f.services.Auth.Authenticate(f.ctx, session.AccessToken)
		Expect(err).To(MatchError(service.ErrTokenRevoked))
		Expect(service.IsAuthError(err)).To(BeTrue())

		_, err = f.services.Auth.RefreshToken(f.ctx, session.RefreshToken)
		Expect(err).To(HaveOccurred())
	})

	It("rejects tampered tokens", func() {
		session := register()
		_, err := f.services.Auth.Authenticate(f.ctx, session.AccessToken+"x")
		Expect(service.IsAuthError(err)).To(BeTrue())
	})
})
