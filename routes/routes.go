package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kitlocker/kitlocker-server/handlers"
	"github.com/kitlocker/kitlocker-server/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	teamHandler *handlers.TeamHandler,
	rosterHandler *handlers.RosterHandler,
	inviteHandler *handlers.InviteHandler,
	designHandler *handlers.DesignRequestHandler,
	institutionHandler *handlers.InstitutionHandler,
	orderHandler *handlers.OrderHandler,
	productHandler *handlers.ProductHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public
	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)
	router.Get("/invites/{token}", inviteHandler.GetByToken)
	router.Get("/products", productHandler.ListCatalog)
	router.Get("/products/{slug}", productHandler.GetBySlug)
	router.Get("/institutions/{slug}/overview", institutionHandler.Overview)

	// Authenticated
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/auth/me", authHandler.Me)

		r.Post("/invites/{token}/accept", inviteHandler.Accept)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.Create)
			r.Get("/mine", teamHandler.ListMine)
			r.Get("/by-slug/{slug}", teamHandler.GetBySlug)

			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", teamHandler.GetByID)
				r.Patch("/", teamHandler.UpdateSettings)
				r.Post("/logo", teamHandler.UploadLogo)

				r.Get("/members", rosterHandler.ListMembers)
				r.Post("/members", teamHandler.AddMember)

				r.Get("/invites", inviteHandler.ListPending)
				r.Post("/invites", inviteHandler.Create)

				r.Get("/design-requests", designHandler.ListByTeam)
				r.Get("/orders", orderHandler.ListByTeam)

				r.Get("/programs", institutionHandler.ListPrograms)
				r.Get("/my-role", institutionHandler.MyRole)
			})
		})

		r.Route("/memberships/{membershipID}", func(r chi.Router) {
			r.Patch("/", teamHandler.ChangeMemberRole)
			r.Delete("/", teamHandler.RemoveMember)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", rosterHandler.CreateSubmission)
			r.Patch("/{submissionID}", rosterHandler.UpdateSubmission)
			r.Delete("/{submissionID}", rosterHandler.DeleteSubmission)
		})

		r.Delete("/invites/by-id/{inviteID}", inviteHandler.Delete)

		r.Route("/subteams", func(r chi.Router) {
			r.Post("/", institutionHandler.CreateSubteam)
			r.Put("/{subteamID}/coach", institutionHandler.AssignCoach)
		})

		r.Route("/design-requests", func(r chi.Router) {
			r.Post("/", designHandler.Create)

			r.Route("/{requestID}", func(r chi.Router) {
				r.Get("/", designHandler.GetByID)
				r.Delete("/", designHandler.Delete)

				r.Post("/approve", designHandler.Approve)
				r.Post("/reject", designHandler.Reject)
				r.Post("/revert-approval", designHandler.RevertApproval)
				r.Post("/confirm-production", designHandler.ConfirmProduction)
				r.Post("/revert-production", designHandler.RevertProduction)
				r.Post("/request-changes", designHandler.RequestChanges)
				r.Post("/select-design", designHandler.SelectDesign)

				r.Post("/reactions", designHandler.AddReaction)
				r.Delete("/reactions", designHandler.RemoveReaction)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Create)
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", orderHandler.GetByID)
				r.Patch("/status", orderHandler.UpdateStatus)
				r.Post("/contributions", orderHandler.RecordContribution)
			})
		})

		r.Get("/ws/teams/{teamID}", webSocketHandler.ServeTeam)

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/admin/dashboard", dashboardHandler.Stats)
			r.Post("/admin/products", productHandler.Create)
			r.Put("/admin/products/{productID}", productHandler.Update)
			r.Post("/design-requests/{requestID}/mockups", designHandler.UploadMockups)
		})
	})
}
