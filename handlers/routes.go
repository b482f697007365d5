package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"auto-gladiators-backend/middleware"
	"auto-gladiators-backend/services"
)

// SetupRoutes wires the REST surface. Catalog reads are public; everything
// touching player state requires the gateway player context.
func SetupRoutes(
	app *fiber.App,
	tournaments *services.TournamentService,
	matches *services.MatchService,
	players *services.PlayerService,
	log zerolog.Logger,
) {
	api := app.Group("/api")

	// Public catalog
	api.Get("/heroes", players.GetHeroes)
	api.Get("/heroes/:id", players.GetHero)
	api.Get("/shop/categories", players.GetShopCategories)
	api.Get("/shop/rarities", players.GetShopRarities)

	secured := api.Group("/", middleware.PlayerContextMiddleware(log))

	// Tournaments
	secured.Post("/tournaments", tournaments.CreateTournament)
	secured.Get("/tournaments", tournaments.ListTournaments)
	secured.Get("/tournaments/:id", tournaments.GetTournament)
	secured.Post("/tournaments/:id/join", tournaments.JoinTournament)
	secured.Delete("/tournaments/:id/leave", tournaments.LeaveTournament)
	secured.Get("/tournaments/:id/participants", tournaments.GetParticipants)

	// Matches
	secured.Get("/matches/tournament/:tournament_id", matches.GetTournamentMatches)
	secured.Get("/matches/me/matches", matches.GetMyMatches)
	secured.Get("/matches/player/:player_id", matches.GetPlayerMatches)
	secured.Get("/matches/:id", matches.GetMatch)

	// Shop and progression
	secured.Get("/shop/items", players.GetShopItems)
	secured.Post("/shop/purchase", players.PurchaseItem)
	secured.Get("/shop/inventory", players.GetInventory)
	secured.Get("/players/me/stats", players.GetMyStats)
	secured.Get("/players/:player_id/stats", players.GetPlayerStats)
	secured.Get("/players/:player_id", players.GetPlayer)
}
