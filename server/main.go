package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flagforge/server/admin"
	"flagforge/server/audit"
	"flagforge/server/question"
	"flagforge/server/submission"
	"flagforge/server/team"
	"flagforge/server/user"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	if err := ensureSchema(db); err != nil {
		log.Fatalf("failed to initialize schema: %v", err)
	}
	if err := ensureAdmin(db); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	r := gin.Default()
	registerRoutes(r, db, []byte(jwtSecret))

	// Prune idle per-user submission limiters.
	submission.StartLimiterCleanup(db)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func registerRoutes(r *gin.Engine, db *sql.DB, jwtSecret []byte) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// ========== Auth ==========
		api.POST("/auth/register", func(c *gin.Context) {
			handleRegister(c, db, jwtSecret)
		})
		api.POST("/auth/login", func(c *gin.Context) {
			handleLogin(c, db, jwtSecret)
		})
		api.POST("/auth/admin-login", func(c *gin.Context) {
			handleAdminLogin(c, db, jwtSecret)
		})
		api.POST("/auth/logout", func(c *gin.Context) {
			handleLogout(c)
		})

		// ========== Public browsing ==========
		api.GET("/users", func(c *gin.Context) {
			user.HandleListUsers(c, db)
		})
		api.GET("/users/:id", func(c *gin.Context) {
			user.HandleGetUser(c, db)
		})
		api.GET("/teams", func(c *gin.Context) {
			team.HandleListTeams(c, db)
		})
		api.GET("/teams/:id", func(c *gin.Context) {
			team.HandleGetTeam(c, db)
		})

		// ========== Scoreboard (anonymous allowed, admins see live) ==========
		boardAPI := api.Group("")
		boardAPI.Use(optionalAuthMiddleware(jwtSecret))
		{
			boardAPI.GET("/scoreboard", func(c *gin.Context) {
				submission.HandleGetScoreboard(c, db)
			})
			boardAPI.GET("/scoreboard/graph", func(c *gin.Context) {
				submission.HandleGetScoreGraph(c, db)
			})
			boardAPI.GET("/scoreboard/graph.png", func(c *gin.Context) {
				submission.HandleGetScoreGraphPNG(c, db)
			})
			boardAPI.GET("/solves/recent", func(c *gin.Context) {
				submission.HandleGetRecentSolves(c, db)
			})
		}

		// ========== Logged-in player API ==========
		userAPI := api.Group("")
		userAPI.Use(userAuthMiddleware(jwtSecret, db))
		{
			userAPI.GET("/auth/me", func(c *gin.Context) {
				handleMe(c, db)
			})
			userAPI.DELETE("/auth/account", func(c *gin.Context) {
				handleDeleteAccount(c, db)
			})

			userAPI.GET("/challenges", func(c *gin.Context) {
				question.HandleListChallenges(c, db)
			})
			userAPI.GET("/challenges/:id", func(c *gin.Context) {
				question.HandleGetChallenge(c, db)
			})
			userAPI.POST("/challenges/:id/submit", func(c *gin.Context) {
				submission.HandleSubmitFlag(c, db)
			})
			userAPI.POST("/challenges/:id/hint", func(c *gin.Context) {
				submission.HandleUnlockHint(c, db)
			})
			userAPI.POST("/challenges/:id/rate", func(c *gin.Context) {
				submission.HandleRateChallenge(c, db)
			})

			userAPI.POST("/teams", func(c *gin.Context) {
				team.HandleCreateTeam(c, db)
			})
			userAPI.POST("/teams/join", func(c *gin.Context) {
				team.HandleJoinTeam(c, db)
			})
			userAPI.POST("/teams/leave", func(c *gin.Context) {
				team.HandleLeaveTeam(c, db)
			})
			userAPI.GET("/teams/invite", func(c *gin.Context) {
				team.HandleGetInvite(c, db)
			})
			userAPI.POST("/teams/invite/regenerate", func(c *gin.Context) {
				team.HandleRegenerateInvite(c, db)
			})
			userAPI.POST("/teams/kick", func(c *gin.Context) {
				team.HandleKickMember(c, db)
			})
			userAPI.POST("/teams/transfer-captain", func(c *gin.Context) {
				team.HandleTransferCaptain(c, db)
			})
			userAPI.DELETE("/teams", func(c *gin.Context) {
				team.HandleDeleteTeam(c, db)
			})

			userAPI.PUT("/users/profile", func(c *gin.Context) {
				user.HandleUpdateProfile(c, db)
			})
			userAPI.POST("/users/play-mode", func(c *gin.Context) {
				user.HandleSetPlayMode(c, db)
			})
			userAPI.POST("/users/password", func(c *gin.Context) {
				user.HandleChangePassword(c, db)
			})
		}

		// ========== Admin console ==========
		adminAPI := api.Group("/admin")
		adminAPI.Use(adminAuthMiddleware(jwtSecret))
		{
			adminAPI.GET("/overview", func(c *gin.Context) {
				admin.HandleAdminOverview(c, db)
			})

			adminAPI.GET("/config", func(c *gin.Context) {
				admin.HandleGetConfig(c, db)
			})
			adminAPI.PUT("/config", func(c *gin.Context) {
				admin.HandleUpdateConfig(c, db)
			})
			adminAPI.PUT("/config/bulk", func(c *gin.Context) {
				admin.HandleBulkUpdateConfig(c, db)
			})
			adminAPI.POST("/waves/activate", func(c *gin.Context) {
				admin.HandleActivateWaves(c, db)
			})

			adminAPI.GET("/challenges", func(c *gin.Context) {
				admin.HandleListChallenges(c, db)
			})
			adminAPI.POST("/challenges", func(c *gin.Context) {
				admin.HandleCreateChallenge(c, db)
			})
			adminAPI.PUT("/challenges/:id", func(c *gin.Context) {
				admin.HandleUpdateChallenge(c, db)
			})
			adminAPI.DELETE("/challenges/:id", func(c *gin.Context) {
				admin.HandleDeleteChallenge(c, db)
			})

			adminAPI.GET("/users", func(c *gin.Context) {
				admin.HandleListUsers(c, db)
			})
			adminAPI.PUT("/users/:id", func(c *gin.Context) {
				admin.HandleUpdateUser(c, db)
			})
			adminAPI.DELETE("/users/:id", func(c *gin.Context) {
				admin.HandleDeleteUser(c, db)
			})
			adminAPI.PUT("/teams/:id", func(c *gin.Context) {
				admin.HandleUpdateTeam(c, db)
			})
			adminAPI.DELETE("/teams/:id", func(c *gin.Context) {
				admin.HandleDeleteTeam(c, db)
			})

			adminAPI.POST("/reset-scores", func(c *gin.Context) {
				admin.HandleResetScores(c, db)
			})
			adminAPI.GET("/export/scoreboard", func(c *gin.Context) {
				admin.HandleExportScoreboard(c, db)
			})
			adminAPI.GET("/logs", func(c *gin.Context) {
				audit.HandleGetLogs(c, db)
			})
		}
	}
}
