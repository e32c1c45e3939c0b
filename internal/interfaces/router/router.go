package router

import (
	"net/http"

	"learnhub-backend/internal/application/emails"
	groupsvc "learnhub-backend/internal/application/groups"
	invsvc "learnhub-backend/internal/application/invites"
	lbsvc "learnhub-backend/internal/application/leaderboard"
	membersvc "learnhub-backend/internal/application/members"
	"learnhub-backend/internal/application/notifications"
	scoresvc "learnhub-backend/internal/application/scores"
	"learnhub-backend/internal/config"
	"learnhub-backend/internal/identity"
	"learnhub-backend/internal/infrastructure/database"
	"learnhub-backend/internal/infrastructure/scorefeed"
	grouphandler "learnhub-backend/internal/interfaces/handlers/groups"
	healthhandler "learnhub-backend/internal/interfaces/handlers/health"
	invhandler "learnhub-backend/internal/interfaces/handlers/invites"
	lbhandler "learnhub-backend/internal/interfaces/handlers/leaderboard"
	memberhandler "learnhub-backend/internal/interfaces/handlers/members"
	scorehandler "learnhub-backend/internal/interfaces/handlers/scores"
	"learnhub-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	hh := &healthhandler.Handlers{Rdb: rdb}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/health/json", hh.JSON)

	if db != nil {
		var sink notifications.Sink = notifications.NopSink{}
		if rdb != nil {
			sink = &notifications.RedisSink{Rdb: rdb, DB: db, Channel: cfg.NotifyChannel}
		}

		var mailer emails.Mailer
		if cfg.BrevoAPIKey != "" {
			mailer = &emails.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}
		}

		ss := &scoresvc.Service{DB: db, Feed: &scorefeed.GormFeed{DB: db}}
		gs := &groupsvc.Service{DB: db, Sink: sink, Syncer: ss, DefaultGroupName: cfg.DefaultGroupName}
		is := &invsvc.Service{DB: db, Groups: gs, Sink: sink, Mailer: mailer, BaseURL: cfg.FrontendBaseURL}
		ms := &membersvc.Service{DB: db, Groups: gs, Sink: sink}
		lb := &lbsvc.Service{DB: db, Groups: gs, Rdb: rdb}

		gate := &identity.DBGate{DB: db}
		auth := middleware.Authenticate(gate)

		gh := &grouphandler.Handlers{Service: gs}
		gg := app.Group("/api/v1/groups", auth)
		gg.Post("/", gh.CreateGroup)
		gg.Get("/", gh.ListGroups)
		gg.Get("/:id", gh.GetGroup)
		gg.Patch("/:id", gh.UpdateGroup)
		gg.Delete("/:id", gh.DeleteGroup)
		gg.Post("/:id/join", gh.Join)
		gg.Post("/:id/leave", gh.Leave)
		gg.Post("/:id/transfer-ownership", gh.TransferOwnership)

		ih := &invhandler.Handlers{Service: is}
		gg.Post("/:id/invites", ih.SendInvite)
		gg.Get("/:id/invites", ih.ListGroupInvites)
		ig := app.Group("/api/v1/invites", auth)
		ig.Post("/:id/respond", ih.Respond)
		ig.Post("/:id/cancel", ih.Cancel)

		mh := &memberhandler.Handlers{Service: ms}
		gg.Get("/:id/members", mh.ListMembers)
		gg.Post("/:id/members/:userId", mh.ManageMember)

		lh := &lbhandler.Handlers{Service: lb}
		gg.Get("/:id/leaderboard", lh.GetGroupPage)
		lg := app.Group("/api/v1/leaderboard", auth)
		lg.Get("/global", lh.GetGlobalPage)

		sh := &scorehandler.Handlers{Service: ss, Leaderboard: lb}
		sg := app.Group("/api/v1/scores", auth, middleware.RequirePlatformAdmin())
		sg.Post("/sync", sh.SyncScore)
		sg.Post("/bulk-sync", sh.BulkSync)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
