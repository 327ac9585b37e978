package router

import (
	"database/sql"
	"net/http"

	"guidebook/config"
	docRepository "guidebook/internal/document/repository"
	docService "guidebook/internal/document/service"
	feedRepository "guidebook/internal/feed/repository"
	feedService "guidebook/internal/feed/service"
	forumHandler "guidebook/internal/forum"
	forumRepository "guidebook/internal/forum/repository"
	forumService "guidebook/internal/forum/service"
	imageHandler "guidebook/internal/image"
	imageRepository "guidebook/internal/image/repository"
	imageService "guidebook/internal/image/service"
	"guidebook/middleware"
	"guidebook/pkg/metrics"
	"guidebook/socket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(db *sql.DB, hub *socket.Hub, cfg *config.Config, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.NewAuth(cfg.JWTSecret)

	// Feed WebSocket, open to anonymous readers
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID int64
		if p, ok := middleware.PrincipalFrom(r.Context()); ok {
			userID = p.UserID
		}
		socket.ServeWs(hub, w, r, userID)
	})
	mux.Handle("GET /ws/feed", auth.Optional(wsHandler))

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// REST API
	docs := docService.NewDocumentService(docRepository.NewDocumentRepository(db))
	feed := feedService.NewFeedService(feedRepository.NewFeedRepository(db), hub)
	publisher := imageService.NewBackendPublisher(cfg.ImageBackendURL, cfg.ImageBackendSecret, m)
	images := imageService.NewImageService(docs, imageRepository.NewImageRepository(db), publisher, feed, cfg.ImageURL)
	imgHandler := imageHandler.NewImageHandler(images, cfg.ModeratorRole)

	mux.HandleFunc("GET /images", imgHandler.ListImages)
	mux.HandleFunc("GET /images/{id}", imgHandler.GetImage)
	mux.HandleFunc("GET /images/{id}/{lang}/info", imgHandler.Info)
	mux.HandleFunc("GET /images/proxy/{id}", imgHandler.Proxy)
	mux.Handle("POST /images", auth.Require(http.HandlerFunc(imgHandler.CreateImage)))
	mux.Handle("POST /images/list", auth.Require(http.HandlerFunc(imgHandler.CreateImageList)))
	mux.Handle("PUT /images/{id}", auth.Require(http.HandlerFunc(imgHandler.UpdateImage)))

	discourse := forumService.NewDiscourseClient(cfg.DiscourseURL, cfg.DiscourseAPIKey, cfg.DiscourseAPIUsername, m)
	forum := forumService.NewForumService(discourse, forumRepository.NewTopicRepository(db), cfg.DiscoursePublicURL, cfg.DiscourseCategory)
	fHandler := forumHandler.NewForumHandler(forum)

	mux.Handle("GET /forum/private-messages/unread-count", auth.Require(http.HandlerFunc(fHandler.UnreadCount)))
	mux.Handle("POST /forum/topics", auth.Require(http.HandlerFunc(fHandler.CreateTopic)))

	return middleware.CORSMiddleware(middleware.MetricsMiddleware(m, mux))
}
