// Package server exposes the podcast feeds over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"kemonocast/internal/domain"
	"kemonocast/internal/kemono"
	"kemonocast/internal/rss"
	"kemonocast/internal/syncer"
)

const usageText = `Kemono Podcast RSS Server

Usage: /get/{service}/{creatorId}

Example: /get/patreon/123456

Supported services: patreon, fanbox, gumroad, subscribestar, dlsite, fantia, boosty, afdian
`

type Server struct {
	app     *fiber.App
	client  *kemono.Client
	syncer  *syncer.Syncer
	builder *rss.Builder
	log     *slog.Logger
}

func New(
	client *kemono.Client,
	sync *syncer.Syncer,
	builder *rss.Builder,
	log *slog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Kemono Podcast RSS Server",
		DisableStartupMessage: true,
	})

	s := &Server{
		app:     app,
		client:  client,
		syncer:  sync,
		builder: builder,
		log:     log,
	}

	app.Get("/", s.handleUsage)
	app.Get("/get/:service/:creator", s.handleFeed)

	return s
}

func (s *Server) Listen(port int) error {
	return s.app.Listen(fmt.Sprintf(":%d", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleUsage(c *fiber.Ctx) error {
	return c.SendString(usageText)
}

func (s *Server) handleFeed(c *fiber.Ctx) error {
	service := c.Params("service")
	creatorID := c.Params("creator")
	ctx := c.UserContext()

	var profile *domain.Profile
	var posts []domain.Post

	// Profile fetch and post sync are independent upstream calls.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.client.FetchProfile(gctx, service, creatorID)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.syncer.Sync(gctx, service, creatorID)
		return err
	})

	if err := g.Wait(); err != nil {
		return s.feedError(c, service, creatorID, err)
	}

	doc, err := s.builder.Build(ctx, profile, posts)
	if err != nil {
		return s.feedError(c, service, creatorID, err)
	}

	s.log.InfoContext(ctx, "Feed generated",
		"service", service,
		"creatorID", creatorID,
		"postCount", len(posts),
		"documentBytes", len(doc))

	c.Set(fiber.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")

	return c.SendString(doc)
}

func (s *Server) feedError(c *fiber.Ctx, service, creatorID string, err error) error {
	s.log.ErrorContext(c.UserContext(), "Failed to generate feed",
		"error", err,
		"service", service,
		"creatorID", creatorID)

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	return c.Status(fiber.StatusInternalServerError).
		SendString(fmt.Sprintf("Error: %v", err))
}
