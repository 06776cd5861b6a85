package main

import (
	"context"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	config := server.NewConfigFromEnv()
	logger := server.NewLogger(config.Env, config.LogLevel)

	hub := server.NewHub(*config, logger)
	go hub.Run()

	httpServer := server.CreateServer(config.Port, server.SetupRoutes(hub))

	go func() {
		if err := server.StartServer(httpServer, logger); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	logger.Info().
		Str("env", config.Env).
		Strs("rooms", hub.Config().Rooms).
		Bool("adhoc_rooms", config.AllowAdHocRooms).
		Msg("room chat server started")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		config.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(context.Context) error {
				return server.ShutdownServer(httpServer, config.ShutdownTimeout, logger)
			},
			"hub": func(context.Context) error {
				return hub.Shutdown(config.ShutdownTimeout)
			},
		},
	)

	exitCode := <-wait
	logger.Info().Int("exit_code", exitCode).Msg("server stopped")
	os.Exit(exitCode)
}
