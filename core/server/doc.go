// Package server wraps http.Server with graceful shutdown, functional
// options and environment-driven configuration.
//
// Direct use:
//
//	srv := server.New(":8080", server.WithShutdownTimeout(10*time.Second))
//	if err := srv.Start(ctx, app); err != nil {
//		log.Fatal(err)
//	}
//
// From environment configuration (see the config package for loading):
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//	srv, err := server.NewFromConfig(cfg)
//
// Run returns a closure compatible with errgroup for coordinated lifecycle
// management of several servers.
package server
