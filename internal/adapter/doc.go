/*
Package adapter provides the composition root that assembles a DirStore
deployment from configuration.

The Adapter translates a validated config.Configuration into live
components: it selects and constructs the storage gateway, builds the
store engine with the configured options, attaches the Prometheus
collector, and owns startup and shutdown of the pieces that have a
lifecycle.

# Architecture Role

	┌─────────────────────────────────────────────┐
	│           Application / cmd/dirstore        │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│              ADAPTER LAYER                  │ ← This Package
	│  • Gateway Selection                        │
	│  • Store Construction                       │
	│  • Metrics Wiring                           │
	│  • Lifecycle Management                     │
	└─────────────────────────────────────────────┘
	        │              │              │
	┌───────┴─────┐ ┌──────┴──────┐ ┌─────┴───────┐
	│   Gateway   │ │    Store    │ │   Metrics   │
	│(local/mem/s3)│ │  (engine)  │ │(prometheus) │
	└─────────────┘ └─────────────┘ └─────────────┘

# Storage URIs

ApplyStorageURI accepts a shorthand that rewrites the storage section of a
configuration, for callers that take a single flag instead of a file:

	local:///var/lib/dirstore     local gateway, data/ and tmp/ under the root
	memory://                     in-memory gateway, virtual directories
	s3://bucket/prefix            s3 gateway, directories become key prefixes

Data and temp directories are always placed side by side under the URI root
so the write path's final rename never crosses a volume boundary.

# Lifecycle

Start verifies that an s3 backend is reachable (HeadBucket), brings up the
metrics exposition server when metrics are enabled, and launches periodic
health probes for remote backends. Stop cancels the probes, shuts the
metrics server down and drains the s3 connection pool; it continues past
individual failures and returns the first one. The local and memory
gateways hold no resources and need no teardown.

The adapter registers the gateway with a health.Tracker that the metrics
collector feeds from operation outcomes and serves on /health, so a
backend that starts failing shows up without any polling code in the
application.

# Usage

	cfg := config.NewDefault()
	if err := adapter.ApplyStorageURI(cfg, "local:///var/lib/dirstore"); err != nil {
		return err
	}

	a, err := adapter.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop(ctx)

	users, err := store.NewCollection[User](a.Store(), "users", codec.JSON[User]())
*/
package adapter
