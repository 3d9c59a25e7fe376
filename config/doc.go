// Copyright 2026 Archon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config provides the orchestrator's configuration surface.

Config is loaded in three layers, lowest priority first: compiled-in
defaults, an optional YAML file, then environment variables. There is no
hot reload — the orchestrator's credentials and worker count are fixed
for the life of the process, matching its no-persistence, single-instance
design.

Use:

	cfg, err := config.NewLoader().
		WithConfigPath("orchestrator.yaml").
		Load()
*/
package config
