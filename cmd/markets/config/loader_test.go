// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	// Create a temp directory
	tempDir, err := os.MkdirTemp("", "markets-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, ".aleutian", "markets.yaml")

	// Create the config
	err = createDefault(configPath)
	if err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	// Verify the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	// Read and verify the config
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg MarketsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	// Verify some defaults
	if cfg.Server.URL != "http://localhost:8080" {
		t.Errorf("Server.URL = %q, want %q", cfg.Server.URL, "http://localhost:8080")
	}
	if cfg.Chat.DefaultSession != "" {
		t.Errorf("Chat.DefaultSession = %q, want empty", cfg.Chat.DefaultSession)
	}
}

// TestCreateDefault_DirectoryCreation verifies directory is created.
func TestCreateDefault_DirectoryCreation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "markets-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Use a nested path
	configPath := filepath.Join(tempDir, "deep", "nested", "path", "markets.yaml")

	err = createDefault(configPath)
	if err != nil {
		t.Fatalf("createDefault() failed with nested path: %v", err)
	}

	// Verify the directories were created
	dirPath := filepath.Dir(configPath)
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		t.Fatal("nested directories were not created")
	}
}

// TestDefaultConfig verifies the compiled-in defaults round-trip through YAML.
func TestDefaultConfig_RoundTrip(t *testing.T) {
	def := DefaultConfig()

	data, err := yaml.Marshal(def)
	if err != nil {
		t.Fatalf("failed to marshal default config: %v", err)
	}

	var parsed MarketsConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal default config: %v", err)
	}

	if parsed.Server.URL != def.Server.URL {
		t.Errorf("Server.URL = %q, want %q", parsed.Server.URL, def.Server.URL)
	}
}

// TestLoadOverrides verifies user values survive parsing.
func TestConfigParsing_UserValues(t *testing.T) {
	raw := []byte(`
server:
  url: http://gateway.internal:9090
chat:
  user: trader-1
  default_session: sess-favorites
backup:
  bucket: aleutian-backups
  credentials: /etc/keys/sa.json
`)

	var cfg MarketsConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	if cfg.Server.URL != "http://gateway.internal:9090" {
		t.Errorf("Server.URL = %q, want %q", cfg.Server.URL, "http://gateway.internal:9090")
	}
	if cfg.Chat.User != "trader-1" {
		t.Errorf("Chat.User = %q, want %q", cfg.Chat.User, "trader-1")
	}
	if cfg.Chat.DefaultSession != "sess-favorites" {
		t.Errorf("Chat.DefaultSession = %q, want %q", cfg.Chat.DefaultSession, "sess-favorites")
	}
	if cfg.Backup.Bucket != "aleutian-backups" {
		t.Errorf("Backup.Bucket = %q, want %q", cfg.Backup.Bucket, "aleutian-backups")
	}
	if cfg.Backup.Credentials != "/etc/keys/sa.json" {
		t.Errorf("Backup.Credentials = %q, want %q", cfg.Backup.Credentials, "/etc/keys/sa.json")
	}
}
