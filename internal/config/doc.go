// Package config handles configuration loading for the chat backend.
//
// # Overview
//
// Configuration is loaded from a YAML file over defaults, with environment
// variable expansion. The package provides validation and sensible defaults
// so the backend runs with nothing but an API key in the environment.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	completion:
//	  api_key: "${OPENAI_API_KEY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	tools:
//	  catalog_ttl: "30s"
//	  execute_timeout: "30s"
//	  retry_base_delay: "200ms"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  host: "0.0.0.0"
//	  port: 8000
//	  shutdown_timeout: "5s"
//
// Completion service:
//
//	completion:
//	  api_key: "${OPENAI_API_KEY}"
//	  base_url: ""              # optional OpenAI-compatible endpoint
//	  model: "gpt-4o-mini"
//	  max_tokens: 1000
//	  temperature: 0.7
//
// Tool provider:
//
//	tools:
//	  enabled: true
//	  transport: "http"         # http, mcp
//	  base_url: "http://localhost:8001"
//	  mcp:
//	    url: ""                 # streamable HTTP endpoint
//	    command: ""             # or a stdio subprocess
//	  catalog_ttl: "30s"
//	  catalog_grace: "15s"
//	  fetch_timeout: "10s"
//	  execute_timeout: "30s"
//	  retry_base_delay: "200ms"
//	  max_attempts: 3
//	  max_concurrent: 8
//
// Conversation loop:
//
//	orchestrator:
//	  max_rounds: 5
//
// Provider health probe:
//
//	health:
//	  probe_interval: "5s"
//	  probe_timeout: "3s"
//
// Audit ledger and metrics:
//
//	audit:
//	  enabled: false
//	  path: "data/audit.db"
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Port range and required endpoint fields per transport
//   - Temperature within [0, 2] and max_tokens >= 1
//   - Duration format validity and positive budgets
//   - Logging level and format enums
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Defaults alone:
//
//	cfg := config.Default()
package config
