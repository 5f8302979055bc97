// Package config loads fidlwire tool configuration from YAML.
//
// Example:
//
//	decode:
//	  max_depth: 32
//	  max_unknown_handles: 64
//	  unknown_handles: close   # close | skip
//	schema:
//	  max_string_size: 4096
//	  max_list_count: 1024
//	  handle_type: channel
//	capture:
//	  compression: zstd        # none | zstd | lz4
//	log:
//	  level: info              # debug | info | warn | error
//	  format: console          # console | json
//
// Missing keys keep their defaults. The file is the single source of truth;
// environment variables are not consulted.
package config
