// Package config loads the kernel configuration from a single YAML file.
//
// A missing file is not an error: the kernel then runs with the values of
// GetDefaultConfig. Durations are written as Go duration strings:
//
//	startup:
//	  maxParallel: 4
//	  serviceTimeout: 10s
//	shutdown:
//	  stopTimeout: 5s
//	events:
//	  listenerTimeout: 2s
//	services:
//	  - name: brakes
//	    safety: critical
//	    requires: [can-bus]
//	  - name: nav
//	    optional: [gps]
//	    requires: [map-db]
//	    fallbacks:
//	      map-db: offline-maps
//
// Validate reports every problem at once as ValidationErrors. LoadConfig
// wraps parse and validation failures in a LoadError carrying the path.
package config
