// Package sink provides batch delivery to external destinations.
//
// This package defines the Sink interface that pipelines hand released
// batches to, plus three implementations: a line-oriented writer for
// stdout and files, an HTTP sink that POSTs JSON envelopes to an
// ingestion service, and a Kafka producer.
//
// # Usage
//
// Create a sink and ship batches:
//
//	snk := sink.NewHTTP[string](nil, sink.HTTPConfig{
//	    ServiceURL: "https://api.example.com",
//	    AuthKey:    "api-key",
//	    Stream:     "orders",
//	}, logger)
//
//	if err := snk.Ship(ctx, batch); err != nil {
//	    return err
//	}
//
// # Custom Sinks
//
// Implement the Sink interface to deliver to alternative destinations
// (e.g., S3, NATS, a database).
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package sink
