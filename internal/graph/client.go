// Package graph provides the client for the archive graph database that trip
// snapshots are exported into.
package graph

import (
	"context"
	"errors"
)

// Client is the minimal contract the archiver needs: parameterized cypher
// writes plus connectivity probing.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
