package shapefile

import "log/slog"

// ReadOptions configures a Reader.
type ReadOptions struct {
	// RequireAttributes makes a missing .dbf an Open error. When false the
	// reader opens geometry-only datasets and every record has an empty
	// attribute map.
	// Default is true.
	RequireAttributes bool

	// ValidateGeometry checks every decoded geometry (closed rings, enough
	// vertices, finite coordinates). Records failing the check keep their
	// attributes and get a nil Geometry.
	// Default is false.
	ValidateGeometry bool

	// Logger receives per-record decode problems and open/close events.
	// Nil discards them.
	Logger *slog.Logger
}

// DefaultReadOptions returns default options.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		RequireAttributes: true,
		ValidateGeometry:  false,
	}
}

func (o ReadOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
