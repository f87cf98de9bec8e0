// Package graphpack serializes object graphs that mix ordinary Go values with
// externally-managed objects into a single portable zip archive, and rebuilds
// them later, possibly in another process.
//
// An externally-managed object knows how to save itself to a directory and
// how to be loaded back from one. While a graph is pickled, every such object
// is saved into a staged directory, copied into the archive under a fresh
// name, and replaced in the graph by a reference holding its type tag and
// that name. The rest of the graph goes through a generic codec (gob by
// default, CBOR optionally) into a graph blob that is stored in the archive
// too.
//
// # Archive layout
//
//	pickle_file            manifest: body is the blob entry name, entry comment is the version ("1.0")
//	<uuid>                 graph blob, entry comment "codec=<name> blake3=<hex>"
//	<uuid>/...             one tree per externalized object
//
// # Quick Start
//
// Register the externally-managed kinds once:
//
//	registry := graphpack.NewRegistry()
//	registry.MustRegister(graphpack.Kind{
//	    Tag:   graphpack.TagTable,
//	    Types: []reflect.Type{reflect.TypeFor[*Table]()},
//	    Load: func(tag graphpack.TypeTag, dir string) (graphpack.Object, error) {
//	        return LoadTable(dir)
//	    },
//	})
//
// Pickle a graph:
//
//	p, err := graphpack.NewPickler("report.gpk", registry,
//	    graphpack.WithStagingRoot("/var/tmp/graphpack"))
//	if err != nil {
//	    return err
//	}
//	if err := p.Dump(ctx, map[string]any{"rows": table, "count": 3}); err != nil {
//	    return err
//	}
//	if err := p.Close(); err != nil {
//	    return err
//	}
//
// Load it back:
//
//	v, err := graphpack.Load(ctx, "report.gpk", registry)
//
// Load accepts plain graph blobs too: a file that is not a zip container is
// decoded in place.
//
// # Object slots
//
// An externalized object is replaced by a Reference, so it must sit in a
// slot that can hold one: an interface-typed map value, slice element or
// exported struct field (typically any). Other slots fail with
// ErrUnsupportedSlot.
//
// # Staging
//
// Staged payloads, graph blobs and extracted archives live under the staging
// root with random names and are never deleted by this package. Configure a
// ledger with WithLedgerPath and call SweepStaging to clean up.
//
// # Configuration
//
// Config can be built in code, read from GRAPHPACK_* environment variables
// with LoadConfigFromEnvironment, or read from YAML with LoadConfigFile, and
// is passed with WithConfig. Individual options override single fields.
package graphpack
