// Package archive implements the graph container: a zip file holding a
// manifest entry, the generic graph blob and one directory tree per
// externalized object.
//
//	Container layout:
//	  pickle_file            manifest; body = blob entry name, comment = format version
//	  <blob-name>            graph blob; comment = "codec=<name> blake3=<hex>"
//	  <payload-name>/...     one saved object per payload root
//
// Writers grow the container incrementally and stream every entry from disk.
// Readers probe the zip signature before trusting anything else, so plain
// codec blobs are never mistaken for containers.
package archive
