// Package nexus converts a run from a catalog into a NeXus HDF5 tree.
//
// One run becomes one entry named after the run's uid:
//
//	/                                   @NX_class=NXroot @default=<uid>
//	/<uid>                              NXentry @default=data
//	/<uid>/data/<field>                 links to hinted stream values
//	/<uid>/instrument/bluesky/metadata  flattened run documents
//	/<uid>/instrument/bluesky/streams/<stream>/<field>/{value,EPOCH,time}
//	/<uid>/{sample_name,scan_name,plan_name,entry_identifier}  links into metadata
//	/<uid>/{start_time,stop_time,duration}
//
// Conversion runs in two phases. Stream payloads are read concurrently, then
// the tree is written in stream order and links are resolved against the
// handles the write phase returned.
package nexus
