// Package message encodes and decodes HDF5 object header messages.
//
// An object header is a list of typed messages. Groups carry [LinkInfo],
// [GroupInfo] and one [Link] per child; datasets carry [Dataspace],
// [Datatype] and [DataLayout]; any object may carry [Attribute] messages.
//
// # Supported encodings
//
// Datatypes: fixed-point integers, IEEE floats, fixed-length strings and
// the two-member enum used for booleans. Other classes parse with their raw
// properties preserved so a reader can report them as unsupported.
//
// Layouts: compact and contiguous (layout message version 3). Chunked and
// virtual layouts are recognized but carry no addressing information.
//
// Links: hard and soft. External and user-defined links parse to a [Link]
// whose kind is reported but whose target is empty.
//
// # Parsing and writing
//
// [Parse] decodes one message body given its type:
//
//	msg, err := message.Parse(typ, body, flags, r)
//
// Every message this module writes implements [Serializable]; object headers
// size themselves with SerializedSize before calling Serialize.
package message
