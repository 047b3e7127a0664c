// Package node implements the runtime shared by every kind of testbed node.
//
// A node is a process talking to the harness over its standard streams. The
// Node type in this package drives the protocol skeleton and delegates the
// application logic to a pluggable Behavior.
//
// Handshake
//
// A Node starts in the AwaitingInit state. It reads exactly one line, which
// must decode as an init message carrying the node's identity (node_id) and
// the list of participants (node_ids). The Behavior receives both through
// SetIdentity, the Node moves to the Ready state and answers with init_ok,
// correlated to the init by in_reply_to. Receiving init_ok first, or anything
// that does not decode as an init, is a fatal protocol violation and nothing
// is written to the output.
//
// Message loop
//
// Once Ready, the rest of the input is decoded as a continuous stream of
// envelopes restricted to the Behavior's Vocabulary. Each envelope is passed
// to Behavior.Process, and fully processed before the next one is read. A
// decoding error or an error returned by the Behavior stops the loop and is
// returned to the caller, tagged with the Stage where it happened. The loop
// ends without error when the input ends.
//
// Replies
//
// Reply builds the answer to a message: source and destination are swapped,
// msg_id is drawn from the Behavior's counter and in_reply_to carries the
// msg_id of the request. The handshake uses the same counter, so the init_ok
// takes msg_id 1 and every later reply gets a strictly greater value.
//
// Concurrency
//
// Message processing is strictly sequential. The only concurrent reader is
// the optional stats service, which goes through GetStats and only touches
// atomic counters.
package node
